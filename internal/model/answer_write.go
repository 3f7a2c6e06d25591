package model

import "time"

// AnswerWrite is one pending persistence of a local answer change.
// A nil Choice is the explicit "no selection" value sent to the store.
type AnswerWrite struct {
	AttemptID  string    `json:"attempt_id"`
	QuestionID string    `json:"question_id"`
	Choice     *int      `json:"choice"`
	QueuedAt   time.Time `json:"queued_at"`
}

// Cleared reports whether w removes the stored answer.
func (w AnswerWrite) Cleared() bool {
	return w.Choice == nil
}
