package model

import (
	"time"
)

// AttemptStatus enumerates remote attempt states.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusFinished   AttemptStatus = "FINISHED"
)

// Attempt is one in-progress or completed run of a generated exam.
type Attempt struct {
	ID        string        `json:"id"`
	ExamID    string        `json:"exam_id"`
	Status    AttemptStatus `json:"status,omitempty"`
	StartedAt *time.Time    `json:"started_at,omitempty"`
}

// AttemptResults is the authoritative remote view of an attempt.
// Answers holds only answered questions; explicit nulls from the store are dropped.
type AttemptResults struct {
	AttemptID  string         `json:"id"`
	ExamID     string         `json:"exam_id"`
	Answers    map[string]int `json:"answers"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Score      *float64       `json:"score,omitempty"`
}

// Finished reports whether the store has closed the attempt.
func (r *AttemptResults) Finished() bool {
	return r.FinishedAt != nil
}

// ScoreSummary is the tally produced by the store's scoring rule.
type ScoreSummary struct {
	TotalQuestions int     `json:"total_questions"`
	Correct        int     `json:"correct"`
	Incorrect      int     `json:"incorrect"`
	Unanswered     int     `json:"unanswered"`
	RawScore       float64 `json:"raw_score"`
	FinalScore     float64 `json:"final_score"`
	Scale          float64 `json:"scale"`
}

// FinishResult is returned by the remote finish operation.
type FinishResult struct {
	AttemptID string        `json:"attempt_id"`
	Score     float64       `json:"score"`
	Details   *ScoreSummary `json:"details,omitempty"`
}

// SessionState enumerates the lifecycle of a local exam session.
type SessionState string

const (
	SessionStateLoading   SessionState = "LOADING"
	SessionStateReady     SessionState = "READY"
	SessionStateFinishing SessionState = "FINISHING"
	SessionStateFinished  SessionState = "FINISHED"
	SessionStateError     SessionState = "ERROR"
)

// Terminal reports whether no further transitions are possible.
func (s SessionState) Terminal() bool {
	return s == SessionStateFinished || s == SessionStateError
}

// FeedbackStatus is the correctness verdict for one answered question.
type FeedbackStatus string

const (
	FeedbackCorrect   FeedbackStatus = "CORRECT"
	FeedbackIncorrect FeedbackStatus = "INCORRECT"
)

// FeedbackRecord is derived from a question and a selection. Never persisted.
type FeedbackRecord struct {
	Status        FeedbackStatus `json:"status"`
	SelectedIndex int            `json:"selected_index"`
	CorrectIndex  int            `json:"correct_index"`
	CorrectText   string         `json:"correct_text"`
}

// SessionSnapshot is a read-only copy of a session, safe to serialize.
type SessionSnapshot struct {
	AttemptID              string                    `json:"attempt_id"`
	ExamID                 string                    `json:"exam_id"`
	ExamName               string                    `json:"exam_name"`
	ExamType               ExamType                  `json:"exam_type"`
	State                  SessionState              `json:"state"`
	CurrentIndex           int                       `json:"current_index"`
	QuestionCount          int                       `json:"question_count"`
	CurrentQuestion        *QuestionForStudent       `json:"current_question,omitempty"`
	Answers                map[string]int            `json:"answers"`
	Feedback               map[string]FeedbackRecord `json:"feedback"`
	InstantFeedbackEnabled bool                      `json:"instant_feedback_enabled"`
	Progress               float64                   `json:"progress"`
	AnsweredCount          int                       `json:"answered_count"`
	Provisional            *ScoreSummary             `json:"provisional_score,omitempty"`
	Result                 *FinishResult             `json:"result,omitempty"`
	Error                  string                    `json:"error,omitempty"`
}

// SelectAnswerRequest records (or toggles off) a choice for a question.
type SelectAnswerRequest struct {
	QuestionID  string `json:"question_id" binding:"required"`
	ChoiceIndex *int   `json:"choice_index" binding:"required,min=0"`
}

// JumpRequest moves the cursor to an arbitrary question.
type JumpRequest struct {
	Index *int `json:"index" binding:"required"`
}

// InstantFeedbackRequest turns per-question correctness on or off.
type InstantFeedbackRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}
