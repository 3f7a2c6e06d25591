package websocket

import "github.com/stemsi/exstem-practice/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSelect   Action = "select"
	ActionClear    Action = "clear"
	ActionNext     Action = "next"
	ActionPrevious Action = "previous"
	ActionJump     Action = "jump"
	ActionFeedback Action = "feedback"
	ActionFinish   Action = "finish"
	ActionSnapshot Action = "snapshot"
	ActionPing     Action = "ping"
)

// RequestPayload is the single client message shape; fields are read per action.
type RequestPayload struct {
	Action      Action `json:"action"`
	QuestionID  string `json:"question_id,omitempty"`
	ChoiceIndex *int   `json:"choice_index,omitempty"`
	Index       *int   `json:"index,omitempty"`
	Enabled     *bool  `json:"enabled,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventSnapshot Event = "snapshot"
	EventFinished Event = "finished"
	EventError    Event = "error"
	EventPong     Event = "pong"
)

// SnapshotResponse carries the session state after an action.
type SnapshotResponse struct {
	Event    Event                 `json:"event"`
	Action   Action                `json:"action,omitempty"`
	Snapshot model.SessionSnapshot `json:"snapshot"`
}

// FinishedResponse is sent once the attempt has been closed.
type FinishedResponse struct {
	Event  Event               `json:"event"`
	Result *model.FinishResult `json:"result"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
