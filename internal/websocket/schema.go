package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer   Action = "answer"
	ActionBookmark Action = "bookmark"
	ActionNavigate Action = "navigate"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestPayload is the flat union of every client message. Each action
// reads only the fields it needs.
type RequestPayload struct {
	Action     Action `json:"action"`
	QuestionID string `json:"question_id,omitempty"`
	OptionID   string `json:"option_id,omitempty"`
	Index      *int   `json:"index,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	// EventState carries the full session view, sent once on connect.
	EventState   Event = "state"
	EventSuccess Event = "success"
	EventGraded  Event = "graded"
	// EventExpired is pushed when the countdown reaches zero and the
	// session was submitted on the client's behalf.
	EventExpired Event = "expired"
	EventError   Event = "error"
	EventPong    Event = "pong"
)

// SessionEvent wraps a session view for state, success, graded and expired.
type SessionEvent struct {
	Event   Event       `json:"event"`
	Action  Action      `json:"action,omitempty"`
	Session interface{} `json:"session"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event        Event `json:"event"`
	RemainingSec *int  `json:"remaining_sec,omitempty"`
}
