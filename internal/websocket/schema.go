package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionReady   Action = "ready"
	ActionAnswer  Action = "answer"
	ActionStatus  Action = "status"
	ActionForfeit Action = "forfeit"
	ActionPing    Action = "ping"
)

// RequestPayload is the superset of all inbound message fields; the
// read loop decodes into it once and switches on the action.
type RequestPayload struct {
	Action     Action `json:"action"`
	QuestionID string `json:"question_id,omitempty"`
	OptionID   int    `json:"option_id,omitempty"`
	Status     string `json:"status,omitempty"`
}

// AnswerRequest is sent by the client to lock in an answer for the
// current question.
type AnswerRequest struct {
	Action     Action `json:"action"`
	QuestionID string `json:"question_id"`
	OptionID   int    `json:"option_id"`
}

// ReadyRequest is sent by the client to signal readiness to start.
type ReadyRequest struct {
	Action Action `json:"action"`
}

// StatusRequest is sent by the client to flag itself away or active.
type StatusRequest struct {
	Action Action `json:"action"`
	Status string `json:"status"` // "away" or "active"
}

// ForfeitRequest is sent by the client to concede the duel.
type ForfeitRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError    Event = "error"
	EventSnapshot Event = "snapshot"
	EventDuel     Event = "duel"
	EventPong     Event = "pong"
)

// SnapshotResponse carries the full session state on connect, so a
// reconnecting client resynchronizes without replaying history.
type SnapshotResponse struct {
	Event    Event `json:"event"`
	Snapshot any   `json:"snapshot"`
}

// DuelEventResponse wraps one engine event (new_question, player_status,
// player_answered, duel_status, duel_end).
type DuelEventResponse struct {
	Event   Event  `json:"event"`
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ErrorResponse reports a rejected action with the API error code so the
// client can react to specific rejections (stale question, expired
// window) without string matching.
type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
