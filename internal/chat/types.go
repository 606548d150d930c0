package chat

// Sender identifies who authored a transcript entry.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// DispatchState governs which remote-response strategy the next turn uses.
// Persisted as its ordinal so saved sessions from the widget's original
// storage format load unchanged.
type DispatchState int

const (
	StateInitial DispatchState = iota
	StateGreeted
	StateServiceSelected
	StateAwaitingIssue
	// StateIssueSubmitted is part of the declared state space but no
	// transition currently produces it; it is accepted on load.
	StateIssueSubmitted
)

func (s DispatchState) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateGreeted:
		return "greeted"
	case StateServiceSelected:
		return "service_selected"
	case StateAwaitingIssue:
		return "awaiting_issue"
	case StateIssueSubmitted:
		return "issue_submitted"
	default:
		return "unknown"
	}
}

// ButtonKind distinguishes buttons the dispatcher intercepts from plain
// outbound links the render surface follows directly.
type ButtonKind string

const (
	ButtonService  ButtonKind = "service"
	ButtonRedirect ButtonKind = "redirect"
)

// Service selector payloads.
const (
	PayloadCosmetic = "cosmetic"
	PayloadGeneral  = "general"
)

// ButtonInfo is a follow-up action attached to a bot message at creation
// time. Immutable.
type ButtonInfo struct {
	Label   string     `json:"label"`
	Payload string     `json:"payload"`
	Kind    ButtonKind `json:"type"`
}

// Message is one immutable transcript entry.
type Message struct {
	ID      string       `json:"id"`
	Sender  Sender       `json:"sender"`
	Text    string       `json:"text"`
	Buttons []ButtonInfo `json:"buttons,omitempty"`
}

// SessionRecord is the full persisted snapshot of a conversation.
type SessionRecord struct {
	Messages    []Message     `json:"messages"`
	State       DispatchState `json:"chatState"`
	UserName    string        `json:"userName,omitempty"`
	LastUpdated int64         `json:"lastUpdated"` // epoch millis
}
