package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/franklinsmiles/webchat/internal/observability/metrics"
	"github.com/franklinsmiles/webchat/pkg/logging"
)

var (
	// ErrBusy is returned when a turn is already in flight. The render
	// surface disables input while busy, so hitting this means a second
	// submission raced the busy indicator; nothing is queued.
	ErrBusy = errors.New("chat: a turn is already in flight")

	// ErrEmptyMessage is returned for whitespace-only input, which is
	// rejected before it reaches the dispatch logic.
	ErrEmptyMessage = errors.New("chat: empty message")
)

const (
	seedMessageID      = "init"
	resetSeedMessageID = "init-reset"

	seedText      = "Hello! I'm the Franklin Bright Smiles virtual assistant. How can I help you with your dental care today?"
	resetSeedText = "History cleared! How can I help you today?"

	cosmeticReplyText = "That's wonderful. Cosmetic dentistry is our specialty. Are you interested in whitening, veneers, or perhaps a full smile makeover?"
	generalReplyText  = "For general care, we provide check-ups, cleanings, and emergency work. Would you like to check our availability?"
)

// historyWindow is how many trailing entries feed the greeting prompt.
const historyWindow = 5

// SessionConfig carries the collaborators and policy for one session.
type SessionConfig struct {
	Assistant *Assistant
	Store     *SessionStore
	Logger    *logging.Logger
	Metrics   *metrics.ChatMetrics

	BookingURL string
	FactsURL   string

	// Pacing is the UX delay before the canned service reply. Zero means
	// no delay.
	Pacing time.Duration

	// Sleep is a test seam; defaults to time.Sleep.
	Sleep func(time.Duration)
}

// Session is the turn dispatcher for one widget visitor. It owns the
// conversational state: the transcript, the dispatch state, and the
// visitor's name once extracted. Presentation state (panel open/closed)
// stays with the render surface.
//
// One turn runs at a time: the turn lock is held for the full dispatch
// cycle, including the remote call, and Busy reports whether a cycle is
// in flight so the surface can disable its input.
type Session struct {
	id  string
	cfg SessionConfig

	mu         sync.Mutex
	busy       atomic.Bool
	transcript *Transcript
	state      DispatchState
	userName   string
	lastSaved  int64
}

// NewSession restores a session from the persistence cache when a fresh
// enough record exists, otherwise starts one with the seed bot message.
func NewSession(ctx context.Context, id string, cfg SessionConfig) *Session {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
	s := &Session{id: id, cfg: cfg}

	if rec, ok := cfg.Store.Load(ctx, id); ok {
		s.transcript = RestoreTranscript(rec.Messages)
		s.state = rec.State
		s.userName = rec.UserName
		s.lastSaved = rec.LastUpdated
		cfg.Logger.Info("chat: session restored",
			"session_id", id,
			"state", s.state.String(),
			"messages", s.transcript.Len(),
		)
		return s
	}

	s.transcript = NewTranscript(seedMessage())
	s.state = StateInitial
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Busy reports whether a dispatch cycle is currently in flight.
func (s *Session) Busy() bool { return s.busy.Load() }

// Snapshot returns the transcript in insertion order.
func (s *Session) Snapshot() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.Snapshot()
}

// State returns the current dispatch state.
func (s *Session) State() DispatchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// UserName returns the extracted visitor name, or "" if none is known.
func (s *Session) UserName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userName
}

// HandleUserMessage runs one full turn for a submitted utterance: append
// the user entry, optionally extract a name, pick the response strategy,
// append the bot entry, and snapshot the session. The appended entries
// are returned in order.
func (s *Session) HandleUserMessage(ctx context.Context, text string) ([]Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if !s.mu.TryLock() {
		return nil, ErrBusy
	}
	s.busy.Store(true)
	defer func() {
		s.busy.Store(false)
		s.mu.Unlock()
	}()
	started := time.Now()

	// Branch rule and prompt context both read the transcript as it
	// stood before this utterance. Choosing the greeting branch by raw
	// length (< 3) as well as by state is a documented rule, not a bug.
	greet := s.state == StateInitial || s.transcript.Len() < 3
	prior := s.transcript.Last(historyWindow)

	user := newMessage(SenderUser, text, nil)
	s.transcript.Append(user)
	appended := []Message{user}

	if s.userName == "" {
		if name, ok := s.cfg.Assistant.ExtractName(ctx, text); ok {
			s.userName = name
			s.cfg.Logger.Info("chat: visitor introduced themselves", "session_id", s.id)
		}
	}

	var bot Message
	var strategy string
	if greet {
		strategy = "greeting"
		reply := s.cfg.Assistant.Greeting(ctx, text, historySummary(prior), s.userName)
		bot = newMessage(SenderBot, reply, serviceButtons())
		s.state = StateGreeted
	} else {
		strategy = "sympathy"
		reply := s.cfg.Assistant.SympatheticReply(ctx, text, s.userName)
		bot = newMessage(SenderBot, reply, s.redirectButtons())
		s.state = StateAwaitingIssue
	}
	s.transcript.Append(bot)
	appended = append(appended, bot)

	s.persistLocked(ctx)
	s.cfg.Metrics.ObserveTurn(strategy, time.Since(started).Seconds())
	return appended, nil
}

// HandleButtonIntent handles a ServiceSelector click: echo the label as a
// user entry, then after the pacing delay append the canned reply for the
// selected service. ExternalRedirect buttons are plain outbound links and
// are ignored here.
func (s *Session) HandleButtonIntent(ctx context.Context, button ButtonInfo) ([]Message, error) {
	if button.Kind != ButtonService {
		return nil, nil
	}
	if !s.mu.TryLock() {
		return nil, ErrBusy
	}
	s.busy.Store(true)
	defer func() {
		s.busy.Store(false)
		s.mu.Unlock()
	}()
	started := time.Now()

	user := newMessage(SenderUser, button.Label, nil)
	s.transcript.Append(user)

	if s.cfg.Pacing > 0 {
		s.cfg.Sleep(s.cfg.Pacing)
	}

	var bot Message
	if button.Payload == PayloadCosmetic {
		bot = newMessage(SenderBot, cosmeticReplyText, []ButtonInfo{
			{Label: "Book Appointment", Payload: s.cfg.BookingURL, Kind: ButtonRedirect},
		})
	} else {
		bot = newMessage(SenderBot, generalReplyText, []ButtonInfo{
			{Label: "View Available Times", Payload: s.cfg.BookingURL, Kind: ButtonRedirect},
		})
	}
	s.transcript.Append(bot)
	s.state = StateServiceSelected

	s.persistLocked(ctx)
	s.cfg.Metrics.ObserveTurn("service", time.Since(started).Seconds())
	return []Message{user, bot}, nil
}

// ResetSession clears the persistence cache and returns the session to
// its reset seed state. Idempotent; waits for any in-flight turn.
func (s *Session) ResetSession(ctx context.Context) Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cfg.Store.Clear(ctx, s.id); err != nil {
		s.cfg.Logger.Warn("chat: session clear failed", "session_id", s.id, "error", err)
	}
	seed := resetSeedMessage()
	s.transcript.Reset(seed)
	s.state = StateInitial
	s.userName = ""
	s.persistLocked(ctx)
	s.cfg.Logger.Info("chat: session reset", "session_id", s.id)
	return seed
}

// persistLocked snapshots the session to the durable slot. Best-effort:
// failures are logged and the live session continues in memory.
func (s *Session) persistLocked(ctx context.Context) {
	rec := SessionRecord{
		Messages:    s.transcript.Snapshot(),
		State:       s.state,
		UserName:    s.userName,
		LastUpdated: s.lastSaved,
	}
	if err := s.cfg.Store.Save(ctx, s.id, &rec); err != nil {
		s.cfg.Logger.Warn("chat: session snapshot failed", "session_id", s.id, "error", err)
		return
	}
	s.lastSaved = rec.LastUpdated
}

func newMessage(sender Sender, text string, buttons []ButtonInfo) Message {
	return Message{ID: uuid.NewString(), Sender: sender, Text: text, Buttons: buttons}
}

func seedMessage() Message {
	return Message{ID: seedMessageID, Sender: SenderBot, Text: seedText, Buttons: serviceButtons()}
}

func resetSeedMessage() Message {
	return Message{ID: resetSeedMessageID, Sender: SenderBot, Text: resetSeedText, Buttons: serviceButtons()}
}

func serviceButtons() []ButtonInfo {
	return []ButtonInfo{
		{Label: "Cosmetic Dentistry", Payload: PayloadCosmetic, Kind: ButtonService},
		{Label: "General Dentistry", Payload: PayloadGeneral, Kind: ButtonService},
	}
}

func (s *Session) redirectButtons() []ButtonInfo {
	return []ButtonInfo{
		{Label: "Book Appointment", Payload: s.cfg.BookingURL, Kind: ButtonRedirect},
		{Label: "Oral Health Facts", Payload: s.cfg.FactsURL, Kind: ButtonRedirect},
	}
}
