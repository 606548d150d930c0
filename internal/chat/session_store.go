package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/franklinsmiles/webchat/pkg/logging"
)

const sessionKeyPrefix = "webchat_session:"

// FreshnessWindow is the maximum age at which a persisted session is
// still restored. Older records are treated as absent.
const FreshnessWindow = 24 * time.Hour

// sessionSlotTTL keeps abandoned slots from accumulating in Redis.
// Staleness is decided by the explicit freshness check in Load, not by
// this TTL, so the record stays readable well past the window.
const sessionSlotTTL = 7 * 24 * time.Hour

// SessionStore serializes Session Records to a single durable slot per
// session. Persistence is best-effort: a live session never depends on
// it for correctness, so read and write failures are logged and
// swallowed rather than propagated.
type SessionStore struct {
	redis  *redis.Client
	logger *logging.Logger
	tracer trace.Tracer
	now    func() time.Time
}

func NewSessionStore(redisClient *redis.Client, logger *logging.Logger) *SessionStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &SessionStore{
		redis:  redisClient,
		logger: logger,
		tracer: otel.Tracer("webchat.internal.chat.session_store"),
		now:    time.Now,
	}
}

// Load reads the durable slot. ok is false when the slot is absent,
// malformed, holds an empty transcript, or is older than the freshness
// window; the caller then starts a fresh session.
func (s *SessionStore) Load(ctx context.Context, sessionID string) (SessionRecord, bool) {
	if s == nil || s.redis == nil {
		return SessionRecord{}, false
	}
	ctx, span := s.tracer.Start(ctx, "chat.session_store.load")
	defer span.End()

	data, err := s.redis.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			span.RecordError(err)
			s.logger.Warn("chat: session load failed", "session_id", sessionID, "error", err)
		}
		return SessionRecord{}, false
	}

	var rec SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		span.RecordError(err)
		s.logger.Warn("chat: discarding malformed session record", "session_id", sessionID, "error", err)
		return SessionRecord{}, false
	}

	if len(rec.Messages) == 0 {
		return SessionRecord{}, false
	}
	age := s.now().UTC().Sub(time.UnixMilli(rec.LastUpdated))
	if age >= FreshnessWindow {
		s.logger.Info("chat: session record expired", "session_id", sessionID, "age", age.String())
		return SessionRecord{}, false
	}
	return rec, true
}

// Save overwrites the durable slot with the full record. LastUpdated is
// bumped past its previous value so persisted writes are strictly
// increasing even when the wall clock repeats a millisecond.
func (s *SessionStore) Save(ctx context.Context, sessionID string, rec *SessionRecord) error {
	if s == nil || s.redis == nil {
		return nil
	}
	ctx, span := s.tracer.Start(ctx, "chat.session_store.save")
	defer span.End()

	next := s.now().UTC().UnixMilli()
	if next <= rec.LastUpdated {
		next = rec.LastUpdated + 1
	}
	rec.LastUpdated = next

	data, err := json.Marshal(rec)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: marshal session record: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(sessionID), data, sessionSlotTTL).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: persist session record: %w", err)
	}
	return nil
}

// Clear deletes the durable slot entirely.
func (s *SessionStore) Clear(ctx context.Context, sessionID string) error {
	if s == nil || s.redis == nil {
		return nil
	}
	ctx, span := s.tracer.Start(ctx, "chat.session_store.clear")
	defer span.End()

	if err := s.redis.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: clear session record: %w", err)
	}
	return nil
}

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}
