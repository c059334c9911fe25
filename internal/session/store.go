// Package session keeps short-lived conversation context per wa_id in Redis.
// Context is passed explicitly into each pipeline invocation; nothing here is
// process-global, so concurrent conversations cannot cross-contaminate.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vastra-munim/internal/domain/shared"
)

// Context carries what the pipeline remembers about the last exchange with a
// sender. At most one exchange; never a transcript.
type Context struct {
	WaID             string             `json:"wa_id"`
	LastIntent       shared.IntentLabel `json:"last_intent,omitempty"`
	RecentCustomerID *uuid.UUID         `json:"recent_customer_id,omitempty"`
	// PendingChoice holds candidate entity ids offered in a clarification
	// prompt, keyed by the ordinal the user replies with ("1", "2", ...).
	PendingChoice map[string]uuid.UUID `json:"pending_choice,omitempty"`
	// PendingSlot names the slot the choice disambiguates; PendingText is
	// the original utterance, replayed once the choice lands.
	PendingSlot string    `json:"pending_slot,omitempty"`
	PendingText string    `json:"pending_text,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ClearPending drops an unanswered clarification offer
func (c *Context) ClearPending() {
	c.PendingChoice = nil
	c.PendingSlot = ""
	c.PendingText = ""
}

// Store loads and saves conversation context
type Store interface {
	Get(ctx context.Context, waID string) (*Context, error)
	Put(ctx context.Context, sc *Context) error
	Clear(ctx context.Context, waID string) error
}

// RedisStore implements Store over a Redis hash of JSON blobs with TTL
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisStore(logger *slog.Logger, client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func sessionKey(waID string) string {
	return "session:" + waID
}

// Get returns the stored context, or a fresh empty one when the sender has
// no live session
func (s *RedisStore) Get(ctx context.Context, waID string) (*Context, error) {
	data, err := s.client.Get(ctx, sessionKey(waID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &Context{WaID: waID}, nil
		}
		s.logger.Error("Failed to load session", "wa_id", waID, "error", err)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sc Context
	if err := json.Unmarshal(data, &sc); err != nil {
		// A corrupt session is dropped rather than poisoning the pipeline
		s.logger.Warn("Discarding unreadable session", "wa_id", waID, "error", err)
		return &Context{WaID: waID}, nil
	}

	return &sc, nil
}

func (s *RedisStore) Put(ctx context.Context, sc *Context) error {
	sc.UpdatedAt = time.Now()
	data, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.client.Set(ctx, sessionKey(sc.WaID), data, s.ttl).Err(); err != nil {
		s.logger.Error("Failed to save session", "wa_id", sc.WaID, "error", err)
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

func (s *RedisStore) Clear(ctx context.Context, waID string) error {
	if err := s.client.Del(ctx, sessionKey(waID)).Err(); err != nil {
		s.logger.Error("Failed to clear session", "wa_id", waID, "error", err)
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Verify interface implementation
var _ Store = (*RedisStore)(nil)
