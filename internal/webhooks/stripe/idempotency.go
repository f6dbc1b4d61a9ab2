package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tutorhub/tutorhub-backend/pkg/redis"
)

const provider = "stripe"

// EventGuard remembers processed event ids so exact redeliveries skip
// reconciliation. Correctness never depends on it.
type EventGuard struct {
	store redis.EventGuardStore
	ttl   time.Duration
}

func NewEventGuard(store redis.EventGuardStore, ttl time.Duration) (*EventGuard, error) {
	if store == nil {
		return nil, errors.New("event guard store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &EventGuard{store: store, ttl: ttl}, nil
}

// CheckAndMark marks eventID and reports whether it had been seen before.
func (g *EventGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	set, err := g.store.SetNX(ctx, g.store.WebhookEventKey(provider, eventID), "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set webhook event key: %w", err)
	}
	return !set, nil
}

// Delete forgets eventID so a resend is processed again.
func (g *EventGuard) Delete(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	return g.store.Del(ctx, g.store.WebhookEventKey(provider, eventID))
}
