package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrAlreadyProcessed is returned by Run when another delivery of the event
// already claimed it.
var ErrAlreadyProcessed = errors.New("event already processed")

// Store is the slice of the redis client the manager needs.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Manager claims event ids per consumer so at-least-once deliveries are
// handled once. Keys look like <prefix>:idempotency:evt:processed:<consumer>:<event_id>.
type Manager struct {
	store Store
	ttl   time.Duration
}

// NewManager builds a manager whose claims expire after ttl. Zero keeps them forever.
func NewManager(store Store, ttl time.Duration) (*Manager, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case ttl < 0:
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// Claim reports whether this call won the event. False means a previous
// delivery already claimed it.
func (m *Manager) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	won, err := m.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), m.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return won, nil
}

// Release drops the claim so a redelivery can try again.
func (m *Manager) Release(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

// Run claims the event and executes fn once. A failing fn releases the claim;
// a failed release is joined onto fn's error.
func (m *Manager) Run(ctx context.Context, consumer string, eventID uuid.UUID, fn func(context.Context) error) error {
	won, err := m.Claim(ctx, consumer, eventID)
	if err != nil {
		return err
	}
	if !won {
		return ErrAlreadyProcessed
	}

	runErr := fn(ctx)
	if runErr == nil {
		return nil
	}
	if err := m.Release(ctx, consumer, eventID); err != nil {
		return errors.Join(runErr, fmt.Errorf("release idempotency key: %w", err))
	}
	return runErr
}

func (m *Manager) key(consumer string, eventID uuid.UUID) (string, error) {
	consumer = strings.TrimSpace(consumer)
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey("evt:processed:"+consumer, eventID.String()), nil
}
