// Package idempotency lets Pub/Sub consumers skip redelivered events. A
// processed marker lives at bh:idempotency:evt:processed:<consumer>:<event id>.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type markerStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

var (
	errConsumerRequired = errors.New("consumer name is required")
	errEventIDRequired  = errors.New("event id is required")
)

// Manager marks events processed per consumer for ttl.
type Manager struct {
	store markerStore
	ttl   time.Duration
}

func NewManager(store markerStore, ttl time.Duration) (*Manager, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case ttl < 0:
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// CheckAndMarkProcessed claims eventID for consumer. It reports true when an
// earlier delivery already claimed it.
func (m *Manager) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := m.markerKey(consumer, eventID)
	if err != nil {
		return false, err
	}
	claimed, err := m.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), m.ttl)
	if err != nil {
		return false, err
	}
	return !claimed, nil
}

// Delete releases the claim so a failed handler can see the event again.
func (m *Manager) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := m.markerKey(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) markerKey(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", errConsumerRequired
	}
	if eventID == uuid.Nil {
		return "", errEventIDRequired
	}
	return m.store.IdempotencyKey("evt:processed:"+consumer, eventID.String()), nil
}
