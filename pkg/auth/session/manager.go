// Package session keeps one refresh token per issued access token in Redis,
// keyed by the access token's jti. Revoking the key logs the access token out
// as well, because the auth middleware checks it on every request.
package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/bakehouse-backend/pkg/config"
	redisclient "github.com/angelmondragon/bakehouse-backend/pkg/redis"
)

const refreshTokenBytes = 32

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	errMissingAccessID     = errors.New("access id is required")
)

type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type Manager struct {
	store store
	ttl   time.Duration
}

// NewManager requires a refresh TTL longer than the access token lifetime.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	refreshTTL := cfg.RefreshTokenTTL()
	accessTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute
	switch {
	case refreshTTL <= 0:
		return nil, errors.New("refresh token ttl must be positive")
	case refreshTTL <= accessTTL:
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", refreshTTL, accessTTL)
	}
	return &Manager{store: client, ttl: refreshTTL}, nil
}

// NewAccessID produces the identifier used as the JWT jti and Redis key.
func NewAccessID() string {
	return uuid.NewString()
}

// record is the stored value: the owning user and the refresh token.
type record struct {
	userID uuid.UUID
	token  string
}

func (r record) String() string {
	return r.userID.String() + "|" + r.token
}

func parseRecord(value string) (record, bool) {
	rawID, token, ok := strings.Cut(value, "|")
	if !ok || token == "" {
		return record{}, false
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return record{}, false
	}
	return record{userID: id, token: token}, true
}

// Generate issues a refresh token for accessID owned by userID.
func (m *Manager) Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error) {
	if strings.TrimSpace(accessID) == "" {
		return "", errMissingAccessID
	}
	if userID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	rec, err := m.issue(ctx, accessID, userID)
	if err != nil {
		return "", err
	}
	return rec.token, nil
}

// Rotate exchanges a refresh token for a new access id and refresh token.
// The old session is deleted before the new one is written, so a refresh
// token works at most once.
func (m *Manager) Rotate(ctx context.Context, oldAccessID string, userID uuid.UUID, provided string) (string, string, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return "", "", ErrInvalidRefreshToken
	}

	oldKey := m.store.AccessSessionKey(oldAccessID)
	raw, err := m.store.Get(ctx, oldKey)
	if errors.Is(err, redislib.Nil) {
		return "", "", ErrInvalidRefreshToken
	}
	if err != nil {
		return "", "", err
	}

	current, ok := parseRecord(raw)
	if !ok || current.userID != userID || subtle.ConstantTimeCompare([]byte(current.token), []byte(provided)) != 1 {
		return "", "", ErrInvalidRefreshToken
	}
	if err := m.store.Del(ctx, oldKey); err != nil {
		return "", "", err
	}

	newAccessID := NewAccessID()
	next, err := m.issue(ctx, newAccessID, userID)
	if err != nil {
		return "", "", err
	}
	return newAccessID, next.token, nil
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errMissingAccessID
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}

// HasSession reports whether accessID has not been revoked or rotated away.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, errMissingAccessID
	}
	_, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID))
	switch {
	case errors.Is(err, redislib.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func (m *Manager) issue(ctx context.Context, accessID string, userID uuid.UUID) (record, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return record{}, fmt.Errorf("generating refresh token: %w", err)
	}
	rec := record{userID: userID, token: base64.RawURLEncoding.EncodeToString(buf)}
	if err := m.store.Set(ctx, m.store.AccessSessionKey(accessID), rec.String(), m.ttl); err != nil {
		return record{}, fmt.Errorf("store session: %w", err)
	}
	return rec, nil
}
