// Package pagination implements keyset paging over (created_at, id). Cursors
// are opaque URL-safe strings so they can be echoed back in a query string
// without escaping.
package pagination

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

const cursorSeparator = '|'

var errCursorFormat = errors.New("invalid cursor format")

// Params is a page request as read from ?limit=&cursor=.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor points at the last row of the previous page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// NormalizeLimit maps non-positive limits to DefaultLimit and caps at MaxLimit.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

// LimitWithBuffer fetches one extra row so the caller can tell whether a
// next page exists.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

func EncodeCursor(cursor Cursor) string {
	raw := cursor.CreatedAt.UTC().AppendFormat(nil, time.RFC3339Nano)
	raw = append(raw, cursorSeparator)
	raw = append(raw, cursor.ID.String()...)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// ParseCursor returns nil, nil for an empty cursor (first page).
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	rawTime, rawID, ok := bytes.Cut(raw, []byte{cursorSeparator})
	if !ok {
		return nil, errCursorFormat
	}
	createdAt, err := time.Parse(time.RFC3339Nano, string(rawTime))
	if err != nil {
		return nil, fmt.Errorf("invalid cursor timestamp: %w", err)
	}
	id, err := uuid.ParseBytes(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor id: %w", err)
	}
	return &Cursor{CreatedAt: createdAt, ID: id}, nil
}
