package helpers

import (
	"strings"
	"time"

	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
)

const (
	IdempotencyKeyMinLen = 16
	IdempotencyKeyMaxLen = 128
	DeliveryDateLayout   = "2006-01-02"
)

// ParseDeliverySlot validates the requested delivery window.
func ParseDeliverySlot(raw string) (enums.DeliverySlot, error) {
	slot, err := enums.ParseDeliverySlot(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return "", fieldError("deliverySlot", "must be one of morning, afternoon, evening, midnight")
	}
	return slot, nil
}

// ParseDeliveryDate parses a YYYY-MM-DD date and rejects days before today
// in loc.
func ParseDeliveryDate(raw string, now time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	date, err := time.ParseInLocation(DeliveryDateLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, fieldError("deliveryDate", "must be a YYYY-MM-DD date")
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	if date.Before(today) {
		return time.Time{}, fieldError("deliveryDate", "must not be in the past")
	}
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC), nil
}

// NormalizeIdempotencyKey trims the key and enforces its length. An empty
// key is allowed and returned as nil.
func NormalizeIdempotencyKey(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	key := strings.TrimSpace(*raw)
	if key == "" {
		return nil, nil
	}
	if len(key) < IdempotencyKeyMinLen || len(key) > IdempotencyKeyMaxLen {
		return nil, fieldError("idempotencyKey", "must be 16-128 characters")
	}
	return &key, nil
}

func fieldError(field, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid "+field).WithDetails(map[string]string{field: message})
}
