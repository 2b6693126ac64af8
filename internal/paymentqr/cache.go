package paymentqr

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entry is a rendered payment QR kept to avoid re-encoding the same image.
type Entry struct {
	QRCodeDataURL string    `json:"qrCodeDataUrl"`
	UPILink       string    `json:"upiLink"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Cache stores rendered entries for a bounded time. Implementations must be
// safe for concurrent use. A miss is (Entry{}, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CacheKey is "<orderId>_<total>", so a changed amount never hits an old image.
func CacheKey(orderID uuid.UUID, total int64) string {
	return fmt.Sprintf("%s_%d", orderID, total)
}
