package cart

import (
	"context"

	"github.com/angelmondragon/bakehouse-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartRepository defines the persistence surface required by the cart service
// and by the order workflow that clears a cart once payment is confirmed.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	Upsert(ctx context.Context, item *models.CartItem) error
	Remove(ctx context.Context, userID, productID uuid.UUID, variantID string) error
	ClearForUser(ctx context.Context, userID uuid.UUID) (int64, error)
}
