package reservation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
)

// StockClaimer performs a guarded stock decrement for one product. It
// reports false when the product is inactive or short of stock.
type StockClaimer interface {
	ClaimStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error)
}

// InventoryClaimRequest is the quantity one order takes from a product.
type InventoryClaimRequest struct {
	ProductID   uuid.UUID
	ProductName string
	Qty         int
}

// ClaimInventory decrements stock for every request using claimer, which
// must be bound to the order's transaction. The first rejected claim aborts
// with a state conflict; the caller's rollback undoes earlier claims.
func ClaimInventory(ctx context.Context, claimer StockClaimer, requests []InventoryClaimRequest) error {
	for _, req := range requests {
		if req.ProductID == uuid.Nil || req.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid inventory claim")
		}
	}
	for _, req := range requests {
		ok, err := claimer.ClaimStock(ctx, req.ProductID, req.Qty)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "claim stock")
		}
		if !ok {
			name := req.ProductName
			if name == "" {
				name = req.ProductID.String()
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("insufficient stock for %s", name)).
				WithDetails(map[string]any{"productId": req.ProductID, "requested": req.Qty})
		}
	}
	return nil
}
