package checkout

import (
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
)

// Violation reasons reported per product.
const (
	ReasonMissing      = "missing"
	ReasonInactive     = "inactive"
	ReasonInsufficient = "insufficient_stock"
)

// AvailabilityInput describes one product's demand against its current row.
// Found is false when the product no longer exists.
type AvailabilityInput struct {
	ProductID    uuid.UUID
	ProductName  string
	Found        bool
	Active       bool
	Stock        int
	RequestedQty int
}

// AvailabilityViolation is returned to callers when a product cannot be sold.
type AvailabilityViolation struct {
	ProductID    uuid.UUID `json:"productId"`
	ProductName  string    `json:"productName,omitempty"`
	Reason       string    `json:"reason"`
	Available    int       `json:"available"`
	RequestedQty int       `json:"requested"`
}

// ValidateAvailability ensures every product is active and has enough stock
// for the requested quantity. Inactive products are reported before stock.
func ValidateAvailability(items []AvailabilityInput) error {
	var violations []AvailabilityViolation
	for _, item := range items {
		violation := AvailabilityViolation{
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			Available:    item.Stock,
			RequestedQty: item.RequestedQty,
		}
		switch {
		case !item.Found:
			violation.Reason = ReasonMissing
			violation.Available = 0
		case !item.Active:
			violation.Reason = ReasonInactive
		case item.Stock < item.RequestedQty:
			violation.Reason = ReasonInsufficient
		default:
			continue
		}
		violations = append(violations, violation)
	}
	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, summarize(violations)).WithDetails(map[string]any{
		"violations": violations,
	})
}

func summarize(violations []AvailabilityViolation) string {
	if len(violations) == 1 {
		v := violations[0]
		switch v.Reason {
		case ReasonInsufficient:
			return fmt.Sprintf("insufficient stock for %s: %d available, %d requested", v.ProductName, v.Available, v.RequestedQty)
		case ReasonInactive:
			return fmt.Sprintf("product %s is no longer available", v.ProductName)
		}
		return "a product in the cart no longer exists"
	}
	return fmt.Sprintf("%d cart item(s) are unavailable", len(violations))
}
