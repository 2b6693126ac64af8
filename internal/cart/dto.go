package cart

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/bakehouse-backend/pkg/db/models"
)

type CartItemView struct {
	ProductID uuid.UUID `json:"productId"`
	VariantID string    `json:"variantId,omitempty"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	Quantity  int       `json:"quantity"`
	LineTotal int64     `json:"lineTotal"`
	Available bool      `json:"available"`
}

// CartView is the priced cart. Subtotal uses current product prices; the
// order freezes them at creation.
type CartView struct {
	Items    []CartItemView `json:"items"`
	Subtotal int64          `json:"subtotal"`
}

func NewCartView(items []models.CartItem) *CartView {
	view := &CartView{Items: make([]CartItemView, 0, len(items))}
	for _, item := range items {
		line := CartItemView{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		}
		if item.Product != nil {
			line.Name = item.Product.Name
			line.Price = item.Product.Price
			line.LineTotal = item.Product.Price * int64(item.Quantity)
			line.Available = item.Product.IsActive && item.Product.Stock >= item.Quantity
		}
		view.Subtotal += line.LineTotal
		view.Items = append(view.Items, line)
	}
	return view
}
