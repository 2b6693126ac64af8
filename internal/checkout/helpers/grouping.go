package helpers

import (
	"github.com/angelmondragon/bakehouse-backend/pkg/db/models"
	"github.com/google/uuid"
)

// ProductDemand is the total quantity a cart asks of one product across all
// of its variants.
type ProductDemand struct {
	ProductID uuid.UUID
	Quantity  int
}

// GroupCartItemsByProduct sums cart quantities per product, keeping the order
// in which products first appear in the cart.
func GroupCartItemsByProduct(items []models.CartItem) []ProductDemand {
	index := make(map[uuid.UUID]int, len(items))
	demand := make([]ProductDemand, 0, len(items))
	for _, item := range items {
		if i, ok := index[item.ProductID]; ok {
			demand[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(demand)
		demand = append(demand, ProductDemand{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return demand
}

// ProductIDs lists the distinct products of the demand.
func ProductIDs(demand []ProductDemand) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(demand))
	for _, d := range demand {
		ids = append(ids, d.ProductID)
	}
	return ids
}

// BuildOrderItems snapshots the cart at current product names and prices.
// Every product must be present in products.
func BuildOrderItems(items []models.CartItem, products map[uuid.UUID]models.Product) ([]models.OrderItem, int64) {
	out := make([]models.OrderItem, 0, len(items))
	var subtotal int64
	for _, item := range items {
		product := products[item.ProductID]
		out = append(out, models.OrderItem{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  item.Quantity,
		})
		subtotal += product.Price * int64(item.Quantity)
	}
	return out, subtotal
}
