package helpers

import "github.com/shopspring/decimal"

// Pricing holds the delivery and tax rules. Amounts are whole rupees.
type Pricing struct {
	FreeDeliveryThreshold int64
	DeliveryFee           int64
	TaxRate               decimal.Decimal
}

// Totals are the money columns of a new order.
type Totals struct {
	Subtotal    int64
	DeliveryFee int64
	Tax         int64
	Total       int64
}

// Quote prices a subtotal. Delivery is free at or above the threshold and tax
// is subtotal*rate rounded half up to a whole rupee.
func (p Pricing) Quote(subtotal int64) Totals {
	totals := Totals{Subtotal: subtotal}
	if subtotal < p.FreeDeliveryThreshold {
		totals.DeliveryFee = p.DeliveryFee
	}
	totals.Tax = decimal.NewFromInt(subtotal).Mul(p.TaxRate).Round(0).IntPart()
	totals.Total = totals.Subtotal + totals.DeliveryFee + totals.Tax
	return totals
}
