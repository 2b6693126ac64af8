package helpers

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bakehouse-backend/pkg/db/models"
	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
)

var defaultPricing = Pricing{
	FreeDeliveryThreshold: 500,
	DeliveryFee:           50,
	TaxRate:               decimal.RequireFromString("0.05"),
}

func TestQuote(t *testing.T) {
	cases := []struct {
		subtotal int64
		want     Totals
	}{
		{600, Totals{Subtotal: 600, DeliveryFee: 0, Tax: 30, Total: 630}},
		{400, Totals{Subtotal: 400, DeliveryFee: 50, Tax: 20, Total: 470}},
		{500, Totals{Subtotal: 500, DeliveryFee: 0, Tax: 25, Total: 525}},
		{10, Totals{Subtotal: 10, DeliveryFee: 50, Tax: 1, Total: 61}},
		{9, Totals{Subtotal: 9, DeliveryFee: 50, Tax: 0, Total: 59}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, defaultPricing.Quote(tc.subtotal), "subtotal %d", tc.subtotal)
	}
}

func TestGroupCartItemsByProduct(t *testing.T) {
	cake := uuid.New()
	bread := uuid.New()
	items := []models.CartItem{
		{ProductID: cake, Quantity: 1},
		{ProductID: bread, Quantity: 3},
		{ProductID: cake, VariantID: "eggless", Quantity: 2},
	}
	demand := GroupCartItemsByProduct(items)
	require.Len(t, demand, 2)
	assert.Equal(t, ProductDemand{ProductID: cake, Quantity: 3}, demand[0])
	assert.Equal(t, ProductDemand{ProductID: bread, Quantity: 3}, demand[1])
	assert.Equal(t, []uuid.UUID{cake, bread}, ProductIDs(demand))
}

func TestBuildOrderItemsSnapshotsPrices(t *testing.T) {
	cake := uuid.New()
	products := map[uuid.UUID]models.Product{cake: {ID: cake, Name: "Truffle", Price: 300}}
	items, subtotal := BuildOrderItems([]models.CartItem{{ProductID: cake, VariantID: "1kg", Quantity: 2}}, products)
	require.Len(t, items, 1)
	assert.Equal(t, int64(600), subtotal)
	assert.Equal(t, "Truffle", items[0].Name)
	assert.Equal(t, "1kg", items[0].VariantID)
	assert.Equal(t, int64(300), items[0].Price)
}

func TestParseDeliveryDate(t *testing.T) {
	now := time.Date(2026, 5, 10, 23, 0, 0, 0, time.UTC)

	got, err := ParseDeliveryDate("2026-05-10", now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseDeliveryDate("2026-05-09", now, time.UTC)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = ParseDeliveryDate("10/05/2026", now, time.UTC)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	// 23:00 UTC is already the 11th in India.
	kolkata := time.FixedZone("IST", 5*3600+1800)
	_, err = ParseDeliveryDate("2026-05-10", now, kolkata)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseDeliverySlot(t *testing.T) {
	slot, err := ParseDeliverySlot(" Midnight ")
	require.NoError(t, err)
	assert.Equal(t, enums.DeliverySlotMidnight, slot)

	_, err = ParseDeliverySlot("brunch")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestNormalizeIdempotencyKey(t *testing.T) {
	key, err := NormalizeIdempotencyKey(nil)
	require.NoError(t, err)
	assert.Nil(t, key)

	blank := "   "
	key, err = NormalizeIdempotencyKey(&blank)
	require.NoError(t, err)
	assert.Nil(t, key)

	valid := " checkout-2026-05-10-a1 "
	key, err = NormalizeIdempotencyKey(&valid)
	require.NoError(t, err)
	require.NotNil(t, key)
	assert.Equal(t, "checkout-2026-05-10-a1", *key)

	short := "too-short"
	_, err = NormalizeIdempotencyKey(&short)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
