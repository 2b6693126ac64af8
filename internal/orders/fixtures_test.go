package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/bakehouse-backend/pkg/db/models"
	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:orders_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

type orderFixture struct {
	user    uuid.UUID
	product models.Product
	address models.Address
	order   models.Order
}

func seedOrder(t *testing.T, db *gorm.DB, userID uuid.UUID, number string, createdAt time.Time) orderFixture {
	t.Helper()
	product := models.Product{Name: "Chocolate truffle", Price: 300, Stock: 10, IsActive: true}
	require.NoError(t, db.Create(&product).Error)
	address := models.Address{
		UserID:        userID,
		RecipientName: "Asha",
		Phone:         "9999999999",
		Line1:         "12 Residency Road",
		City:          "Bengaluru",
		State:         "KA",
		PostalCode:    "560025",
	}
	require.NoError(t, db.Create(&address).Error)

	order := models.Order{
		OrderNumber:        number,
		UserID:             userID,
		AddressID:          address.ID,
		Status:             enums.OrderStatusPending,
		PaymentStatus:      enums.PaymentStatusPending,
		VerificationStatus: enums.VerificationUnsubmitted,
		Subtotal:           600,
		Tax:                30,
		Total:              630,
		DeliverySlot:       enums.DeliverySlotEvening,
		DeliveryDate:       createdAt.AddDate(0, 0, 2).Truncate(24 * time.Hour),
		CreatedAt:          createdAt,
		Items: []models.OrderItem{
			{ProductID: product.ID, Name: product.Name, Price: 300, Quantity: 2},
		},
	}
	require.NoError(t, NewRepository(db).Create(context.Background(), &order))
	return orderFixture{user: userID, product: product, address: address, order: order}
}

func addCartLine(t *testing.T, db *gorm.DB, userID, productID uuid.UUID, qty int) {
	t.Helper()
	require.NoError(t, db.Create(&models.CartItem{UserID: userID, ProductID: productID, Quantity: qty}).Error)
}

func countCart(t *testing.T, db *gorm.DB, userID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func loadOrder(t *testing.T, db *gorm.DB, id uuid.UUID) models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, db.Where("id = ?", id).First(&order).Error)
	return order
}

// requirePaidInvariant checks PAID implies CONFIRMED with paidAt set, and
// that FAILED never keeps paidAt.
func requirePaidInvariant(t *testing.T, order models.Order) {
	t.Helper()
	switch order.PaymentStatus {
	case enums.PaymentStatusPaid:
		require.Equal(t, enums.OrderStatusConfirmed, order.Status)
		require.NotNil(t, order.PaidAt)
	case enums.PaymentStatusFailed:
		require.Nil(t, order.PaidAt)
	}
}
