package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
)

// Order is the aggregate root of the payment-verification workflow. Money
// columns are whole rupees and total is fixed at creation.
type Order struct {
	ID                 uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber        string                   `gorm:"column:order_number;not null;uniqueIndex:ux_orders_order_number"`
	UserID             uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	AddressID          uuid.UUID                `gorm:"column:address_id;type:uuid;not null"`
	Status             enums.OrderStatus        `gorm:"column:status;type:text;not null"`
	PaymentStatus      enums.PaymentStatus      `gorm:"column:payment_status;type:text;not null;index"`
	VerificationStatus enums.VerificationStatus `gorm:"column:verification_status;type:text;not null;index"`
	PaymentID          *string                  `gorm:"column:payment_id;uniqueIndex:ux_orders_payment_id"`
	IdempotencyKey     *string                  `gorm:"column:idempotency_key;uniqueIndex:ux_orders_idempotency_key"`
	Subtotal           int64                    `gorm:"column:subtotal;not null"`
	DeliveryFee        int64                    `gorm:"column:delivery_fee;not null"`
	Tax                int64                    `gorm:"column:tax;not null"`
	Total              int64                    `gorm:"column:total;not null"`
	DeliverySlot       enums.DeliverySlot       `gorm:"column:delivery_slot;type:text;not null"`
	DeliveryDate       time.Time                `gorm:"column:delivery_date;type:date;not null"`
	DeliveryNotes      *string                  `gorm:"column:delivery_notes"`
	GiftMessage        *string                  `gorm:"column:gift_message"`
	IsGift             bool                     `gorm:"column:is_gift;not null"`
	PaidAt             *time.Time               `gorm:"column:paid_at"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`

	Items   []OrderItem `gorm:"foreignKey:OrderID;references:ID"`
	Address *Address    `gorm:"foreignKey:AddressID;references:ID"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem is an immutable line snapshot taken when the order is created.
type OrderItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	VariantID string    `gorm:"column:variant_id;type:text;not null;default:''"`
	Name      string    `gorm:"column:name;not null"`
	Price     int64     `gorm:"column:price;not null"`
	Quantity  int       `gorm:"column:quantity;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
