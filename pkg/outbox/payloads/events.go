package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
)

// OrderCreatedEvent is emitted once per order when checkout commits.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      uuid.UUID `json:"user_id"`
	Total       int64     `json:"total"`
	ItemCount   int       `json:"item_count"`
}

// OrderPaymentSubmittedEvent carries what the operator needs to audit a
// customer-submitted UPI transaction id.
type OrderPaymentSubmittedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	UserID        uuid.UUID           `json:"user_id"`
	TransactionID string              `json:"transaction_id"`
	Total         int64               `json:"total"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	SubmittedAt   time.Time           `json:"submitted_at"`
}

// OrderPaymentReviewedEvent records an approve or reject decision.
type OrderPaymentReviewedEvent struct {
	OrderID            uuid.UUID                `json:"order_id"`
	OrderNumber        string                   `json:"order_number"`
	Action             enums.ReviewAction       `json:"action"`
	Channel            enums.ReviewChannel      `json:"channel"`
	PreviousStatus     enums.PaymentStatus      `json:"previous_status"`
	PaymentStatus      enums.PaymentStatus      `json:"payment_status"`
	VerificationStatus enums.VerificationStatus `json:"verification_status"`
	ReviewedAt         time.Time                `json:"reviewed_at"`
}
