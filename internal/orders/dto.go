package orders

import (
	"time"

	"github.com/angelmondragon/bakehouse-backend/pkg/db/models"
	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
	"github.com/google/uuid"
)

// DeliveryDateLayout is the wire format of deliveryDate.
const DeliveryDateLayout = "2006-01-02"

type OrderItemView struct {
	ProductID uuid.UUID `json:"productId"`
	VariantID string    `json:"variantId,omitempty"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	Quantity  int       `json:"quantity"`
}

// OrderView is the order representation returned by every order endpoint.
type OrderView struct {
	ID                 uuid.UUID                `json:"id"`
	OrderNumber        string                   `json:"orderNumber"`
	Status             enums.OrderStatus        `json:"status"`
	PaymentStatus      enums.PaymentStatus      `json:"paymentStatus"`
	VerificationStatus enums.VerificationStatus `json:"verificationStatus"`
	PaymentID          *string                  `json:"paymentId,omitempty"`
	Subtotal           int64                    `json:"subtotal"`
	DeliveryFee        int64                    `json:"deliveryFee"`
	Tax                int64                    `json:"tax"`
	Total              int64                    `json:"total"`
	DeliverySlot       enums.DeliverySlot       `json:"deliverySlot"`
	DeliveryDate       string                   `json:"deliveryDate"`
	DeliveryNotes      *string                  `json:"deliveryNotes,omitempty"`
	GiftMessage        *string                  `json:"giftMessage,omitempty"`
	IsGift             bool                     `json:"isGift"`
	PaidAt             *time.Time               `json:"paidAt,omitempty"`
	CreatedAt          time.Time                `json:"createdAt"`
	Items              []OrderItemView          `json:"items"`
	Address            *models.Address          `json:"address,omitempty"`
}

// NewOrderView maps a loaded order (with items and address preloaded).
func NewOrderView(order *models.Order) *OrderView {
	if order == nil {
		return nil
	}
	view := &OrderView{
		ID:                 order.ID,
		OrderNumber:        order.OrderNumber,
		Status:             order.Status,
		PaymentStatus:      order.PaymentStatus,
		VerificationStatus: order.VerificationStatus,
		PaymentID:          order.PaymentID,
		Subtotal:           order.Subtotal,
		DeliveryFee:        order.DeliveryFee,
		Tax:                order.Tax,
		Total:              order.Total,
		DeliverySlot:       order.DeliverySlot,
		DeliveryDate:       order.DeliveryDate.Format(DeliveryDateLayout),
		DeliveryNotes:      order.DeliveryNotes,
		GiftMessage:        order.GiftMessage,
		IsGift:             order.IsGift,
		PaidAt:             order.PaidAt,
		CreatedAt:          order.CreatedAt,
		Address:            order.Address,
		Items:              make([]OrderItemView, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, OrderItemView{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}
	return view
}

// OrderListView wraps a page of orders plus the next page cursor.
type OrderListView struct {
	Orders     []OrderView `json:"orders"`
	NextCursor string      `json:"nextCursor,omitempty"`
}

func newOrderListView(page *OrderPage) *OrderListView {
	list := &OrderListView{Orders: make([]OrderView, 0, len(page.Orders))}
	for i := range page.Orders {
		list.Orders = append(list.Orders, *NewOrderView(&page.Orders[i]))
	}
	list.NextCursor = page.NextCursor
	return list
}

// SubmitPaymentInput is the customer's transaction-id claim. OrderRef is
// either the order id or its order number.
type SubmitPaymentInput struct {
	UserID        uuid.UUID
	OrderRef      string
	TransactionID string
}

type SubmitPaymentResult struct {
	Order            *OrderView
	AlreadySubmitted bool
	Message          string
}

// ReviewInput is an operator decision arriving through one channel.
type ReviewInput struct {
	OrderID     uuid.UUID
	Action      enums.ReviewAction
	Channel     enums.ReviewChannel
	ActorUserID *uuid.UUID
}

// ReviewOutcome describes what a review request did.
type ReviewOutcome string

const (
	OutcomeApproved         ReviewOutcome = "approved"
	OutcomeRejected         ReviewOutcome = "rejected"
	OutcomeAlreadyConfirmed ReviewOutcome = "already_confirmed"
	OutcomeAlreadyRejected  ReviewOutcome = "already_rejected"
	OutcomeNotReviewable    ReviewOutcome = "not_reviewable"
)

type ReviewResult struct {
	Outcome ReviewOutcome
	Action  enums.ReviewAction
	Order   *OrderView
}

// Applied reports whether the review changed the order.
func (r *ReviewResult) Applied() bool {
	return r != nil && (r.Outcome == OutcomeApproved || r.Outcome == OutcomeRejected)
}
