package orders

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bakehouse-backend/internal/cart"
	dbpkg "github.com/angelmondragon/bakehouse-backend/pkg/db"
	"github.com/angelmondragon/bakehouse-backend/pkg/db/models"
	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
	"github.com/angelmondragon/bakehouse-backend/pkg/logger"
	"github.com/angelmondragon/bakehouse-backend/pkg/metrics"
	"github.com/angelmondragon/bakehouse-backend/pkg/outbox"
	"github.com/angelmondragon/bakehouse-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/bakehouse-backend/pkg/pagination"
)

// PaymentIDConstraint is the unique index backing transaction-id uniqueness.
const PaymentIDConstraint = "ux_orders_payment_id"

var transactionIDPattern = regexp.MustCompile(`^[A-Z0-9]{12,16}$`)

// NormalizeTransactionID trims and upper-cases a UPI transaction id.
func NormalizeTransactionID(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ValidTransactionID reports whether a normalized id has the accepted shape.
func ValidTransactionID(id string) bool {
	return transactionIDPattern.MatchString(id)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service owns the payment state machine of an order.
type Service interface {
	SubmitPayment(ctx context.Context, input SubmitPaymentInput) (*SubmitPaymentResult, error)
	Review(ctx context.Context, input ReviewInput) (*ReviewResult, error)
	GetForUser(ctx context.Context, userID uuid.UUID, ref string) (*OrderView, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderListView, error)
	ListAwaitingReview(ctx context.Context, params pagination.Params) (*OrderListView, error)
}

// Options tunes the payment workflow.
type Options struct {
	// TrustOnSubmit marks an order paid as soon as the customer submits a
	// transaction id. The operator review remains the audit either way.
	TrustOnSubmit bool
	Now           func() time.Time
}

type service struct {
	repo    Repository
	carts   cart.CartRepository
	tx      txRunner
	outbox  outboxPublisher
	metrics *metrics.OrderMetrics
	logg    *logger.Logger
	opts    Options
}

// NewService builds the order payment service with the required dependencies.
func NewService(
	repo Repository,
	carts cart.CartRepository,
	tx txRunner,
	publisher outboxPublisher,
	orderMetrics *metrics.OrderMetrics,
	logg *logger.Logger,
	opts Options,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &service{
		repo:    repo,
		carts:   carts,
		tx:      tx,
		outbox:  publisher,
		metrics: orderMetrics,
		logg:    logg,
		opts:    opts,
	}, nil
}

func (s *service) SubmitPayment(ctx context.Context, input SubmitPaymentInput) (*SubmitPaymentResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	txnID := NormalizeTransactionID(input.TransactionID)
	if !ValidTransactionID(txnID) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction id").
			WithDetails(map[string]string{"upiTransactionId": "must be 12-16 uppercase letters or digits"})
	}

	var (
		orderID          uuid.UUID
		alreadySubmitted bool
		from, to         enums.PaymentStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		resolved, err := ResolveRef(ctx, repo, input.OrderRef, true)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
		}
		if !resolved.Found() || resolved.Order.UserID != input.UserID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		order := resolved.Order
		orderID = order.ID
		from = order.PaymentStatus

		if order.PaymentID != nil && *order.PaymentID == txnID {
			alreadySubmitted = true
			return nil
		}
		if order.PaymentStatus == enums.PaymentStatusPaid {
			return s.reject("submit_payment", "already_paid",
				pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid"))
		}
		if !order.PaymentStatus.AcceptsTransactionID() {
			return s.reject("submit_payment", "awaiting_review",
				pkgerrors.Newf(pkgerrors.CodeStateConflict, "payment is %s; a transaction id was already submitted", order.PaymentStatus))
		}

		other, err := repo.FindByPaymentID(ctx, txnID)
		switch {
		case err == nil && other.ID != order.ID:
			return s.reject("submit_payment", "transaction_id_in_use", errTransactionIDInUse())
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check transaction id")
		}

		now := s.opts.Now().UTC()
		updates := map[string]any{
			"payment_id":          txnID,
			"verification_status": enums.VerificationAwaitingReview,
			"updated_at":          now,
		}
		to = enums.PaymentStatusVerificationPending
		if s.opts.TrustOnSubmit {
			to = enums.PaymentStatusPaid
			updates["status"] = enums.OrderStatusConfirmed
			updates["paid_at"] = now
		}
		updates["payment_status"] = to

		if err := repo.UpdateFields(ctx, order.ID, updates); err != nil {
			if dbpkg.IsUniqueViolation(err, PaymentIDConstraint) {
				return s.reject("submit_payment", "transaction_id_in_use", errTransactionIDInUse())
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order payment")
		}
		if s.opts.TrustOnSubmit {
			if _, err := s.carts.WithTx(tx).ClearForUser(ctx, order.UserID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaymentSubmitted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: &input.UserID, Role: string(enums.UserRoleCustomer)},
			OccurredAt:    now,
			Data: payloads.OrderPaymentSubmittedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				UserID:        order.UserID,
				TransactionID: txnID,
				Total:         order.Total,
				PaymentStatus: to,
				SubmittedAt:   now,
			},
		})
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, PaymentIDConstraint) {
			return nil, s.reject("submit_payment", "transaction_id_in_use", errTransactionIDInUse())
		}
		return nil, err
	}

	if !alreadySubmitted {
		s.transitioned(ctx, orderID, enums.ReviewChannelCustomer, from, to)
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
	}
	result := &SubmitPaymentResult{
		Order:            NewOrderView(order),
		AlreadySubmitted: alreadySubmitted,
		Message:          "Payment submitted for verification",
	}
	switch {
	case alreadySubmitted:
		result.Message = "Transaction id already submitted for this order"
	case to == enums.PaymentStatusPaid:
		result.Message = "Payment received; your order is confirmed"
	}
	return result, nil
}

// Review applies an operator decision. Requests that cannot change the order
// return a non-applied result rather than an error so each channel can decide
// how to present it.
func (s *service) Review(ctx context.Context, input ReviewInput) (*ReviewResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "action must be approve or reject")
	}

	result := &ReviewResult{Action: input.Action}
	var from, to enums.PaymentStatus
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
		}
		from = order.PaymentStatus

		result.Outcome = reviewGate(order, input.Action)
		if !result.Applied() {
			return nil
		}

		now := s.opts.Now().UTC()
		updates := map[string]any{"updated_at": now}
		var verification enums.VerificationStatus
		if input.Action == enums.ReviewActionApprove {
			to = enums.PaymentStatusPaid
			verification = enums.VerificationApproved
			updates["status"] = enums.OrderStatusConfirmed
			if order.PaidAt == nil {
				updates["paid_at"] = now
			}
		} else {
			to = enums.PaymentStatusFailed
			verification = enums.VerificationRejected
			updates["status"] = enums.OrderStatusPending
			updates["payment_id"] = nil
			updates["paid_at"] = nil
		}
		updates["payment_status"] = to
		updates["verification_status"] = verification

		if err := repo.UpdateFields(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order review")
		}
		if input.Action == enums.ReviewActionApprove {
			if _, err := s.carts.WithTx(tx).ClearForUser(ctx, order.UserID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
			}
		}

		var actor *outbox.ActorRef
		if input.ActorUserID != nil {
			actor = &outbox.ActorRef{UserID: input.ActorUserID, Role: string(enums.UserRoleAdmin)}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaymentReviewed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			OccurredAt:    now,
			Data: payloads.OrderPaymentReviewedEvent{
				OrderID:            order.ID,
				OrderNumber:        order.OrderNumber,
				Action:             input.Action,
				Channel:            input.Channel,
				PreviousStatus:     from,
				PaymentStatus:      to,
				VerificationStatus: verification,
				ReviewedAt:         now,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if result.Applied() {
		s.transitioned(ctx, input.OrderID, input.Channel, from, to)
	} else {
		s.metrics.IncRejection("review_"+string(input.Action), string(result.Outcome))
	}

	order, err := s.repo.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
	}
	result.Order = NewOrderView(order)
	return result, nil
}

// reviewGate decides what a review action does to an order in its current
// state. Only claims awaiting review can change.
func reviewGate(order *models.Order, action enums.ReviewAction) ReviewOutcome {
	if order.VerificationStatus == enums.VerificationAwaitingReview {
		if action == enums.ReviewActionApprove {
			return OutcomeApproved
		}
		return OutcomeRejected
	}
	if action == enums.ReviewActionApprove {
		if order.VerificationStatus == enums.VerificationApproved {
			return OutcomeAlreadyConfirmed
		}
		return OutcomeNotReviewable
	}
	if order.VerificationStatus == enums.VerificationRejected || order.PaymentStatus == enums.PaymentStatusFailed {
		return OutcomeAlreadyRejected
	}
	return OutcomeNotReviewable
}

// ConflictError turns a non-applied review into the STATE_CONFLICT returned to
// API callers. It returns nil when the review was applied.
func (r *ReviewResult) ConflictError() error {
	if r == nil || r.Applied() {
		return nil
	}
	status := enums.PaymentStatus("")
	if r.Order != nil {
		status = r.Order.PaymentStatus
	}
	switch r.Outcome {
	case OutcomeAlreadyConfirmed:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment already approved")
	case OutcomeAlreadyRejected:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment already rejected")
	}
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot %s payment with status %s", r.Action, status).
		WithDetails(map[string]any{"paymentStatus": status})
}

func (s *service) GetForUser(ctx context.Context, userID uuid.UUID, ref string) (*OrderView, error) {
	resolved, err := ResolveRef(ctx, s.repo, ref, false)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if !resolved.Found() || resolved.Order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return NewOrderView(resolved.Order), nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderListView, error) {
	if err := validateCursor(params); err != nil {
		return nil, err
	}
	page, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return newOrderListView(page), nil
}

func (s *service) ListAwaitingReview(ctx context.Context, params pagination.Params) (*OrderListView, error) {
	if err := validateCursor(params); err != nil {
		return nil, err
	}
	page, err := s.repo.ListAwaitingReview(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list review queue")
	}
	return newOrderListView(page), nil
}

func validateCursor(params pagination.Params) error {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return nil
}

func errTransactionIDInUse() error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "transaction id already used")
}

func (s *service) reject(operation, reason string, err error) error {
	s.metrics.IncRejection(operation, reason)
	return err
}

func (s *service) transitioned(ctx context.Context, orderID uuid.UUID, channel enums.ReviewChannel, from, to enums.PaymentStatus) {
	s.metrics.IncTransition(channel, from, to)
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id": orderID.String(),
		"channel":  string(channel),
		"from":     string(from),
		"to":       string(to),
	})
	s.logg.Info(ctx, "order.transition")
}
