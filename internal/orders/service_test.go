package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bakehouse-backend/internal/cart"
	dbpkg "github.com/angelmondragon/bakehouse-backend/pkg/db"
	"github.com/angelmondragon/bakehouse-backend/pkg/db/models"
	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
	"github.com/angelmondragon/bakehouse-backend/pkg/metrics"
	"github.com/angelmondragon/bakehouse-backend/pkg/outbox"
	"github.com/angelmondragon/bakehouse-backend/pkg/pagination"
)

var fixedNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, db *gorm.DB, trust bool) Service {
	t.Helper()
	svc, err := NewService(
		NewRepository(db),
		cart.NewRepository(db),
		dbpkg.NewFromConn(db),
		outbox.NewService(outbox.NewRepository(db), nil),
		metrics.NewOrderMetrics(prometheus.NewRegistry()),
		nil,
		Options{TrustOnSubmit: trust, Now: func() time.Time { return fixedNow }},
	)
	require.NoError(t, err)
	return svc
}

func outboxCount(t *testing.T, db *gorm.DB, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code(), typed.Message())
}

func TestSubmitPaymentConfirmsAndClearsCart(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, true)
	ctx := context.Background()
	fx := seedOrder(t, db, uuid.New(), "ORD1700000000000011", fixedNow.Add(-time.Hour))
	addCartLine(t, db, fx.user, fx.product.ID, 2)

	res, err := svc.SubmitPayment(ctx, SubmitPaymentInput{
		UserID:        fx.user,
		OrderRef:      fx.order.OrderNumber,
		TransactionID: "  abcd12345678 ",
	})
	require.NoError(t, err)
	assert.False(t, res.AlreadySubmitted)
	assert.Equal(t, enums.PaymentStatusPaid, res.Order.PaymentStatus)
	assert.Equal(t, enums.OrderStatusConfirmed, res.Order.Status)
	assert.Equal(t, enums.VerificationAwaitingReview, res.Order.VerificationStatus)
	require.NotNil(t, res.Order.PaymentID)
	assert.Equal(t, "ABCD12345678", *res.Order.PaymentID)
	assert.Len(t, res.Order.Items, 1)

	stored := loadOrder(t, db, fx.order.ID)
	requirePaidInvariant(t, stored)
	assert.Zero(t, countCart(t, db, fx.user))
	assert.Equal(t, int64(1), outboxCount(t, db, enums.EventOrderPaymentSubmitted))
}

func TestSubmitPaymentSameIDIsNoop(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, true)
	ctx := context.Background()
	fx := seedOrder(t, db, uuid.New(), "ORD1700000000000012", fixedNow.Add(-time.Hour))

	_, err := svc.SubmitPayment(ctx, SubmitPaymentInput{UserID: fx.user, OrderRef: fx.order.ID.String(), TransactionID: "ABCD12345678"})
	require.NoError(t, err)

	res, err := svc.SubmitPayment(ctx, SubmitPaymentInput{UserID: fx.user, OrderRef: fx.order.ID.String(), TransactionID: "abcd12345678"})
	require.NoError(t, err)
	assert.True(t, res.AlreadySubmitted)
	assert.Equal(t, enums.PaymentStatusPaid, res.Order.PaymentStatus)
	assert.Equal(t, int64(1), outboxCount(t, db, enums.EventOrderPaymentSubmitted))

	_, err = svc.SubmitPayment(ctx, SubmitPaymentInput{UserID: fx.user, OrderRef: fx.order.ID.String(), TransactionID: "ZZZZ99998888"})
	requireCode(t, err, pkgerrors.CodeStateConflict)
	assert.Contains(t, err.Error(), "already paid")
}

func TestSubmitPaymentRejectsReusedTransactionID(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, true)
	ctx := context.Background()
	a := seedOrder(t, db, uuid.New(), "ORD1700000000000013", fixedNow.Add(-2*time.Hour))
	b := seedOrder(t, db, uuid.New(), "ORD1700000000000014", fixedNow.Add(-time.Hour))

	_, err := svc.SubmitPayment(ctx, SubmitPaymentInput{UserID: a.user, OrderRef: a.order.OrderNumber, TransactionID: "ABCD12345678"})
	require.NoError(t, err)

	_, err = svc.SubmitPayment(ctx, SubmitPaymentInput{UserID: b.user, OrderRef: b.order.OrderNumber, TransactionID: "ABCD12345678"})
	requireCode(t, err, pkgerrors.CodeStateConflict)
	assert.Contains(t, err.Error(), "transaction id already used")

	untouched := loadOrder(t, db, b.order.ID)
	assert.Equal(t, enums.PaymentStatusPending, untouched.PaymentStatus)
	assert.Nil(t, untouched.PaymentID)
}

func TestSubmitPaymentValidationAndOwnership(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, true)
	ctx := context.Background()
	fx := seedOrder(t, db, uuid.New(), "ORD1700000000000015", fixedNow.Add(-time.Hour))

	for _, bad := range []string{"", "SHORT1", "ABCD-12345678", "ABCDEFGHIJKLMNOPQ"} {
		_, err := svc.SubmitPayment(ctx, SubmitPaymentInput{UserID: fx.user, OrderRef: fx.order.OrderNumber, TransactionID: bad})
		requireCode(t, err, pkgerrors.CodeValidation)
	}

	_, err := svc.SubmitPayment(ctx, SubmitPaymentInput{UserID: uuid.New(), OrderRef: fx.order.OrderNumber, TransactionID: "ABCD12345678"})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = svc.SubmitPayment(ctx, SubmitPaymentInput{UserID: fx.user, OrderRef: uuid.NewString(), TransactionID: "ABCD12345678"})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = svc.SubmitPayment(ctx, SubmitPaymentInput{OrderRef: fx.order.OrderNumber, TransactionID: "ABCD12345678"})
	requireCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestRejectReopensTransactionID(t *testing.T) {
	for _, channel := range []enums.ReviewChannel{enums.ReviewChannelAdmin, enums.ReviewChannelEmail} {
		t.Run(string(channel), func(t *testing.T) {
			db := newTestDB(t)
			svc := newTestService(t, db, true)
			ctx := context.Background()
			fx := seedOrder(t, db, uuid.New(), "ORD1700000000000016", fixedNow.Add(-time.Hour))

			_, err := svc.SubmitPayment(ctx, SubmitPaymentInput{UserID: fx.user, OrderRef: fx.order.OrderNumber, TransactionID: "ABCD12345678"})
			require.NoError(t, err)

			res, err := svc.Review(ctx, ReviewInput{OrderID: fx.order.ID, Action: enums.ReviewActionReject, Channel: channel})
			require.NoError(t, err)
			assert.Equal(t, OutcomeRejected, res.Outcome)
			assert.Equal(t, enums.PaymentStatusFailed, res.Order.PaymentStatus)
			assert.Nil(t, res.Order.PaymentID)

			stored := loadOrder(t, db, fx.order.ID)
			requirePaidInvariant(t, stored)
			assert.Equal(t, enums.OrderStatusPending, stored.Status)
			assert.Equal(t, enums.VerificationRejected, stored.VerificationStatus)

			again, err := svc.SubmitPayment(ctx, SubmitPaymentInput{UserID: fx.user, OrderRef: fx.order.OrderNumber, TransactionID: "ABCD12345678"})
			require.NoError(t, err)
			assert.False(t, again.AlreadySubmitted)
			assert.Equal(t, enums.PaymentStatusPaid, again.Order.PaymentStatus)
			assert.Equal(t, enums.VerificationAwaitingReview, again.Order.VerificationStatus)
			assert.Equal(t, int64(1), outboxCount(t, db, enums.EventOrderPaymentReviewed))
		})
	}
}

func TestStrictModeWaitsForApproval(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, false)
	ctx := context.Background()
	fx := seedOrder(t, db, uuid.New(), "ORD1700000000000017", fixedNow.Add(-time.Hour))
	addCartLine(t, db, fx.user, fx.product.ID, 1)

	res, err := svc.SubmitPayment(ctx, SubmitPaymentInput{UserID: fx.user, OrderRef: fx.order.OrderNumber, TransactionID: "WXYZ12345678"})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusVerificationPending, res.Order.PaymentStatus)
	assert.Equal(t, enums.OrderStatusPending, res.Order.Status)
	assert.Nil(t, res.Order.PaidAt)
	assert.Equal(t, int64(1), countCart(t, db, fx.user))

	_, err = svc.SubmitPayment(ctx, SubmitPaymentInput{UserID: fx.user, OrderRef: fx.order.OrderNumber, TransactionID: "QQQQ12345678"})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	adminID := uuid.New()
	review, err := svc.Review(ctx, ReviewInput{OrderID: fx.order.ID, Action: enums.ReviewActionApprove, Channel: enums.ReviewChannelAdmin, ActorUserID: &adminID})
	require.NoError(t, err)
	assert.True(t, review.Applied())
	assert.NoError(t, review.ConflictError())

	stored := loadOrder(t, db, fx.order.ID)
	requirePaidInvariant(t, stored)
	assert.Equal(t, enums.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, enums.VerificationApproved, stored.VerificationStatus)
	assert.Zero(t, countCart(t, db, fx.user))
}

func TestApproveKeepsOriginalPaidAt(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, true)
	ctx := context.Background()
	fx := seedOrder(t, db, uuid.New(), "ORD1700000000000018", fixedNow.Add(-time.Hour))

	_, err := svc.SubmitPayment(ctx, SubmitPaymentInput{UserID: fx.user, OrderRef: fx.order.OrderNumber, TransactionID: "ABCD12345678"})
	require.NoError(t, err)
	before := loadOrder(t, db, fx.order.ID)
	require.NotNil(t, before.PaidAt)

	_, err = svc.Review(ctx, ReviewInput{OrderID: fx.order.ID, Action: enums.ReviewActionApprove, Channel: enums.ReviewChannelEmail})
	require.NoError(t, err)
	after := loadOrder(t, db, fx.order.ID)
	require.NotNil(t, after.PaidAt)
	assert.True(t, before.PaidAt.Equal(*after.PaidAt))
}

func TestReviewGuards(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, true)
	ctx := context.Background()
	fx := seedOrder(t, db, uuid.New(), "ORD1700000000000019", fixedNow.Add(-time.Hour))

	res, err := svc.Review(ctx, ReviewInput{OrderID: fx.order.ID, Action: enums.ReviewActionApprove, Channel: enums.ReviewChannelEmail})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotReviewable, res.Outcome)
	conflict := res.ConflictError()
	requireCode(t, conflict, pkgerrors.CodeStateConflict)
	assert.Contains(t, conflict.Error(), "PENDING")
	assert.Equal(t, enums.PaymentStatusPending, loadOrder(t, db, fx.order.ID).PaymentStatus)

	_, err = svc.SubmitPayment(ctx, SubmitPaymentInput{UserID: fx.user, OrderRef: fx.order.OrderNumber, TransactionID: "ABCD12345678"})
	require.NoError(t, err)
	res, err = svc.Review(ctx, ReviewInput{OrderID: fx.order.ID, Action: enums.ReviewActionApprove, Channel: enums.ReviewChannelAdmin})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApproved, res.Outcome)

	res, err = svc.Review(ctx, ReviewInput{OrderID: fx.order.ID, Action: enums.ReviewActionApprove, Channel: enums.ReviewChannelEmail})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyConfirmed, res.Outcome)

	res, err = svc.Review(ctx, ReviewInput{OrderID: fx.order.ID, Action: enums.ReviewActionReject, Channel: enums.ReviewChannelEmail})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotReviewable, res.Outcome)
	assert.Equal(t, enums.PaymentStatusPaid, res.Order.PaymentStatus)

	_, err = svc.Review(ctx, ReviewInput{OrderID: uuid.New(), Action: enums.ReviewActionApprove, Channel: enums.ReviewChannelAdmin})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = svc.Review(ctx, ReviewInput{OrderID: fx.order.ID, Action: "refund", Channel: enums.ReviewChannelAdmin})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestRejectTwiceReportsAlreadyRejected(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, true)
	ctx := context.Background()
	fx := seedOrder(t, db, uuid.New(), "ORD1700000000000020", fixedNow.Add(-time.Hour))

	_, err := svc.SubmitPayment(ctx, SubmitPaymentInput{UserID: fx.user, OrderRef: fx.order.OrderNumber, TransactionID: "ABCD12345678"})
	require.NoError(t, err)
	_, err = svc.Review(ctx, ReviewInput{OrderID: fx.order.ID, Action: enums.ReviewActionReject, Channel: enums.ReviewChannelEmail})
	require.NoError(t, err)

	res, err := svc.Review(ctx, ReviewInput{OrderID: fx.order.ID, Action: enums.ReviewActionReject, Channel: enums.ReviewChannelEmail})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyRejected, res.Outcome)
	assert.False(t, res.Applied())
	assert.Equal(t, int64(1), outboxCount(t, db, enums.EventOrderPaymentReviewed))
}

func TestGetAndListForUser(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, true)
	ctx := context.Background()
	fx := seedOrder(t, db, uuid.New(), "ORD1700000000000021", fixedNow.Add(-time.Hour))

	view, err := svc.GetForUser(ctx, fx.user, fx.order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, int64(630), view.Total)
	assert.Equal(t, fx.order.DeliveryDate.Format(DeliveryDateLayout), view.DeliveryDate)

	_, err = svc.GetForUser(ctx, uuid.New(), fx.order.ID.String())
	requireCode(t, err, pkgerrors.CodeNotFound)

	list, err := svc.ListForUser(ctx, fx.user, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, list.Orders, 1)

	_, err = svc.ListAwaitingReview(ctx, pagination.Params{Cursor: "not-base64!"})
	requireCode(t, err, pkgerrors.CodeValidation)
}
