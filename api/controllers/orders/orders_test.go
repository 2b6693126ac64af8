package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bakehouse-backend/api/middleware"
	internalorders "github.com/angelmondragon/bakehouse-backend/internal/orders"
	"github.com/angelmondragon/bakehouse-backend/pkg/auth/actionlink"
	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
	"github.com/angelmondragon/bakehouse-backend/pkg/pagination"
)

type stubOrdersService struct {
	submitResult *internalorders.SubmitPaymentResult
	reviewResult *internalorders.ReviewResult
	view         *internalorders.OrderView
	list         *internalorders.OrderListView
	err          error

	submitInput internalorders.SubmitPaymentInput
	reviewInput internalorders.ReviewInput
	reviewCalls int
	params      pagination.Params
	ref         string
}

func (s *stubOrdersService) SubmitPayment(ctx context.Context, input internalorders.SubmitPaymentInput) (*internalorders.SubmitPaymentResult, error) {
	s.submitInput = input
	return s.submitResult, s.err
}

func (s *stubOrdersService) Review(ctx context.Context, input internalorders.ReviewInput) (*internalorders.ReviewResult, error) {
	s.reviewInput = input
	s.reviewCalls++
	return s.reviewResult, s.err
}

func (s *stubOrdersService) GetForUser(ctx context.Context, userID uuid.UUID, ref string) (*internalorders.OrderView, error) {
	s.ref = ref
	return s.view, s.err
}

func (s *stubOrdersService) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*internalorders.OrderListView, error) {
	s.params = params
	return s.list, s.err
}

func (s *stubOrdersService) ListAwaitingReview(ctx context.Context, params pagination.Params) (*internalorders.OrderListView, error) {
	s.params = params
	return s.list, s.err
}

func asUser(userID uuid.UUID, role enums.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithUserID(r.Context(), userID.String())
			ctx = middleware.WithRole(ctx, string(role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newCustomerRouter(svc internalorders.Service, userID uuid.UUID) http.Handler {
	r := chi.NewRouter()
	r.Use(asUser(userID, enums.UserRoleCustomer))
	r.Get("/api/v1/orders", List(svc, nil))
	r.Get("/api/v1/orders/{orderRef}", Detail(svc, nil))
	r.Post("/api/v1/orders/{orderRef}/payment", SubmitPayment(svc, nil))
	return r
}

func newAdminRouter(svc internalorders.Service, adminID uuid.UUID) http.Handler {
	r := chi.NewRouter()
	r.Use(asUser(adminID, enums.UserRoleAdmin))
	r.Get("/api/admin/v1/orders/review", AdminReviewQueue(svc, nil))
	r.Post("/api/admin/v1/orders/{orderId}/verify", AdminVerify(svc, nil))
	return r
}

func sampleView(status enums.PaymentStatus) *internalorders.OrderView {
	return &internalorders.OrderView{
		ID:            uuid.New(),
		OrderNumber:   "ORD1747000000000123",
		Status:        enums.OrderStatusConfirmed,
		PaymentStatus: status,
		Total:         630,
	}
}

func TestListPassesPagination(t *testing.T) {
	svc := &stubOrdersService{list: &internalorders.OrderListView{Orders: []internalorders.OrderView{*sampleView(enums.PaymentStatusPending)}}}
	resp := httptest.NewRecorder()
	newCustomerRouter(svc, uuid.New()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=10&cursor=abc", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, pagination.Params{Limit: 10, Cursor: "abc"}, svc.params)
}

func TestListRejectsOutOfRangeLimit(t *testing.T) {
	resp := httptest.NewRecorder()
	newCustomerRouter(&stubOrdersService{}, uuid.New()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=500", nil))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestDetailNotFound(t *testing.T) {
	svc := &stubOrdersService{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	resp := httptest.NewRecorder()
	newCustomerRouter(svc, uuid.New()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/orders/ORD1747000000000123", nil))

	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "ORD1747000000000123", svc.ref)
}

func TestSubmitPaymentSuccess(t *testing.T) {
	userID := uuid.New()
	view := sampleView(enums.PaymentStatusPaid)
	svc := &stubOrdersService{submitResult: &internalorders.SubmitPaymentResult{Order: view, Message: "Payment submitted"}}

	body := `{"upiTransactionId":" abcd1234efgh "}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+view.ID.String()+"/payment", strings.NewReader(body))
	resp := httptest.NewRecorder()
	newCustomerRouter(svc, userID).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, userID, svc.submitInput.UserID)
	assert.Equal(t, view.ID.String(), svc.submitInput.OrderRef)
	assert.Equal(t, " abcd1234efgh ", svc.submitInput.TransactionID)

	var envelope struct {
		Data struct {
			Success          bool                     `json:"success"`
			Message          string                   `json:"message"`
			AlreadySubmitted bool                     `json:"alreadySubmitted"`
			Order            internalorders.OrderView `json:"order"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.True(t, envelope.Data.Success)
	assert.False(t, envelope.Data.AlreadySubmitted)
	assert.Equal(t, enums.PaymentStatusPaid, envelope.Data.Order.PaymentStatus)
}

func TestSubmitPaymentRejectsMalformedTransactionID(t *testing.T) {
	for _, txn := range []string{"", "SHORT1", "ABCD-1234-EFGH", "ABCDEFGHIJKLMNOPQ"} {
		t.Run(txn, func(t *testing.T) {
			svc := &stubOrdersService{}
			body := fmt.Sprintf(`{"upiTransactionId":%q}`, txn)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/ORD1/payment", strings.NewReader(body))
			resp := httptest.NewRecorder()
			newCustomerRouter(svc, uuid.New()).ServeHTTP(resp, req)

			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Empty(t, svc.submitInput.OrderRef)
		})
	}
}

func TestSubmitPaymentRejectsMismatchedBodyOrderID(t *testing.T) {
	svc := &stubOrdersService{}
	body := fmt.Sprintf(`{"orderId":%q,"upiTransactionId":"ABCD1234EFGH"}`, uuid.New())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+uuid.NewString()+"/payment", strings.NewReader(body))
	resp := httptest.NewRecorder()
	newCustomerRouter(svc, uuid.New()).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSubmitPaymentStateConflict(t *testing.T) {
	svc := &stubOrdersService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "transaction id already used")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/ORD1/payment", strings.NewReader(`{"upiTransactionId":"ABCD1234EFGH"}`))
	resp := httptest.NewRecorder()
	newCustomerRouter(svc, uuid.New()).ServeHTTP(resp, req)

	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Contains(t, resp.Body.String(), "transaction id already used")
}

func TestAdminReviewQueue(t *testing.T) {
	svc := &stubOrdersService{list: &internalorders.OrderListView{}}
	resp := httptest.NewRecorder()
	newAdminRouter(svc, uuid.New()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders/review", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, pagination.DefaultLimit, svc.params.Limit)
}

func TestAdminVerifyApprove(t *testing.T) {
	adminID := uuid.New()
	view := sampleView(enums.PaymentStatusPaid)
	svc := &stubOrdersService{reviewResult: &internalorders.ReviewResult{
		Outcome: internalorders.OutcomeApproved,
		Action:  enums.ReviewActionApprove,
		Order:   view,
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/orders/"+view.ID.String()+"/verify", strings.NewReader(`{"action":"approve"}`))
	resp := httptest.NewRecorder()
	newAdminRouter(svc, adminID).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, view.ID, svc.reviewInput.OrderID)
	assert.Equal(t, enums.ReviewChannelAdmin, svc.reviewInput.Channel)
	require.NotNil(t, svc.reviewInput.ActorUserID)
	assert.Equal(t, adminID, *svc.reviewInput.ActorUserID)

	var envelope struct {
		Data struct {
			Message string `json:"message"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "Payment approved", envelope.Data.Message)
}

func TestAdminVerifyWrongStateNamesStatus(t *testing.T) {
	view := sampleView(enums.PaymentStatusPending)
	svc := &stubOrdersService{reviewResult: &internalorders.ReviewResult{
		Outcome: internalorders.OutcomeNotReviewable,
		Action:  enums.ReviewActionApprove,
		Order:   view,
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/orders/"+view.ID.String()+"/verify", strings.NewReader(`{"action":"approve"}`))
	resp := httptest.NewRecorder()
	newAdminRouter(svc, uuid.New()).ServeHTTP(resp, req)

	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Contains(t, resp.Body.String(), "PENDING")
}

func TestAdminVerifyRejectsUnknownAction(t *testing.T) {
	svc := &stubOrdersService{}
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/orders/"+uuid.NewString()+"/verify", strings.NewReader(`{"action":"refund"}`))
	resp := httptest.NewRecorder()
	newAdminRouter(svc, uuid.New()).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Zero(t, svc.reviewCalls)
}

func TestAdminVerifyRejectsBadOrderID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/orders/not-a-uuid/verify", strings.NewReader(`{"action":"approve"}`))
	resp := httptest.NewRecorder()
	newAdminRouter(&stubOrdersService{}, uuid.New()).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func newEmailRouter(t *testing.T, svc internalorders.Service, ttl time.Duration) (http.Handler, *actionlink.Signer) {
	t.Helper()
	signer, err := actionlink.NewSigner("test-secret", ttl, "https://shop.example")
	require.NoError(t, err)
	r := chi.NewRouter()
	r.Get("/api/v1/orders/{orderId}/email-action/{action}", EmailAction(svc, signer, nil))
	return r, signer
}

func signedPath(t *testing.T, signer *actionlink.Signer, orderID uuid.UUID, action enums.ReviewAction, now time.Time) string {
	t.Helper()
	link, err := signer.Sign(orderID, action, now)
	require.NoError(t, err)
	return strings.TrimPrefix(link.URL, "https://shop.example")
}

func TestEmailActionOutcomes(t *testing.T) {
	cases := []struct {
		name    string
		action  enums.ReviewAction
		outcome internalorders.ReviewOutcome
		status  enums.PaymentStatus
		code    int
		heading string
	}{
		{"approved", enums.ReviewActionApprove, internalorders.OutcomeApproved, enums.PaymentStatusPaid, http.StatusOK, "Payment approved"},
		{"rejected", enums.ReviewActionReject, internalorders.OutcomeRejected, enums.PaymentStatusFailed, http.StatusOK, "Payment rejected"},
		{"already confirmed", enums.ReviewActionApprove, internalorders.OutcomeAlreadyConfirmed, enums.PaymentStatusPaid, http.StatusOK, "Payment already confirmed"},
		{"already rejected", enums.ReviewActionReject, internalorders.OutcomeAlreadyRejected, enums.PaymentStatusFailed, http.StatusOK, "Payment already rejected"},
		{"cannot confirm", enums.ReviewActionApprove, internalorders.OutcomeNotReviewable, enums.PaymentStatusPending, http.StatusConflict, "Cannot confirm payment"},
		{"cannot reject", enums.ReviewActionReject, internalorders.OutcomeNotReviewable, enums.PaymentStatusPending, http.StatusConflict, "Cannot reject payment"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			view := sampleView(tc.status)
			svc := &stubOrdersService{reviewResult: &internalorders.ReviewResult{Outcome: tc.outcome, Action: tc.action, Order: view}}
			router, signer := newEmailRouter(t, svc, time.Hour)

			req := httptest.NewRequest(http.MethodGet, signedPath(t, signer, view.ID, tc.action, time.Now()), nil)
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			require.Equal(t, tc.code, resp.Code)
			assert.Contains(t, resp.Header().Get("Content-Type"), "text/html")
			assert.Contains(t, resp.Body.String(), tc.heading)
			assert.Equal(t, enums.ReviewChannelEmail, svc.reviewInput.Channel)
			assert.Nil(t, svc.reviewInput.ActorUserID)
			if tc.outcome == internalorders.OutcomeNotReviewable {
				assert.Contains(t, resp.Body.String(), string(tc.status))
			}
		})
	}
}

func TestEmailActionRejectsTamperedToken(t *testing.T) {
	svc := &stubOrdersService{}
	router, signer := newEmailRouter(t, svc, 0)
	orderID := uuid.New()

	// an approve token must not authorize a reject
	path := signedPath(t, signer, orderID, enums.ReviewActionApprove, time.Now())
	path = strings.Replace(path, "/email-action/approve", "/email-action/reject", 1)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))

	require.Equal(t, http.StatusForbidden, resp.Code)
	assert.Contains(t, resp.Body.String(), "This link is not valid")
	assert.Zero(t, svc.reviewCalls)
}

func TestEmailActionRejectsExpiredLink(t *testing.T) {
	svc := &stubOrdersService{}
	router, signer := newEmailRouter(t, svc, time.Hour)
	path := signedPath(t, signer, uuid.New(), enums.ReviewActionApprove, time.Now().Add(-2*time.Hour))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))

	require.Equal(t, http.StatusGone, resp.Code)
	assert.Contains(t, resp.Body.String(), "This link has expired")
	assert.Zero(t, svc.reviewCalls)
}

func TestEmailActionOrderNotFound(t *testing.T) {
	svc := &stubOrdersService{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	router, signer := newEmailRouter(t, svc, 0)
	path := signedPath(t, signer, uuid.New(), enums.ReviewActionReject, time.Now())

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))

	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Contains(t, resp.Body.String(), "Order not found")
}

func TestEmailActionUnknownAction(t *testing.T) {
	router, _ := newEmailRouter(t, &stubOrdersService{}, 0)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+uuid.NewString()+"/email-action/refund?token=abc", nil))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
