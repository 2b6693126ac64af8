package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bakehouse-backend/api/middleware"
	checkoutsvc "github.com/angelmondragon/bakehouse-backend/internal/checkout"
	"github.com/angelmondragon/bakehouse-backend/internal/orders"
	"github.com/angelmondragon/bakehouse-backend/internal/paymentqr"
	"github.com/angelmondragon/bakehouse-backend/pkg/config"
	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
)

type stubCheckoutService struct {
	result    *checkoutsvc.CreateOrderResult
	err       error
	lastUser  uuid.UUID
	lastInput checkoutsvc.CreateOrderInput
	calls     int
}

func (s *stubCheckoutService) CreateOrder(ctx context.Context, userID uuid.UUID, input checkoutsvc.CreateOrderInput) (*checkoutsvc.CreateOrderResult, error) {
	s.calls++
	s.lastUser = userID
	s.lastInput = input
	return s.result, s.err
}

func withCaller(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func orderBody(addressID uuid.UUID, extra string) string {
	return fmt.Sprintf(`{"addressId":%q,"deliverySlot":"morning","deliveryDate":"2030-01-15"%s}`, addressID, extra)
}

func TestCreateOrderCreated(t *testing.T) {
	userID := uuid.New()
	addressID := uuid.New()
	view := &orders.OrderView{ID: uuid.New(), OrderNumber: "ORD1747000000000123", Total: 630, PaymentStatus: enums.PaymentStatusPending}
	svc := &stubCheckoutService{result: &checkoutsvc.CreateOrderResult{Order: view}}

	body := orderBody(addressID, `,"deliveryNotes":"  ring twice  ","idempotencyKey":"checkout-retry-0001"`)
	rec := httptest.NewRecorder()
	CreateOrder(svc, nil).ServeHTTP(rec, withCaller(httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewBufferString(body)), userID))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, userID, svc.lastUser)
	assert.Equal(t, addressID, svc.lastInput.AddressID)
	assert.Equal(t, "morning", svc.lastInput.DeliverySlot)
	require.NotNil(t, svc.lastInput.DeliveryNotes)
	assert.Equal(t, "ring twice", *svc.lastInput.DeliveryNotes)
	require.NotNil(t, svc.lastInput.IdempotencyKey)
	assert.Equal(t, "checkout-retry-0001", *svc.lastInput.IdempotencyKey)

	var envelope struct {
		Data struct {
			Order      orders.OrderView `json:"order"`
			Idempotent bool             `json:"idempotent"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.Equal(t, view.ID, envelope.Data.Order.ID)
	assert.False(t, envelope.Data.Idempotent)
}

func TestCreateOrderReplayAnswers200(t *testing.T) {
	svc := &stubCheckoutService{result: &checkoutsvc.CreateOrderResult{Order: &orders.OrderView{ID: uuid.New()}, Idempotent: true}}
	req := withCaller(httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewBufferString(orderBody(uuid.New(), ""))), uuid.New())
	req.Header.Set(middleware.IdempotencyHeader, "header-retry-key-01")
	rec := httptest.NewRecorder()
	CreateOrder(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"idempotent":true`)
	require.NotNil(t, svc.lastInput.IdempotencyKey)
	assert.Equal(t, "header-retry-key-01", *svc.lastInput.IdempotencyKey)
}

func TestCreateOrderValidation(t *testing.T) {
	cases := map[string]string{
		"bad slot":     fmt.Sprintf(`{"addressId":%q,"deliverySlot":"noon","deliveryDate":"2030-01-15"}`, uuid.New()),
		"bad date":     fmt.Sprintf(`{"addressId":%q,"deliverySlot":"morning","deliveryDate":"15/01/2030"}`, uuid.New()),
		"no address":   `{"deliverySlot":"morning","deliveryDate":"2030-01-15"}`,
		"long message": orderBody(uuid.New(), fmt.Sprintf(`,"giftMessage":%q`, string(bytes.Repeat([]byte("a"), 301)))),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &stubCheckoutService{}
			rec := httptest.NewRecorder()
			CreateOrder(svc, nil).ServeHTTP(rec, withCaller(httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewBufferString(body)), uuid.New()))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Zero(t, svc.calls)
		})
	}
}

func TestCreateOrderMapsStockConflict(t *testing.T) {
	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock for Sourdough")}
	rec := httptest.NewRecorder()
	CreateOrder(svc, nil).ServeHTTP(rec, withCaller(httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewBufferString(orderBody(uuid.New(), ""))), uuid.New()))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient stock")
}

func TestCreateOrderRequiresCaller(t *testing.T) {
	rec := httptest.NewRecorder()
	CreateOrder(&stubCheckoutService{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewBufferString(orderBody(uuid.New(), ""))))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type stubQRGenerator struct {
	result  *paymentqr.Result
	err     error
	lastReq paymentqr.Request
	calls   int
}

func (s *stubQRGenerator) Generate(ctx context.Context, userID uuid.UUID, req paymentqr.Request) (*paymentqr.Result, error) {
	s.calls++
	s.lastReq = req
	return s.result, s.err
}

func TestPaymentQRAcceptsNumericAndStringAmounts(t *testing.T) {
	for _, amount := range []string{`630`, `"630.00"`} {
		t.Run(amount, func(t *testing.T) {
			orderID := uuid.New()
			svc := &stubQRGenerator{result: &paymentqr.Result{UPILink: "upi://pay?pa=x", Amount: "630.00", Cached: true}}
			body := fmt.Sprintf(`{"orderId":%q,"amount":%s,"orderNumber":" ORD1 "}`, orderID, amount)
			rec := httptest.NewRecorder()
			PaymentQR(svc, nil).ServeHTTP(rec, withCaller(httptest.NewRequest(http.MethodPost, "/api/v1/payments/qr", bytes.NewBufferString(body)), uuid.New()))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.True(t, svc.lastReq.Amount.Equal(decimal.NewFromInt(630)))
			assert.Equal(t, "ORD1", svc.lastReq.OrderNumber)
			assert.Equal(t, orderID, svc.lastReq.OrderID)
			assert.Contains(t, rec.Body.String(), `"cached":true`)
		})
	}
}

func TestPaymentQRRejectsNonPositiveAmount(t *testing.T) {
	svc := &stubQRGenerator{}
	body := fmt.Sprintf(`{"orderId":%q,"amount":0,"orderNumber":"ORD1"}`, uuid.New())
	rec := httptest.NewRecorder()
	PaymentQR(svc, nil).ServeHTTP(rec, withCaller(httptest.NewRequest(http.MethodPost, "/api/v1/payments/qr", bytes.NewBufferString(body)), uuid.New()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, svc.calls)
}

func TestPaymentQRAmountMismatch(t *testing.T) {
	svc := &stubQRGenerator{err: pkgerrors.New(pkgerrors.CodeStateConflict, "amount does not match order total")}
	body := fmt.Sprintf(`{"orderId":%q,"amount":1,"orderNumber":"ORD1"}`, uuid.New())
	rec := httptest.NewRecorder()
	PaymentQR(svc, nil).ServeHTTP(rec, withCaller(httptest.NewRequest(http.MethodPost, "/api/v1/payments/qr", bytes.NewBufferString(body)), uuid.New()))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	ok := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	rec := httptest.NewRecorder()
	HealthReady(cfg, map[string]Pinger{"db": ok, "redis": ok}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dev", rec.Header().Get(envHeader))

	rec = httptest.NewRecorder()
	HealthReady(cfg, map[string]Pinger{"db": ok, "redis": down}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
