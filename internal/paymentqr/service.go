package paymentqr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bakehouse-backend/pkg/db/models"
	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
	"github.com/angelmondragon/bakehouse-backend/pkg/logger"
	"github.com/angelmondragon/bakehouse-backend/pkg/metrics"
)

type orderLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// Request asks for the payment QR of one order. Amount must equal the
// order total.
type Request struct {
	OrderID     uuid.UUID
	Amount      decimal.Decimal
	OrderNumber string
}

type Result struct {
	QRCodeDataURL string `json:"qrCodeDataUrl"`
	UPILink       string `json:"upiLink"`
	UPIID         string `json:"upiId"`
	Amount        string `json:"amount"`
	OrderNumber   string `json:"orderNumber"`
	Cached        bool   `json:"cached"`
}

// Config is the payee identity and cache lifetime.
type Config struct {
	PayeeID   string
	PayeeName string
	CacheTTL  time.Duration
}

// Service generates UPI payment links and QR images for the caller's orders.
type Service struct {
	orders  orderLoader
	cache   Cache
	cfg     Config
	metrics *metrics.OrderMetrics
	logg    *logger.Logger
	render  func(string) (string, error)
	now     func() time.Time
}

func NewService(orders orderLoader, cache Cache, cfg Config, orderMetrics *metrics.OrderMetrics, logg *logger.Logger) (*Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("order loader required")
	}
	if cache == nil {
		return nil, fmt.Errorf("qr cache required")
	}
	if strings.TrimSpace(cfg.PayeeID) == "" {
		return nil, fmt.Errorf("upi payee id required")
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &Service{
		orders:  orders,
		cache:   cache,
		cfg:     cfg,
		metrics: orderMetrics,
		logg:    logg,
		render:  RenderQR,
		now:     time.Now,
	}, nil
}

func (s *Service) Generate(ctx context.Context, userID uuid.UUID, req Request) (*Result, error) {
	if req.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid orderId").
			WithDetails(map[string]string{"orderId": "is required"})
	}
	order, err := s.orders.FindByID(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	total := decimal.NewFromInt(order.Total)
	if !req.Amount.Equal(total) {
		s.metrics.IncRejection("payment_qr", "amount_mismatch")
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "amount does not match order total")
	}
	if strings.TrimSpace(req.OrderNumber) != order.OrderNumber {
		s.metrics.IncRejection("payment_qr", "order_number_mismatch")
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order number does not match order")
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		s.metrics.IncRejection("payment_qr", "already_paid")
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
	}

	result := &Result{
		UPIID:       s.cfg.PayeeID,
		Amount:      total.StringFixed(2),
		OrderNumber: order.OrderNumber,
	}
	key := CacheKey(order.ID, order.Total)
	entry, hit, err := s.cache.Get(ctx, key)
	if err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "payment qr cache read failed: "+err.Error())
	}
	if hit {
		s.metrics.IncQRCacheHit()
		result.QRCodeDataURL, result.UPILink, result.Cached = entry.QRCodeDataURL, entry.UPILink, true
		return result, nil
	}
	s.metrics.IncQRCacheMiss()

	link := BuildUPILink(s.cfg.PayeeID, s.cfg.PayeeName, total, order.OrderNumber)
	started := s.now()
	dataURL, err := s.render(link)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render payment qr")
	}
	s.metrics.ObserveQRRender(s.now().Sub(started))

	entry = Entry{QRCodeDataURL: dataURL, UPILink: link, CreatedAt: s.now().UTC()}
	if err := s.cache.Set(ctx, key, entry, s.cfg.CacheTTL); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "payment qr cache write failed: "+err.Error())
	}
	result.QRCodeDataURL, result.UPILink = dataURL, link
	return result, nil
}
