package checkout

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bakehouse-backend/internal/address"
	"github.com/angelmondragon/bakehouse-backend/internal/cart"
	"github.com/angelmondragon/bakehouse-backend/internal/checkout/helpers"
	"github.com/angelmondragon/bakehouse-backend/internal/checkout/reservation"
	"github.com/angelmondragon/bakehouse-backend/internal/orders"
	product "github.com/angelmondragon/bakehouse-backend/internal/products"
	pkgcheckout "github.com/angelmondragon/bakehouse-backend/pkg/checkout"
	dbpkg "github.com/angelmondragon/bakehouse-backend/pkg/db"
	"github.com/angelmondragon/bakehouse-backend/pkg/db/models"
	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
	"github.com/angelmondragon/bakehouse-backend/pkg/logger"
	"github.com/angelmondragon/bakehouse-backend/pkg/metrics"
	"github.com/angelmondragon/bakehouse-backend/pkg/outbox"
	"github.com/angelmondragon/bakehouse-backend/pkg/outbox/payloads"
)

const (
	orderNumberPrefix        = "ORD"
	orderNumberConstraint    = "ux_orders_order_number"
	idempotencyKeyConstraint = "ux_orders_idempotency_key"
	maxOrderNumberAttempts   = 3
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service creates orders from the caller's cart.
type Service interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*CreateOrderResult, error)
}

// CreateOrderInput carries the checkout form. DeliveryDate is YYYY-MM-DD.
type CreateOrderInput struct {
	AddressID      uuid.UUID
	DeliverySlot   string
	DeliveryDate   string
	DeliveryNotes  *string
	GiftMessage    *string
	IsGift         bool
	IdempotencyKey *string
}

// CreateOrderResult is the created order, or the earlier order when the
// idempotency key was already used by the caller.
type CreateOrderResult struct {
	Order      *orders.OrderView
	Idempotent bool
}

// Options carries pricing and the clock/random sources.
type Options struct {
	Pricing helpers.Pricing
	// Location decides what "today" means for delivery dates.
	Location *time.Location
	Now      func() time.Time
	Intn     func(n int) int
}

type service struct {
	tx         txRunner
	cartRepo   cart.CartRepository
	ordersRepo orders.Repository
	addresses  *address.Repository
	products   *product.Repository
	outbox     outboxPublisher
	metrics    *metrics.OrderMetrics
	logg       *logger.Logger
	opts       Options
}

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	cartRepo cart.CartRepository,
	ordersRepo orders.Repository,
	addresses *address.Repository,
	products *product.Repository,
	publisher outboxPublisher,
	orderMetrics *metrics.OrderMetrics,
	logg *logger.Logger,
	opts Options,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if addresses == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Intn == nil {
		opts.Intn = rand.IntN
	}
	return &service{
		tx:         tx,
		cartRepo:   cartRepo,
		ordersRepo: ordersRepo,
		addresses:  addresses,
		products:   products,
		outbox:     publisher,
		metrics:    orderMetrics,
		logg:       logg,
		opts:       opts,
	}, nil
}

type validatedInput struct {
	slot         enums.DeliverySlot
	deliveryDate time.Time
	key          *string
}

func (s *service) CreateOrder(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*CreateOrderResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	valid, err := s.validate(input)
	if err != nil {
		return nil, err
	}

	if valid.key != nil {
		replay, err := s.findReplay(ctx, userID, *valid.key)
		if err != nil || replay != nil {
			return replay, err
		}
	}

	var orderID uuid.UUID
	for attempt := 1; ; attempt++ {
		orderID, err = s.create(ctx, userID, input, valid)
		if err == nil {
			break
		}
		if valid.key != nil && dbpkg.IsUniqueViolation(err, idempotencyKeyConstraint) {
			replay, rerr := s.findReplay(ctx, userID, *valid.key)
			if rerr != nil {
				return nil, rerr
			}
			if replay != nil {
				return replay, nil
			}
		}
		if dbpkg.IsUniqueViolation(err, orderNumberConstraint) && attempt < maxOrderNumberAttempts {
			continue
		}
		if typed := pkgerrors.As(err); typed != nil {
			s.metrics.IncRejection("create_order", string(typed.Code()))
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
	}

	s.metrics.IncCreated()
	order, err := s.ordersRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":     order.ID.String(),
			"order_number": order.OrderNumber,
			"total":        order.Total,
		})
		s.logg.Info(logCtx, "order.created")
	}
	return &CreateOrderResult{Order: orders.NewOrderView(order)}, nil
}

func (s *service) validate(input CreateOrderInput) (validatedInput, error) {
	var out validatedInput
	if input.AddressID == uuid.Nil {
		return out, pkgerrors.New(pkgerrors.CodeValidation, "invalid addressId").
			WithDetails(map[string]string{"addressId": "is required"})
	}
	slot, err := helpers.ParseDeliverySlot(input.DeliverySlot)
	if err != nil {
		return out, err
	}
	date, err := helpers.ParseDeliveryDate(input.DeliveryDate, s.opts.Now(), s.opts.Location)
	if err != nil {
		return out, err
	}
	key, err := helpers.NormalizeIdempotencyKey(input.IdempotencyKey)
	if err != nil {
		return out, err
	}
	out.slot, out.deliveryDate, out.key = slot, date, key
	return out, nil
}

// findReplay returns the order already created under key, nil when the key is
// unused, and IDEMPOTENCY_KEY_REUSED when another user owns it.
func (s *service) findReplay(ctx context.Context, userID uuid.UUID, key string) (*CreateOrderResult, error) {
	existing, err := s.ordersRepo.FindByIdempotencyKey(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup idempotency key")
	}
	if existing.UserID != userID {
		s.metrics.IncRejection("create_order", "idempotency_key_reused")
		return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key already used")
	}
	return &CreateOrderResult{Order: orders.NewOrderView(existing), Idempotent: true}, nil
}

func (s *service) create(ctx context.Context, userID uuid.UUID, input CreateOrderInput, valid validatedInput) (uuid.UUID, error) {
	var orderID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)
		products := s.products.WithTx(tx)

		if _, err := s.addresses.WithTx(tx).FindForUser(ctx, userID, input.AddressID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load address")
		}

		items, err := cartRepo.ListByUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
		if len(items) == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
		}

		demand := helpers.GroupCartItemsByProduct(items)
		catalog, err := products.FindByIDs(ctx, helpers.ProductIDs(demand))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
		}
		checks := make([]pkgcheckout.AvailabilityInput, 0, len(demand))
		claims := make([]reservation.InventoryClaimRequest, 0, len(demand))
		for _, d := range demand {
			p, ok := catalog[d.ProductID]
			checks = append(checks, pkgcheckout.AvailabilityInput{
				ProductID:    d.ProductID,
				ProductName:  p.Name,
				Found:        ok,
				Active:       p.IsActive,
				Stock:        p.Stock,
				RequestedQty: d.Quantity,
			})
			claims = append(claims, reservation.InventoryClaimRequest{ProductID: d.ProductID, ProductName: p.Name, Qty: d.Quantity})
		}
		if err := pkgcheckout.ValidateAvailability(checks); err != nil {
			return err
		}

		orderItems, subtotal := helpers.BuildOrderItems(items, catalog)
		totals := s.opts.Pricing.Quote(subtotal)
		order := &models.Order{
			OrderNumber:        s.orderNumber(),
			UserID:             userID,
			AddressID:          input.AddressID,
			Status:             enums.OrderStatusPending,
			PaymentStatus:      enums.PaymentStatusPending,
			VerificationStatus: enums.VerificationUnsubmitted,
			IdempotencyKey:     valid.key,
			Subtotal:           totals.Subtotal,
			DeliveryFee:        totals.DeliveryFee,
			Tax:                totals.Tax,
			Total:              totals.Total,
			DeliverySlot:       valid.slot,
			DeliveryDate:       valid.deliveryDate,
			DeliveryNotes:      input.DeliveryNotes,
			GiftMessage:        input.GiftMessage,
			IsGift:             input.IsGift,
			Items:              orderItems,
		}
		if err := ordersRepo.Create(ctx, order); err != nil {
			return err
		}

		if err := reservation.ClaimInventory(ctx, products, claims); err != nil {
			return err
		}

		orderID = order.ID
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: &userID, Role: string(enums.UserRoleCustomer)},
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      userID,
				Total:       order.Total,
				ItemCount:   len(orderItems),
			},
		})
	})
	return orderID, err
}

// orderNumber is "ORD" + unix milliseconds + a 0-999 suffix.
func (s *service) orderNumber() string {
	return orderNumberPrefix + strconv.FormatInt(s.opts.Now().UnixMilli(), 10) + strconv.Itoa(s.opts.Intn(1000))
}
