package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bakehouse-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
)

// MaxLineQuantity bounds a single cart line.
const MaxLineQuantity = 99

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes the cart staging operations used before checkout.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*CartView, error)
	SetItem(ctx context.Context, userID uuid.UUID, input SetItemInput) (*CartView, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo     CartRepository
	products productLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: repo, products: products}, nil
}

// SetItemInput sets the quantity of one line; zero removes it.
type SetItemInput struct {
	ProductID uuid.UUID
	VariantID string
	Quantity  int
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return NewCartView(items), nil
}

func (s *service) SetItem(ctx context.Context, userID uuid.UUID, input SetItemInput) (*CartView, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}
	if input.Quantity < 0 || input.Quantity > MaxLineQuantity {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "quantity must be between 0 and %d", MaxLineQuantity)
	}
	variant := strings.TrimSpace(input.VariantID)

	if input.Quantity == 0 {
		if err := s.repo.Remove(ctx, userID, input.ProductID, variant); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
		}
		return s.Get(ctx, userID)
	}

	p, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if !p.IsActive {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "product %s is no longer available", p.Name)
	}
	if p.Stock < input.Quantity {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "only %d of %s left in stock", p.Stock, p.Name).
			WithDetails(map[string]any{"productId": p.ID, "available": p.Stock})
	}

	item := &models.CartItem{
		UserID:    userID,
		ProductID: input.ProductID,
		VariantID: variant,
		Quantity:  input.Quantity,
	}
	if err := s.repo.Upsert(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart item")
	}
	return s.Get(ctx, userID)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.repo.ClearForUser(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	return nil
}
