package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/bakehouse-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RefKind says how an order reference was interpreted.
type RefKind string

const (
	RefByID     RefKind = "id"
	RefByNumber RefKind = "order_number"
)

// Resolved is the outcome of ResolveRef. Order is nil when nothing matched.
type Resolved struct {
	Kind  RefKind
	Order *models.Order
}

// Found reports whether the reference matched an order.
func (r Resolved) Found() bool {
	return r.Order != nil
}

// ResolveRef looks an order up by either its id or its order number. A value
// that parses as a uuid is only ever treated as an id. With forUpdate the
// returned row is locked for the rest of the transaction bound to repo.
func ResolveRef(ctx context.Context, repo Repository, ref string, forUpdate bool) (Resolved, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Resolved{}, nil
	}

	if id, err := uuid.Parse(ref); err == nil {
		res := Resolved{Kind: RefByID}
		var order *models.Order
		if forUpdate {
			order, err = repo.FindByIDForUpdate(ctx, id)
		} else {
			order, err = repo.FindByID(ctx, id)
		}
		return withOrder(res, order, err)
	}

	res := Resolved{Kind: RefByNumber}
	order, err := repo.FindByOrderNumber(ctx, ref)
	if err != nil || !forUpdate {
		return withOrder(res, order, err)
	}
	order, err = repo.FindByIDForUpdate(ctx, order.ID)
	return withOrder(res, order, err)
}

func withOrder(res Resolved, order *models.Order, err error) (Resolved, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return res, nil
		}
		return res, err
	}
	res.Order = order
	return res, nil
}
