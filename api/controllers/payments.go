package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bakehouse-backend/api/middleware"
	"github.com/angelmondragon/bakehouse-backend/api/responses"
	"github.com/angelmondragon/bakehouse-backend/api/validators"
	"github.com/angelmondragon/bakehouse-backend/internal/paymentqr"
	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
	"github.com/angelmondragon/bakehouse-backend/pkg/logger"
)

type paymentQRGenerator interface {
	Generate(ctx context.Context, userID uuid.UUID, req paymentqr.Request) (*paymentqr.Result, error)
}

// amount accepts a JSON number or a numeric string.
type paymentQRRequest struct {
	OrderID     uuid.UUID       `json:"orderId" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	OrderNumber string          `json:"orderNumber" validate:"required,max=64"`
}

// PaymentQR returns the UPI deep link and QR image for one of the caller's
// unpaid orders.
func PaymentQR(svc paymentQRGenerator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment qr service unavailable"))
			return
		}

		userID, ok := middleware.UserUUIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		var payload paymentQRRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !payload.Amount.IsPositive() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{"amount": "must be positive"}))
			return
		}

		result, err := svc.Generate(r.Context(), userID, paymentqr.Request{
			OrderID:     payload.OrderID,
			Amount:      payload.Amount,
			OrderNumber: strings.TrimSpace(payload.OrderNumber),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
