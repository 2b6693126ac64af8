package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/bakehouse-backend/api/middleware"
	"github.com/angelmondragon/bakehouse-backend/api/responses"
	"github.com/angelmondragon/bakehouse-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/bakehouse-backend/internal/checkout"
	"github.com/angelmondragon/bakehouse-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
	"github.com/angelmondragon/bakehouse-backend/pkg/logger"
)

type createOrderRequest struct {
	AddressID      uuid.UUID `json:"addressId" validate:"required"`
	DeliverySlot   string    `json:"deliverySlot" validate:"required,deliveryslot"`
	DeliveryDate   string    `json:"deliveryDate" validate:"required,datetime=2006-01-02"`
	DeliveryNotes  *string   `json:"deliveryNotes,omitempty" validate:"omitempty,max=500"`
	GiftMessage    *string   `json:"giftMessage,omitempty" validate:"omitempty,max=300"`
	IsGift         bool      `json:"isGift"`
	IdempotencyKey *string   `json:"idempotencyKey,omitempty" validate:"omitempty,min=16,max=128"`
}

type createOrderResponse struct {
	Order      *orders.OrderView `json:"order"`
	Idempotent bool              `json:"idempotent,omitempty"`
}

// CreateOrder turns the caller's cart into an order. A replayed idempotency
// key answers 200 with the original order instead of 201.
func CreateOrder(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, ok := middleware.UserUUIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		key := payload.IdempotencyKey
		if key == nil {
			if header := strings.TrimSpace(r.Header.Get(middleware.IdempotencyHeader)); header != "" {
				key = &header
			}
		}

		result, err := svc.CreateOrder(r.Context(), userID, checkoutsvc.CreateOrderInput{
			AddressID:      payload.AddressID,
			DeliverySlot:   payload.DeliverySlot,
			DeliveryDate:   payload.DeliveryDate,
			DeliveryNotes:  trimmed(payload.DeliveryNotes, 500),
			GiftMessage:    trimmed(payload.GiftMessage, 300),
			IsGift:         payload.IsGift,
			IdempotencyKey: key,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Idempotent {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, createOrderResponse{
			Order:      result.Order,
			Idempotent: result.Idempotent,
		})
	}
}

func trimmed(value *string, maxLen int) *string {
	if value == nil {
		return nil
	}
	clean := validators.SanitizeString(*value, maxLen)
	if clean == "" {
		return nil
	}
	return &clean
}
