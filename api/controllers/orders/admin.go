package orders

import (
	"net/http"

	"github.com/angelmondragon/bakehouse-backend/api/middleware"
	"github.com/angelmondragon/bakehouse-backend/api/responses"
	"github.com/angelmondragon/bakehouse-backend/api/validators"
	internalorders "github.com/angelmondragon/bakehouse-backend/internal/orders"
	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
	"github.com/angelmondragon/bakehouse-backend/pkg/logger"
)

type verifyRequest struct {
	Action string `json:"action" validate:"required,oneof=approve reject"`
}

type verifyResponse struct {
	Message string                    `json:"message"`
	Order   *internalorders.OrderView `json:"order,omitempty"`
}

// AdminReviewQueue lists orders whose payment claim awaits an operator decision.
func AdminReviewQueue(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListAwaitingReview(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// AdminVerify approves or rejects a submitted payment. Orders outside the
// review state answer STATE_CONFLICT naming the current payment status.
func AdminVerify(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actorID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := orderIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload verifyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		action, err := enums.ParseReviewAction(payload.Action)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid action"))
			return
		}

		result, err := svc.Review(r.Context(), internalorders.ReviewInput{
			OrderID:     orderID,
			Action:      action,
			Channel:     enums.ReviewChannelAdmin,
			ActorUserID: &actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if conflict := result.ConflictError(); conflict != nil {
			responses.WriteError(r.Context(), logg, w, conflict)
			return
		}

		if logg != nil {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"order_id":   orderID.String(),
				"action":     string(action),
				"actor_role": middleware.RoleFromContext(r.Context()),
			})
			logg.Info(ctx, "payment reviewed")
		}

		responses.WriteSuccess(w, verifyResponse{
			Message: verifyMessage(action),
			Order:   result.Order,
		})
	}
}

func verifyMessage(action enums.ReviewAction) string {
	if action == enums.ReviewActionApprove {
		return "Payment approved"
	}
	return "Payment rejected; the customer can resubmit a transaction id"
}
