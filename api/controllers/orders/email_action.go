package orders

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/bakehouse-backend/api/responses"
	internalorders "github.com/angelmondragon/bakehouse-backend/internal/orders"
	"github.com/angelmondragon/bakehouse-backend/pkg/auth/actionlink"
	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
	"github.com/angelmondragon/bakehouse-backend/pkg/logger"
)

type actionVerifier interface {
	Verify(orderID uuid.UUID, action enums.ReviewAction, token, exp string, now time.Time) error
}

var (
	pageInvalidLink = responses.Page{
		Title:   "Invalid link",
		Heading: "This link is not valid",
		Message: "The approval link is malformed or has been tampered with. Open the order from the admin dashboard instead.",
		Tone:    responses.ToneError,
	}
	pageExpiredLink = responses.Page{
		Title:   "Link expired",
		Heading: "This link has expired",
		Message: "Approval links are only valid for a limited time. Review the order from the admin dashboard instead.",
		Tone:    responses.ToneError,
	}
	pageOrderNotFound = responses.Page{
		Title:   "Order not found",
		Heading: "Order not found",
		Message: "The order referenced by this link no longer exists.",
		Tone:    responses.ToneError,
	}
	pageUnavailable = responses.Page{
		Title:   "Something went wrong",
		Heading: "Something went wrong",
		Message: "The payment could not be updated right now. Please try the link again in a few minutes.",
		Tone:    responses.ToneError,
	}
)

// EmailAction applies an approve or reject decision from the one-click link
// in the verification e-mail. The caller is a browser, so every outcome is an
// HTML page. The link token is the only credential.
func EmailAction(svc internalorders.Service, verifier actionVerifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || verifier == nil {
			responses.WriteHTML(w, http.StatusServiceUnavailable, pageUnavailable)
			return
		}

		orderID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "orderId")))
		if err != nil || orderID == uuid.Nil {
			responses.WriteHTML(w, http.StatusBadRequest, pageInvalidLink)
			return
		}
		action, err := enums.ParseReviewAction(chi.URLParam(r, "action"))
		if err != nil {
			responses.WriteHTML(w, http.StatusBadRequest, pageInvalidLink)
			return
		}

		query := r.URL.Query()
		if err := verifier.Verify(orderID, action, query.Get("token"), query.Get("exp"), time.Now()); err != nil {
			if logg != nil {
				ctx := logg.WithOrderID(r.Context(), orderID.String())
				logg.Warn(logg.WithField(ctx, "reason", err.Error()), "email action rejected")
			}
			if errors.Is(err, actionlink.ErrExpiredToken) {
				responses.WriteHTML(w, http.StatusGone, pageExpiredLink)
				return
			}
			responses.WriteHTML(w, http.StatusForbidden, pageInvalidLink)
			return
		}

		result, err := svc.Review(r.Context(), internalorders.ReviewInput{
			OrderID: orderID,
			Action:  action,
			Channel: enums.ReviewChannelEmail,
		})
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				responses.WriteHTML(w, http.StatusNotFound, pageOrderNotFound)
				return
			}
			if logg != nil {
				logg.Error(logg.WithOrderID(r.Context(), orderID.String()), "email action failed", err)
			}
			responses.WriteHTML(w, http.StatusInternalServerError, pageUnavailable)
			return
		}

		status, page := outcomePage(result)
		responses.WriteHTML(w, status, page)
	}
}

func outcomePage(result *internalorders.ReviewResult) (int, responses.Page) {
	number, status := "", enums.PaymentStatus("")
	if result.Order != nil {
		number = result.Order.OrderNumber
		status = result.Order.PaymentStatus
	}

	switch result.Outcome {
	case internalorders.OutcomeApproved:
		return http.StatusOK, responses.Page{
			Title:   "Payment approved",
			Heading: "Payment approved",
			Message: fmt.Sprintf("Order #%s is confirmed and marked as paid.", number),
			Tone:    responses.ToneSuccess,
		}
	case internalorders.OutcomeRejected:
		return http.StatusOK, responses.Page{
			Title:   "Payment rejected",
			Heading: "Payment rejected",
			Message: fmt.Sprintf("Order #%s was marked as failed. The customer can submit a corrected transaction id.", number),
			Tone:    responses.ToneInfo,
		}
	case internalorders.OutcomeAlreadyConfirmed:
		return http.StatusOK, responses.Page{
			Title:   "Already confirmed",
			Heading: "Payment already confirmed",
			Message: fmt.Sprintf("Order #%s was already approved. Nothing changed.", number),
			Tone:    responses.ToneInfo,
		}
	case internalorders.OutcomeAlreadyRejected:
		return http.StatusOK, responses.Page{
			Title:   "Already rejected",
			Heading: "Payment already rejected",
			Message: fmt.Sprintf("Order #%s was already rejected. Nothing changed.", number),
			Tone:    responses.ToneInfo,
		}
	}

	verb := "confirm"
	if result.Action == enums.ReviewActionReject {
		verb = "reject"
	}
	return http.StatusConflict, responses.Page{
		Title:   "Cannot " + verb + " payment",
		Heading: "Cannot " + verb + " payment",
		Message: fmt.Sprintf("Order #%s has payment status %s, so its payment cannot be %sed.", number, status, verb),
		Tone:    responses.ToneError,
	}
}
