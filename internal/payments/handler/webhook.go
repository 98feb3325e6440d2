package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"staybook/internal/payments/gateway"
	apperrors "staybook/pkg/errors"
	httputil "staybook/pkg/http"
	"staybook/pkg/logger"
	"staybook/pkg/middleware"
	"staybook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// NotificationApplier moves bookings in response to payment events.
type NotificationApplier interface {
	ApplyPaymentNotification(ctx context.Context, n *gateway.Notification) (*model.Booking, error)
}

type WebhookResponse struct {
	Received bool `json:"received"`
}

type PaymentHandler struct {
	gateway  gateway.Gateway
	bookings NotificationApplier
	log      *logger.Logger
}

func NewPaymentHandler(gw gateway.Gateway, bookings NotificationApplier, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		gateway:  gw,
		bookings: bookings,
		log:      log,
	}
}

// Webhook applies a provider event. The signature has been checked by the
// route middleware before the body is read here.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, apperrors.InvalidInput("Failed to read request body"))
		return
	}

	n, err := h.gateway.ParseNotification(payload)
	switch {
	case errors.Is(err, gateway.ErrMissingBookingID):
		h.log.Warn("Payment webhook without booking reference",
			"request_id", logger.RequestIDFromContext(r.Context()),
			"error", err,
		)
		h.acknowledge(w)
		return
	case err != nil:
		h.log.Warn("Rejected payment webhook payload",
			"request_id", logger.RequestIDFromContext(r.Context()),
			"error", err,
		)
		h.writeError(w, apperrors.InvalidInput("Invalid webhook payload"))
		return
	}

	if _, err := h.bookings.ApplyPaymentNotification(r.Context(), n); err != nil {
		h.writeError(w, err)
		return
	}
	h.acknowledge(w)
}

func (h *PaymentHandler) acknowledge(w http.ResponseWriter) {
	if err := httputil.WriteSuccess(w, WebhookResponse{Received: true}); err != nil {
		h.log.Error("failed to write success response", "handler", "Webhook", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PaymentHandler) writeError(w http.ResponseWriter, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", "Webhook", "operation", "WriteError", "error", writeErr)
	}
}

func (h *PaymentHandler) RegisterRoutes(router *httprouter.Router) {
	verify := middleware.WebhookSignatureVerification(gateway.SignatureHeader, h.gateway.VerifySignature, h.log)
	router.POST("/api/payments/webhook", middleware.Protect(verify, h.Webhook))
}
