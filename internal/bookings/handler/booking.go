package handler

import (
	"net/http"

	"staybook/internal/bookings/service"
	"staybook/pkg/auth"
	apperrors "staybook/pkg/errors"
	httputil "staybook/pkg/http"
	"staybook/pkg/logger"
	"staybook/pkg/middleware"
	"staybook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// userSegment shares the :id position with booking ids.
const userSegment = "user"

type BookingHandler struct {
	service     service.BookingService
	requireAuth func(http.Handler) http.Handler
	log         *logger.Logger
}

func NewBookingHandler(service service.BookingService, requireAuth func(http.Handler) http.Handler, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service:     service,
		requireAuth: requireAuth,
		log:         log,
	}
}

func (h *BookingHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, "CreateCheckoutSession", apperrors.Unauthorized("Authentication required"))
		return
	}

	var req model.CheckoutRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "CreateCheckoutSession", err)
		return
	}

	resp, err := h.service.CreateCheckoutSession(r.Context(), identity.UserID, &req)
	if err != nil {
		h.writeError(w, "CreateCheckoutSession", err)
		return
	}

	if err := httputil.WriteSuccess(w, resp); err != nil {
		h.log.Error("failed to write success response", "handler", "CreateCheckoutSession", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if id == userSegment {
		h.ListForUser(w, r, ps)
		return
	}

	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, "GetByID", apperrors.Unauthorized("Authentication required"))
		return
	}

	booking, err := h.service.GetForUser(r.Context(), identity.UserID, id)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) ListForUser(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, "ListForUser", apperrors.Unauthorized("Authentication required"))
		return
	}

	bookings, err := h.service.ListForUser(r.Context(), identity.UserID)
	if err != nil {
		h.writeError(w, "ListForUser", err)
		return
	}

	if err := httputil.WriteSuccess(w, bookings); err != nil {
		h.log.Error("failed to write success response", "handler", "ListForUser", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, "Cancel", apperrors.Unauthorized("Authentication required"))
		return
	}

	booking, err := h.service.Cancel(r.Context(), identity.UserID, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/bookings/create-checkout-session", middleware.Protect(h.requireAuth, h.CreateCheckoutSession))
	router.GET("/api/bookings/:id", middleware.Protect(h.requireAuth, h.GetByID))
	router.DELETE("/api/bookings/:id", middleware.Protect(h.requireAuth, h.Cancel))
}
