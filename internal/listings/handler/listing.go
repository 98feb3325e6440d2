package handler

import (
	"net/http"
	"time"

	"staybook/internal/listings/service"
	"staybook/pkg/auth"
	apperrors "staybook/pkg/errors"
	httputil "staybook/pkg/http"
	"staybook/pkg/logger"
	"staybook/pkg/middleware"
	"staybook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// searchSegment shares the :id position, which httprouter cannot register as
// a separate static route.
const searchSegment = "search"

type ListingHandler struct {
	service     service.ListingService
	requireAuth func(http.Handler) http.Handler
	log         *logger.Logger
}

func NewListingHandler(service service.ListingService, requireAuth func(http.Handler) http.Handler, log *logger.Logger) *ListingHandler {
	return &ListingHandler{
		service:     service,
		requireAuth: requireAuth,
		log:         log,
	}
}

func (h *ListingHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	listings, err := h.service.ListAll(r.Context())
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WriteSuccess(w, listings); err != nil {
		h.log.Error("failed to write success response", "handler", "GetAll", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ListingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if id == searchSegment {
		h.Search(w, r, ps)
		return
	}

	listing, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, listing); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ListingHandler) Search(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	filter, err := parseFilter(r)
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}

	listings, err := h.service.Search(r.Context(), filter)
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}

	if err := httputil.WriteSuccess(w, listings); err != nil {
		h.log.Error("failed to write success response", "handler", "Search", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, "Create", apperrors.Unauthorized("Authentication required"))
		return
	}

	var req model.CreateListingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	listing, err := h.service.Create(r.Context(), identity.UserID, &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, listing); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func parseFilter(r *http.Request) (model.ListingFilter, error) {
	var checkIn, checkOut *time.Time
	// A lone checkIn or checkOut is ignored without being parsed.
	query := r.URL.Query()
	if query.Get("checkIn") != "" && query.Get("checkOut") != "" {
		var err error
		if checkIn, err = httputil.QueryDate(r, "checkIn"); err != nil {
			return model.ListingFilter{}, err
		}
		if checkOut, err = httputil.QueryDate(r, "checkOut"); err != nil {
			return model.ListingFilter{}, err
		}
	}
	guests, err := httputil.QueryInt(r, "guests")
	if err != nil {
		return model.ListingFilter{}, err
	}
	price, err := httputil.QueryFloat(r, "price")
	if err != nil {
		return model.ListingFilter{}, err
	}

	return model.NewListingFilter(query.Get("location"), checkIn, checkOut, guests, price), nil
}

func (h *ListingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *ListingHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/listings", h.GetAll)
	router.GET("/api/listings/:id", h.GetByID)
	router.POST("/api/listings", middleware.Protect(h.requireAuth, h.Create))
}
