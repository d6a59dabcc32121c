package order

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/apperror"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/utilities"
)

// Handler exposes HTTP endpoints for orders. Every route acts on the caller's own orders.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		utilities.WriteError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	var req CreateRequest
	if err := utilities.DecodeJSON(r.Body, &req); err != nil {
		h.logger.Debugw("invalid order payload", "err", err)
		utilities.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	o, err := h.svc.Create(r.Context(), caller.UserID, req)
	if err != nil {
		h.fail(w, err, "Error creating order")
		return
	}
	utilities.WriteJSON(w, http.StatusCreated, o)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		utilities.WriteError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	orders, err := h.svc.ListByBuyer(r.Context(), caller.UserID)
	if err != nil {
		h.fail(w, err, "Error fetching orders")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, orders)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		utilities.WriteError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	o, err := h.svc.Get(r.Context(), caller.UserID, r.PathValue("id"))
	if err != nil {
		h.fail(w, err, "Error fetching order")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) fail(w http.ResponseWriter, err error, msg string) {
	utilities.WriteJSON(w, apperror.Status(err), apperror.Body(err, msg))
}
