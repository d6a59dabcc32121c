package comment

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/apperror"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/utilities"
)

// Handler exposes HTTP endpoints for comments.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// CommentRequest is the body of add and update.
type CommentRequest struct {
	Comment string `json:"comment"`
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		utilities.WriteError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	var req CommentRequest
	if err := utilities.DecodeJSON(r.Body, &req); err != nil {
		h.logger.Debugw("invalid comment payload", "err", err)
		utilities.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if _, err := h.svc.Add(r.Context(), caller.UserID, r.PathValue("postId"), req.Comment); err != nil {
		h.fail(w, err, "Error adding comment")
		return
	}
	utilities.WriteJSON(w, http.StatusCreated, map[string]string{"message": "Comment added successfully"})
}

func (h *Handler) ListByPost(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		utilities.WriteError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	views, err := h.svc.ListByPost(r.Context(), caller.UserID, r.PathValue("postId"))
	if err != nil {
		h.fail(w, err, "Error getting comments")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, views)
}

// ListPublic serves anonymous readers; ids are the authors' own.
func (h *Handler) ListPublic(w http.ResponseWriter, r *http.Request) {
	utilities.WriteJSON(w, http.StatusOK, h.svc.ListByPostInternal(r.Context(), r.PathValue("postId")))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req CommentRequest
	if err := utilities.DecodeJSON(r.Body, &req); err != nil {
		utilities.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	c, err := h.svc.Update(r.Context(), r.PathValue("commentId"), req.Comment)
	if err != nil {
		h.fail(w, err, "Error updating comment")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("commentId")); err != nil {
		h.fail(w, err, "Error deleting comment")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]string{"message": "Comment deleted successfully"})
}

func (h *Handler) fail(w http.ResponseWriter, err error, msg string) {
	utilities.WriteJSON(w, apperror.Status(err), apperror.Body(err, msg))
}
