package event

import (
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/apperror"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/upload"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/utilities"
)

// FormReader parses multipart bodies and stores their image.
type FormReader interface {
	ReadForm(w http.ResponseWriter, r *http.Request) (upload.Form, error)
	Remove(name string) error
}

// Handler exposes HTTP endpoints for events.
type Handler struct {
	svc    *Service
	forms  FormReader
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, forms FormReader, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, forms: forms, logger: logger}
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.ListAll(r.Context())
	if err != nil {
		h.fail(w, err, "Error fetching events")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		utilities.WriteError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	views, err := h.svc.ListByOwner(r.Context(), caller.UserID)
	if err != nil {
		h.fail(w, err, "Error fetching user events")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) ListWithParticipants(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.ListAllWithParticipants(r.Context())
	if err != nil {
		h.fail(w, err, "Error fetching events")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, views)
}

// ListRecent accepts an optional ?limit= capped at DefaultRecentLimit.
func (h *Handler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit := DefaultRecentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.fail(w, apperror.Field("limit", "limit must be a positive integer"), "")
			return
		}
		limit = min(n, DefaultRecentLimit)
	}
	summaries, err := h.svc.ListRecentWithCounts(r.Context(), limit)
	if err != nil {
		h.fail(w, err, "Error fetching events")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, summaries)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, err, "Error fetching event")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"event": e})
}

// Create stores an event owned by the caller.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		utilities.WriteError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	fields, image, stored, err := h.readForm(w, r)
	if err != nil {
		h.fail(w, err, "invalid payload")
		return
	}
	h.create(w, r, caller.UserID, fields, image, stored)
}

// CreateByAdmin stores an event owned by the userId named in the payload.
func (h *Handler) CreateByAdmin(w http.ResponseWriter, r *http.Request) {
	fields, image, stored, err := h.readForm(w, r)
	if err != nil {
		h.fail(w, err, "invalid payload")
		return
	}
	h.create(w, r, fields[FieldUserID], fields, image, stored)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, ownerID string, raw map[string]string, image, stored string) {
	f, err := ParseFields(raw, image)
	if err != nil {
		h.discard(stored)
		h.fail(w, err, "")
		return
	}
	e, err := h.svc.Create(r.Context(), ownerID, f, image)
	if err != nil {
		h.discard(stored)
		h.fail(w, err, "Error creating event")
		return
	}
	utilities.WriteJSON(w, http.StatusCreated, e)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	fields, image, stored, err := h.readForm(w, r)
	if err != nil {
		h.fail(w, err, "invalid payload")
		return
	}
	e, err := h.svc.UpdatePartial(r.Context(), r.PathValue("id"), fields, image)
	if err != nil {
		h.discard(stored)
		h.fail(w, err, "Error updating event")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, err, "Error deleting event")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]string{"message": "Event and associated participations deleted successfully"})
}

func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		utilities.WriteError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	p, err := h.svc.Join(r.Context(), caller.UserID, r.PathValue("id"))
	if err != nil {
		h.fail(w, err, "Error joining event")
		return
	}
	utilities.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		utilities.WriteError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	if err := h.svc.Leave(r.Context(), caller.UserID, r.PathValue("id")); err != nil {
		h.fail(w, err, "Error leaving event")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readForm accepts multipart (with an optional image file) or a flat JSON
// object. In JSON bodies "image" names an already uploaded file, so stored is
// only set for a file written by this request.
func (h *Handler) readForm(w http.ResponseWriter, r *http.Request) (fields map[string]string, image, stored string, err error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		form, err := h.forms.ReadForm(w, r)
		if err != nil {
			return nil, "", "", err
		}
		delete(form.Fields, FieldImage)
		return form.Fields, form.Image, form.Image, nil
	}

	var body map[string]any
	if err := utilities.DecodeJSON(r.Body, &body); err != nil {
		h.logger.Debugw("invalid event payload", "err", err)
		return nil, "", "", apperror.Field("body", "invalid JSON")
	}
	fields = make(map[string]string, len(body))
	for k, v := range body {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			fields[k] = s
		} else {
			fields[k] = fmt.Sprint(v)
		}
	}
	image = fields[FieldImage]
	delete(fields, FieldImage)
	return fields, image, "", nil
}

func (h *Handler) discard(stored string) {
	if stored == "" {
		return
	}
	if err := h.forms.Remove(stored); err != nil {
		h.logger.Warnw("discard upload failed", "file", stored, "err", err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, err error, msg string) {
	utilities.WriteJSON(w, apperror.Status(err), apperror.Body(err, msg))
}
