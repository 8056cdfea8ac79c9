package audit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/krishimitra/krishimitra/internal/api"
)

// Handler exposes audit history over HTTP.
type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// List handles GET /api/v1/audit?user_id=...&event_type=...&severity=...
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("user_id")
	if userID == "" {
		api.HandleError(w, api.NewBadRequestError("user_id is required"))
		return
	}

	params := DefaultListParams()
	params.EventType = q.Get("event_type")
	params.Severity = q.Get("severity")
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		params.Page = page
	}
	if size, err := strconv.Atoi(q.Get("page_size")); err == nil {
		params.PageSize = size
	}

	logs, total, err := h.repo.ListByUser(r.Context(), userID, params)
	if err != nil {
		slog.Error("listing audit events", "error", err, "user_id", userID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSONPaginated(w, http.StatusOK, logs, total, params.Page, params.PageSize)
}
