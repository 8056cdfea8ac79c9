package agent

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/krishimitra/krishimitra/internal/api"
)

// Handler exposes the agent over HTTP.
type Handler struct {
	agent    *Agent
	validate *validator.Validate
}

func NewHandler(a *Agent) *Handler {
	return &Handler{
		agent:    a,
		validate: validator.New(),
	}
}

// QueryRequest is the payload for one agent turn.
type QueryRequest struct {
	UserID  string         `json:"user_id" validate:"required,min=1,max=128"`
	Message string         `json:"message" validate:"required,max=2000"`
	Context map[string]any `json:"context"`
}

// Query handles POST /api/v1/agent/query. The envelope is returned with
// 200 even for failed turns: failure is signalled in-band via success
// and empty speech, so voice clients keep a single decode path.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	resp := h.agent.ProcessTurn(r.Context(), req.Message, req.UserID, req.Context)
	api.JSON(w, http.StatusOK, resp)
}
