package farm

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/krishimitra/krishimitra/internal/api"
)

// Handler exposes farm data CRUD over HTTP. The caller identifies the
// farmer via the user_id query parameter; there is no account system in
// front of this service.
type Handler struct {
	profiles      ProfileRepository
	crops         CropRepository
	tasks         TaskRepository
	notifications NotificationRepository
	health        HealthLogRepository
	validate      *validator.Validate
}

func NewHandler(profiles ProfileRepository, crops CropRepository, tasks TaskRepository, notifications NotificationRepository, health HealthLogRepository) *Handler {
	return &Handler{
		profiles:      profiles,
		crops:         crops,
		tasks:         tasks,
		notifications: notifications,
		health:        health,
		validate:      validator.New(),
	}
}

func userID(r *http.Request) string {
	return r.URL.Query().Get("user_id")
}

func (h *Handler) internalError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, ErrNotFound) {
		api.HandleError(w, api.ErrNotFound)
		return
	}
	slog.Error(op, "error", err)
	api.HandleError(w, api.ErrInternalServer)
}

// --- profile ---

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		api.HandleError(w, api.NewBadRequestError("user_id is required"))
		return
	}

	profile, err := h.profiles.Get(r.Context(), uid)
	if err != nil {
		h.internalError(w, "getting profile", err)
		return
	}
	if profile == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}
	api.JSON(w, http.StatusOK, profile)
}

func (h *Handler) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		api.HandleError(w, api.NewBadRequestError("user_id is required"))
		return
	}

	var req UpsertProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	profile := &Profile{
		UserID:    uid,
		Name:      req.Name,
		Village:   req.Village,
		District:  req.District,
		State:     req.State,
		Pincode:   req.Pincode,
		Lat:       req.Lat,
		Lon:       req.Lon,
		Language:  req.Language,
		LandAcres: req.LandAcres,
	}
	if err := h.profiles.Upsert(r.Context(), profile); err != nil {
		h.internalError(w, "upserting profile", err)
		return
	}
	api.JSON(w, http.StatusOK, profile)
}

func (h *Handler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		api.HandleError(w, api.NewBadRequestError("user_id is required"))
		return
	}
	if err := h.profiles.Delete(r.Context(), uid); err != nil {
		h.internalError(w, "deleting profile", err)
		return
	}
	api.JSONMessage(w, http.StatusOK, "profile deleted")
}

// --- crops ---

func (h *Handler) CreateCrop(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		api.HandleError(w, api.NewBadRequestError("user_id is required"))
		return
	}

	var req CreateCropRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	status := req.Status
	if status == "" {
		status = "planned"
	}
	crop := &Crop{
		ID:        uuid.New(),
		UserID:    uid,
		Name:      req.Name,
		Variety:   req.Variety,
		AreaAcres: req.AreaAcres,
		Status:    status,
	}
	if err := h.crops.Create(r.Context(), crop); err != nil {
		h.internalError(w, "creating crop", err)
		return
	}
	api.JSON(w, http.StatusCreated, crop)
}

func (h *Handler) ListCrops(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		api.HandleError(w, api.NewBadRequestError("user_id is required"))
		return
	}
	crops, err := h.crops.List(r.Context(), uid)
	if err != nil {
		h.internalError(w, "listing crops", err)
		return
	}
	api.JSON(w, http.StatusOK, crops)
}

func (h *Handler) GetCrop(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	id, err := uuid.Parse(chi.URLParam(r, "cropID"))
	if uid == "" || err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	crop, err := h.crops.Get(r.Context(), id, uid)
	if err != nil {
		h.internalError(w, "getting crop", err)
		return
	}
	if crop == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}
	api.JSON(w, http.StatusOK, crop)
}

func (h *Handler) UpdateCrop(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	id, err := uuid.Parse(chi.URLParam(r, "cropID"))
	if uid == "" || err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	crop, err := h.crops.Get(r.Context(), id, uid)
	if err != nil {
		h.internalError(w, "getting crop", err)
		return
	}
	if crop == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	var req CreateCropRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	crop.Name = req.Name
	crop.Variety = req.Variety
	crop.AreaAcres = req.AreaAcres
	if req.Status != "" {
		crop.Status = req.Status
	}
	if err := h.crops.Update(r.Context(), crop); err != nil {
		h.internalError(w, "updating crop", err)
		return
	}
	api.JSON(w, http.StatusOK, crop)
}

func (h *Handler) DeleteCrop(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	id, err := uuid.Parse(chi.URLParam(r, "cropID"))
	if uid == "" || err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.crops.Delete(r.Context(), id, uid); err != nil {
		h.internalError(w, "deleting crop", err)
		return
	}
	api.JSONMessage(w, http.StatusOK, "crop deleted")
}

// --- tasks ---

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		api.HandleError(w, api.NewBadRequestError("user_id is required"))
		return
	}

	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	task := &Task{
		ID:      uuid.New(),
		UserID:  uid,
		Title:   req.Title,
		Details: req.Details,
		DueAt:   req.DueAt,
	}
	if err := h.tasks.Create(r.Context(), task); err != nil {
		h.internalError(w, "creating task", err)
		return
	}
	api.JSON(w, http.StatusCreated, task)
}

func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		api.HandleError(w, api.NewBadRequestError("user_id is required"))
		return
	}
	includeCompleted, _ := strconv.ParseBool(r.URL.Query().Get("include_completed"))

	tasks, err := h.tasks.List(r.Context(), uid, includeCompleted)
	if err != nil {
		h.internalError(w, "listing tasks", err)
		return
	}
	api.JSON(w, http.StatusOK, tasks)
}

func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	id, err := uuid.Parse(chi.URLParam(r, "taskID"))
	if uid == "" || err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	task, err := h.tasks.Get(r.Context(), id, uid)
	if err != nil {
		h.internalError(w, "getting task", err)
		return
	}
	if task == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	var req struct {
		Title     string     `json:"title"`
		Details   string     `json:"details"`
		DueAt     *time.Time `json:"due_at"`
		Completed *bool      `json:"completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if req.Title != "" {
		task.Title = req.Title
	}
	if req.Details != "" {
		task.Details = req.Details
	}
	if req.DueAt != nil {
		task.DueAt = req.DueAt
	}
	if req.Completed != nil {
		task.Completed = *req.Completed
	}
	if err := h.tasks.Update(r.Context(), task); err != nil {
		h.internalError(w, "updating task", err)
		return
	}
	api.JSON(w, http.StatusOK, task)
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	id, err := uuid.Parse(chi.URLParam(r, "taskID"))
	if uid == "" || err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.tasks.Delete(r.Context(), id, uid); err != nil {
		h.internalError(w, "deleting task", err)
		return
	}
	api.JSONMessage(w, http.StatusOK, "task deleted")
}

// --- notifications ---

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		api.HandleError(w, api.NewBadRequestError("user_id is required"))
		return
	}
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread_only"))

	items, err := h.notifications.List(r.Context(), uid, unreadOnly)
	if err != nil {
		h.internalError(w, "listing notifications", err)
		return
	}
	api.JSON(w, http.StatusOK, items)
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	id, err := uuid.Parse(chi.URLParam(r, "notificationID"))
	if uid == "" || err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.notifications.MarkRead(r.Context(), id, uid); err != nil {
		h.internalError(w, "marking notification read", err)
		return
	}
	api.JSONMessage(w, http.StatusOK, "notification read")
}

func (h *Handler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	id, err := uuid.Parse(chi.URLParam(r, "notificationID"))
	if uid == "" || err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.notifications.Delete(r.Context(), id, uid); err != nil {
		h.internalError(w, "deleting notification", err)
		return
	}
	api.JSONMessage(w, http.StatusOK, "notification deleted")
}

// --- health logs ---

func (h *Handler) ListHealthLogs(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		api.HandleError(w, api.NewBadRequestError("user_id is required"))
		return
	}
	limit := 10
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}

	logs, err := h.health.List(r.Context(), uid, limit)
	if err != nil {
		h.internalError(w, "listing health logs", err)
		return
	}
	api.JSON(w, http.StatusOK, logs)
}
