package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/krishimitra/krishimitra/internal/farm"
	"github.com/krishimitra/krishimitra/internal/metrics"
	"github.com/krishimitra/krishimitra/internal/providers"
)

// opKey identifies one operation in the registry: operation kind crossed
// with entity kind, the typed equivalent of a "create_task" name.
type opKey struct {
	op     OpKind
	entity Entity
}

// toolFunc executes one operation. It returns the result payload, a
// coarse UI-refresh hint ("refresh_tasks") or empty, and an error.
type toolFunc func(ctx context.Context, userID string, params map[string]any, tc *TurnContext) (any, string, error)

// ExecutorDeps are the collaborators the tool registry dispatches to.
type ExecutorDeps struct {
	Profiles      farm.ProfileRepository
	Crops         farm.CropRepository
	Tasks         farm.TaskRepository
	Notifications farm.NotificationRepository
	Health        farm.HealthLogRepository
	Geocoder      providers.Geocoder
	Weather       providers.WeatherClient
	Soil          providers.SoilClient
	Market        providers.MarketClient
}

// Executor dispatches actions through a fixed registry of entity-scoped
// operations. Failures are isolated per action: one failing action never
// aborts its siblings in the same turn.
type Executor struct {
	deps     ExecutorDeps
	registry map[opKey]toolFunc
}

// NewExecutor builds the executor and its operation registry.
func NewExecutor(deps ExecutorDeps) *Executor {
	e := &Executor{deps: deps}
	e.registry = map[opKey]toolFunc{
		{OpCreate, EntityCrop}: e.createCrop,
		{OpRead, EntityCrop}:   e.readCrops,
		{OpUpdate, EntityCrop}: e.updateCrop,
		{OpDelete, EntityCrop}: e.deleteCrop,

		{OpCreate, EntityTask}: e.createTask,
		{OpRead, EntityTask}:   e.readTasks,
		{OpUpdate, EntityTask}: e.updateTask,
		{OpDelete, EntityTask}: e.deleteTask,

		{OpCreate, EntityProfile}: e.upsertProfile,
		{OpRead, EntityProfile}:   e.readProfile,
		{OpUpdate, EntityProfile}: e.upsertProfile,
		{OpDelete, EntityProfile}: e.deleteProfile,

		{OpCreate, EntityNotification}: e.createNotification,
		{OpRead, EntityNotification}:   e.readNotifications,
		{OpUpdate, EntityNotification}: e.markNotificationRead,
		{OpDelete, EntityNotification}: e.deleteNotification,

		{OpCreate, EntityHealth}: e.createHealthLog,
		{OpRead, EntityHealth}:   e.readHealthLogs,

		{OpRead, EntityWeather}:        e.readWeather,
		{OpRead, EntitySoil}:           e.readSoil,
		{OpRead, EntityMarket}:         e.readMarket,
		{OpRead, EntityDisease}:        e.diagnoseDisease,
		{OpRead, EntityRecommendation}: e.recommendCrops,
	}
	return e
}

// ExecuteAll runs an action batch in order, collecting outcomes and
// merging UI-refresh hints.
func (e *Executor) ExecuteAll(ctx context.Context, actions []Action, userID string, tc *TurnContext) ([]ActionOutcome, map[string]bool) {
	outcomes := make([]ActionOutcome, 0, len(actions))
	ui := map[string]bool{}
	for _, act := range actions {
		outcome, hint := e.Execute(ctx, act, userID, tc)
		outcomes = append(outcomes, outcome)
		if hint != "" {
			ui[hint] = true
		}
	}
	return outcomes, ui
}

// Execute runs one action. Unknown operations and tool errors are
// reported in the outcome, never raised to the caller.
func (e *Executor) Execute(ctx context.Context, act Action, userID string, tc *TurnContext) (ActionOutcome, string) {
	outcome := ActionOutcome{Action: act}

	tool, ok := e.registry[opKey{act.Type, act.Entity}]
	if !ok {
		outcome.Error = fmt.Sprintf("operation %s not supported", act.Name())
		metrics.ToolExecutionsTotal.WithLabelValues(string(act.Entity), string(act.Type), "unsupported").Inc()
		return outcome, ""
	}

	result, hint, err := tool(ctx, userID, act.Params, tc)
	if err != nil {
		slog.Warn("tool execution failed", "op", act.Name(), "user_id", userID, "error", err)
		outcome.Error = err.Error()
		metrics.ToolExecutionsTotal.WithLabelValues(string(act.Entity), string(act.Type), "error").Inc()
		return outcome, ""
	}

	outcome.Success = true
	outcome.Result = result
	metrics.ToolExecutionsTotal.WithLabelValues(string(act.Entity), string(act.Type), "ok").Inc()
	return outcome, hint
}

// --- crops ---

func (e *Executor) createCrop(ctx context.Context, userID string, params map[string]any, _ *TurnContext) (any, string, error) {
	name := strParam(params, "name")
	if name == "" {
		return nil, "", fmt.Errorf("crop name is required")
	}
	sownAt, err := timeParam(params, "sown_at")
	if err != nil {
		return nil, "", err
	}
	area, _ := floatParam(params, "area_acres")
	status := strParam(params, "status")
	if status == "" {
		status = "planned"
	}

	crop := &farm.Crop{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		Variety:   strParam(params, "variety"),
		AreaAcres: area,
		SownAt:    sownAt,
		Status:    status,
	}
	if err := e.deps.Crops.Create(ctx, crop); err != nil {
		return nil, "", err
	}
	return crop, "refresh_crops", nil
}

func (e *Executor) readCrops(ctx context.Context, userID string, params map[string]any, _ *TurnContext) (any, string, error) {
	if strParam(params, "id") != "" {
		id, err := idParam(params, "id")
		if err != nil {
			return nil, "", err
		}
		crop, err := e.deps.Crops.Get(ctx, id, userID)
		if err != nil {
			return nil, "", err
		}
		if crop == nil {
			return nil, "", fmt.Errorf("crop not found")
		}
		return crop, "", nil
	}
	crops, err := e.deps.Crops.List(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	return map[string]any{"crops": crops, "count": len(crops)}, "", nil
}

func (e *Executor) updateCrop(ctx context.Context, userID string, params map[string]any, _ *TurnContext) (any, string, error) {
	id, err := idParam(params, "id")
	if err != nil {
		return nil, "", err
	}
	crop, err := e.deps.Crops.Get(ctx, id, userID)
	if err != nil {
		return nil, "", err
	}
	if crop == nil {
		return nil, "", fmt.Errorf("crop not found")
	}

	if v := strParam(params, "name"); v != "" {
		crop.Name = v
	}
	if v := strParam(params, "variety"); v != "" {
		crop.Variety = v
	}
	if v, ok := floatParam(params, "area_acres"); ok {
		crop.AreaAcres = v
	}
	if v := strParam(params, "status"); v != "" {
		crop.Status = v
	}
	if sownAt, err := timeParam(params, "sown_at"); err != nil {
		return nil, "", err
	} else if sownAt != nil {
		crop.SownAt = sownAt
	}

	if err := e.deps.Crops.Update(ctx, crop); err != nil {
		return nil, "", err
	}
	return crop, "refresh_crops", nil
}

func (e *Executor) deleteCrop(ctx context.Context, userID string, params map[string]any, _ *TurnContext) (any, string, error) {
	id, err := idParam(params, "id")
	if err != nil {
		return nil, "", err
	}
	if err := e.deps.Crops.Delete(ctx, id, userID); err != nil {
		return nil, "", err
	}
	return map[string]any{"deleted": id}, "refresh_crops", nil
}

// --- tasks ---

func (e *Executor) createTask(ctx context.Context, userID string, params map[string]any, _ *TurnContext) (any, string, error) {
	title := strParam(params, "title")
	if title == "" {
		return nil, "", fmt.Errorf("task title is required")
	}
	dueAt, err := timeParam(params, "due_at")
	if err != nil {
		return nil, "", err
	}

	task := &farm.Task{
		ID:      uuid.New(),
		UserID:  userID,
		Title:   title,
		Details: strParam(params, "details"),
		DueAt:   dueAt,
	}
	if err := e.deps.Tasks.Create(ctx, task); err != nil {
		return nil, "", err
	}
	return task, "refresh_tasks", nil
}

func (e *Executor) readTasks(ctx context.Context, userID string, params map[string]any, _ *TurnContext) (any, string, error) {
	includeCompleted, _ := boolParam(params, "include_completed")
	tasks, err := e.deps.Tasks.List(ctx, userID, includeCompleted)
	if err != nil {
		return nil, "", err
	}
	return map[string]any{"tasks": tasks, "count": len(tasks)}, "", nil
}

func (e *Executor) updateTask(ctx context.Context, userID string, params map[string]any, _ *TurnContext) (any, string, error) {
	id, err := idParam(params, "id")
	if err != nil {
		return nil, "", err
	}
	task, err := e.deps.Tasks.Get(ctx, id, userID)
	if err != nil {
		return nil, "", err
	}
	if task == nil {
		return nil, "", fmt.Errorf("task not found")
	}

	if v := strParam(params, "title"); v != "" {
		task.Title = v
	}
	if v := strParam(params, "details"); v != "" {
		task.Details = v
	}
	if v, ok := boolParam(params, "completed"); ok {
		task.Completed = v
	}
	if dueAt, err := timeParam(params, "due_at"); err != nil {
		return nil, "", err
	} else if dueAt != nil {
		task.DueAt = dueAt
	}

	if err := e.deps.Tasks.Update(ctx, task); err != nil {
		return nil, "", err
	}
	return task, "refresh_tasks", nil
}

func (e *Executor) deleteTask(ctx context.Context, userID string, params map[string]any, _ *TurnContext) (any, string, error) {
	id, err := idParam(params, "id")
	if err != nil {
		return nil, "", err
	}
	if err := e.deps.Tasks.Delete(ctx, id, userID); err != nil {
		return nil, "", err
	}
	return map[string]any{"deleted": id}, "refresh_tasks", nil
}

// --- profile ---

// upsertProfile serves both create and update: the profile is keyed by
// user id, so creating twice is an update.
func (e *Executor) upsertProfile(ctx context.Context, userID string, params map[string]any, _ *TurnContext) (any, string, error) {
	profile, err := e.deps.Profiles.Get(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if profile == nil {
		profile = &farm.Profile{UserID: userID}
	}

	if v := strParam(params, "name"); v != "" {
		profile.Name = v
	}
	if v := strParam(params, "village"); v != "" {
		profile.Village = v
	}
	if v := strParam(params, "district"); v != "" {
		profile.District = v
	}
	if v := strParam(params, "state"); v != "" {
		profile.State = v
	}
	if v := strParam(params, "pincode"); v != "" {
		profile.Pincode = v
	}
	if v := strParam(params, "language"); v != "" {
		profile.Language = v
	}
	if v, ok := floatParam(params, "lat"); ok {
		profile.Lat = v
	}
	if v, ok := floatParam(params, "lon"); ok {
		profile.Lon = v
	}
	if v, ok := floatParam(params, "land_acres"); ok {
		profile.LandAcres = v
	}

	if err := e.deps.Profiles.Upsert(ctx, profile); err != nil {
		return nil, "", err
	}
	return profile, "refresh_profile", nil
}

func (e *Executor) readProfile(ctx context.Context, userID string, _ map[string]any, _ *TurnContext) (any, string, error) {
	profile, err := e.deps.Profiles.Get(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if profile == nil {
		return nil, "", fmt.Errorf("no profile saved yet")
	}
	return profile, "", nil
}

func (e *Executor) deleteProfile(ctx context.Context, userID string, _ map[string]any, _ *TurnContext) (any, string, error) {
	if err := e.deps.Profiles.Delete(ctx, userID); err != nil {
		return nil, "", err
	}
	return map[string]any{"deleted": userID}, "refresh_profile", nil
}

// --- notifications ---

func (e *Executor) createNotification(ctx context.Context, userID string, params map[string]any, _ *TurnContext) (any, string, error) {
	text := strParam(params, "text")
	if text == "" {
		return nil, "", fmt.Errorf("notification text is required")
	}
	priority := strParam(params, "priority")
	if priority == "" {
		priority = "medium"
	}

	n := &farm.Notification{
		ID:       uuid.New(),
		UserID:   userID,
		Text:     text,
		Priority: priority,
	}
	if err := e.deps.Notifications.Create(ctx, n); err != nil {
		return nil, "", err
	}
	return n, "refresh_notifications", nil
}

func (e *Executor) readNotifications(ctx context.Context, userID string, params map[string]any, _ *TurnContext) (any, string, error) {
	unreadOnly, _ := boolParam(params, "unread_only")
	items, err := e.deps.Notifications.List(ctx, userID, unreadOnly)
	if err != nil {
		return nil, "", err
	}
	return map[string]any{"notifications": items, "count": len(items)}, "", nil
}

func (e *Executor) markNotificationRead(ctx context.Context, userID string, params map[string]any, _ *TurnContext) (any, string, error) {
	id, err := idParam(params, "id")
	if err != nil {
		return nil, "", err
	}
	if err := e.deps.Notifications.MarkRead(ctx, id, userID); err != nil {
		return nil, "", err
	}
	return map[string]any{"read": id}, "refresh_notifications", nil
}

func (e *Executor) deleteNotification(ctx context.Context, userID string, params map[string]any, _ *TurnContext) (any, string, error) {
	id, err := idParam(params, "id")
	if err != nil {
		return nil, "", err
	}
	if err := e.deps.Notifications.Delete(ctx, id, userID); err != nil {
		return nil, "", err
	}
	return map[string]any{"deleted": id}, "refresh_notifications", nil
}

// --- health logs & disease diagnosis ---

func (e *Executor) createHealthLog(ctx context.Context, userID string, params map[string]any, tc *TurnContext) (any, string, error) {
	crop := strParam(params, "crop")
	if crop == "" && tc != nil {
		crop = tc.ActiveCrop
	}
	if crop == "" {
		return nil, "", fmt.Errorf("crop name is required for a health log")
	}
	symptoms := strParam(params, "symptoms")
	if symptoms == "" {
		return nil, "", fmt.Errorf("symptoms are required for a health log")
	}

	log := &farm.HealthLog{
		ID:       uuid.New(),
		UserID:   userID,
		CropName: crop,
		Symptoms: symptoms,
	}
	diagnosis := providers.Diagnose(crop, symptoms)
	if diagnosis != nil {
		log.Diagnosis = diagnosis.Disease
	}
	if err := e.deps.Health.Create(ctx, log); err != nil {
		return nil, "", err
	}
	return map[string]any{"log": log, "diagnosis": diagnosis}, "refresh_health", nil
}

func (e *Executor) readHealthLogs(ctx context.Context, userID string, params map[string]any, _ *TurnContext) (any, string, error) {
	limit := intParam(params, "limit", 10)
	logs, err := e.deps.Health.List(ctx, userID, limit)
	if err != nil {
		return nil, "", err
	}
	return map[string]any{"logs": logs, "count": len(logs)}, "", nil
}

func (e *Executor) diagnoseDisease(_ context.Context, _ string, params map[string]any, tc *TurnContext) (any, string, error) {
	crop := strParam(params, "crop")
	if crop == "" && tc != nil {
		crop = tc.ActiveCrop
	}
	if crop == "" {
		return nil, "", fmt.Errorf("crop name is required for diagnosis")
	}
	symptoms := strParam(params, "symptoms")
	if symptoms == "" {
		return nil, "", fmt.Errorf("symptom description is required for diagnosis")
	}

	diagnosis := providers.Diagnose(crop, symptoms)
	if diagnosis == nil {
		return map[string]any{
			"diagnosis":   nil,
			"known_crops": providers.KnownCrops(),
		}, "", nil
	}
	return map[string]any{"diagnosis": diagnosis}, "", nil
}

// --- read-only geo tools ---

func (e *Executor) readWeather(ctx context.Context, _ string, params map[string]any, tc *TurnContext) (any, string, error) {
	lat, lon := e.resolveCoords(ctx, params, tc)
	snapshot, err := e.deps.Weather.Fetch(ctx, lat, lon)
	if err != nil {
		return nil, "", err
	}
	if tc != nil {
		tc.Weather = snapshot
	}
	return snapshot, "", nil
}

func (e *Executor) readSoil(ctx context.Context, _ string, params map[string]any, tc *TurnContext) (any, string, error) {
	lat, lon := e.resolveCoords(ctx, params, tc)
	snapshot, err := e.deps.Soil.Fetch(ctx, lat, lon)
	if err != nil {
		return nil, "", err
	}
	return snapshot, "", nil
}

func (e *Executor) readMarket(ctx context.Context, _ string, params map[string]any, tc *TurnContext) (any, string, error) {
	state := strParam(params, "state")
	district := strParam(params, "district")
	crop := strParam(params, "crop")
	if tc != nil {
		if state == "" {
			state = tc.State
		}
		if district == "" {
			district = tc.District
		}
		if crop == "" {
			crop = tc.ActiveCrop
		}
	}

	rows, err := e.deps.Market.Prices(ctx, state, district, crop)
	if err != nil {
		return nil, "", err
	}
	return map[string]any{"prices": rows, "count": len(rows)}, "", nil
}

func (e *Executor) recommendCrops(ctx context.Context, _ string, params map[string]any, tc *TurnContext) (any, string, error) {
	lat, lon := e.resolveCoords(ctx, params, tc)

	// Soil and weather enrichment are independent; fetch them together.
	var (
		wg      sync.WaitGroup
		soil    *providers.SoilSnapshot
		weather *providers.WeatherSnapshot
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		s, err := e.deps.Soil.Fetch(ctx, lat, lon)
		if err != nil {
			slog.Warn("soil enrichment failed", "error", err)
			return
		}
		soil = s
	}()
	go func() {
		defer wg.Done()
		w, err := e.deps.Weather.Fetch(ctx, lat, lon)
		if err != nil {
			slog.Warn("weather enrichment failed", "error", err)
			return
		}
		weather = w
	}()
	wg.Wait()

	season := strParam(params, "season")
	if season == "" {
		season = seasonFor(time.Now())
	}
	data := providers.LocationData{Season: season}
	if tc != nil {
		data.State = tc.State
	}
	if v := strParam(params, "state"); v != "" {
		data.State = v
	}
	if soil != nil {
		data.SoilPH = soil.PHWater
	}
	if v, ok := floatParam(params, "rainfall_mm"); ok {
		data.RainfallMM = v
	}

	recs := providers.Recommend(data, intParam(params, "limit", 3))
	result := map[string]any{"recommendations": recs, "season": season}
	if soil != nil {
		result["soil"] = soil
	}
	if weather != nil {
		result["weather"] = weather
	}
	return result, "", nil
}

// resolveCoords finds coordinates for a read-only geo tool: explicit
// params, then turn context, then geocoding a known place name, then the
// profile, and finally the fixed default. Reads never fail purely for
// missing coordinates.
func (e *Executor) resolveCoords(ctx context.Context, params map[string]any, tc *TurnContext) (float64, float64) {
	if lat, ok := floatParam(params, "lat"); ok {
		if lon, ok := floatParam(params, "lon"); ok {
			return lat, lon
		}
	}
	if tc != nil && tc.Lat != 0 && tc.Lon != 0 {
		return tc.Lat, tc.Lon
	}

	name := strParam(params, "location")
	if name == "" && tc != nil {
		for _, candidate := range []string{tc.Location, tc.City, tc.District, tc.State} {
			if candidate != "" {
				name = candidate
				break
			}
		}
	}
	if name != "" && e.deps.Geocoder != nil {
		place, err := e.deps.Geocoder.Forward(ctx, name)
		if err != nil {
			slog.Warn("geocoding failed, using defaults", "place", name, "error", err)
		} else if place != nil {
			return place.Lat, place.Lon
		}
	}

	if tc != nil && tc.Profile != nil && tc.Profile.Lat != 0 && tc.Profile.Lon != 0 {
		return tc.Profile.Lat, tc.Profile.Lon
	}
	return providers.DefaultLat, providers.DefaultLon
}

// seasonFor buckets a date into the Indian cropping season.
func seasonFor(t time.Time) string {
	switch t.Month() {
	case time.June, time.July, time.August, time.September, time.October:
		return "kharif"
	case time.November, time.December, time.January, time.February, time.March:
		return "rabi"
	default:
		return "zaid"
	}
}
