package agent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/krishimitra/krishimitra/internal/farm"
	"github.com/krishimitra/krishimitra/internal/memory"
	"github.com/krishimitra/krishimitra/internal/metrics"
	knats "github.com/krishimitra/krishimitra/internal/nats"
	"github.com/krishimitra/krishimitra/internal/providers"
)

// MemoryStore is the slice of the memory service the turn pipeline uses.
type MemoryStore interface {
	GetContext(ctx context.Context, userID string) *memory.Context
	AppendConversation(ctx context.Context, userID, role, content string) error
	SemanticRecall(ctx context.Context, userID, query string) []memory.RecalledTurn
}

// EventPublisher emits turn and audit events. Optional and best-effort.
type EventPublisher interface {
	PublishTurnEvent(ctx context.Context, event knats.TurnEvent) error
	PublishAuditEvent(ctx context.Context, event knats.AuditEvent) error
}

// Deps wires the turn pipeline together.
type Deps struct {
	Engine      *Engine
	Gate        *Gate
	Executor    *Executor
	Synthesizer *Synthesizer
	Memory      MemoryStore
	Geocoder    providers.Geocoder  // nil disables reverse geocoding
	Tasks       farm.TaskRepository // nil disables overdue-task suggestions
	Events      EventPublisher      // nil disables eventing
	RainAlert   float64
}

// Agent is the orchestration core: one ProcessTurn call per user
// message, one decision -> tool execution -> synthesis round, no
// re-planning loop.
type Agent struct {
	engine    *Engine
	gate      *Gate
	executor  *Executor
	synth     *Synthesizer
	memory    MemoryStore
	geocoder  providers.Geocoder
	tasks     farm.TaskRepository
	events    EventPublisher
	rainAlert float64
}

func New(d Deps) *Agent {
	return &Agent{
		engine:    d.Engine,
		gate:      d.Gate,
		executor:  d.Executor,
		synth:     d.Synthesizer,
		memory:    d.Memory,
		geocoder:  d.Geocoder,
		tasks:     d.Tasks,
		events:    d.Events,
		rainAlert: d.RainAlert,
	}
}

// ProcessTurn runs one full turn. Every return path yields a complete
// envelope: a failed turn carries empty speech plus a machine-readable
// error, never filler text.
func (a *Agent) ProcessTurn(ctx context.Context, message, userID string, callerCtx map[string]any) Response {
	started := time.Now()
	timings := map[string]int64{}

	if strings.TrimSpace(message) == "" {
		metrics.TurnsTotal.WithLabelValues("none", "rejected").Inc()
		timings["total_ms"] = msSince(started)
		return failureResponse("empty message", timings)
	}

	stage := time.Now()
	tc := a.resolveContext(ctx, userID, message, callerCtx)
	timings["context_ms"] = msSince(stage)

	stage = time.Now()
	decision, err := a.engine.Decide(ctx, message, tc)
	if err != nil {
		slog.Error("turn failed at decision", "user_id", userID, "error", err)
		metrics.TurnsTotal.WithLabelValues("none", "error").Inc()
		timings["decision_ms"] = msSince(stage)
		timings["total_ms"] = msSince(started)
		return failureResponse(err.Error(), timings)
	}
	decision = a.gate.Check(decision, tc)
	timings["decision_ms"] = msSince(stage)

	stage = time.Now()
	outcomes, uiUpdates := a.executor.ExecuteAll(ctx, decision.Actions, userID, tc)
	timings["tools_ms"] = msSince(stage)

	stage = time.Now()
	speech := a.synth.Rewrite(ctx, decision, outcomes)
	timings["synthesis_ms"] = msSince(stage)

	suggestions := GenerateSuggestions(tc, decision.Intent, a.rainAlert)

	if err := a.memory.AppendConversation(ctx, userID, "user", message); err != nil {
		slog.Warn("storing user turn failed", "user_id", userID, "error", err)
	}
	if speech != "" {
		if err := a.memory.AppendConversation(ctx, userID, "assistant", speech); err != nil {
			slog.Warn("storing assistant turn failed", "user_id", userID, "error", err)
		}
	}

	timings["total_ms"] = msSince(started)
	response := Response{
		Success:      true,
		Speech:       speech,
		Suggestions:  suggestions,
		ActionsTaken: outcomes,
		UIUpdates:    uiUpdates,
		Timings:      timings,
	}

	a.publishTurn(ctx, userID, decision.Intent, response)
	a.publishAudit(ctx, userID, outcomes)
	metrics.TurnsTotal.WithLabelValues(decision.Intent, "ok").Inc()
	metrics.TurnDuration.Observe(time.Since(started).Seconds())
	return response
}

// resolveContext builds the turn context in three layers: memory,
// caller-supplied fields, then derived fields. Later layers override
// earlier ones.
func (a *Agent) resolveContext(ctx context.Context, userID, message string, caller map[string]any) *TurnContext {
	mem := a.memory.GetContext(ctx, userID)
	tc := &TurnContext{
		UserID:      userID,
		Timestamp:   time.Now().UTC(),
		Language:    "en",
		History:     mem.History,
		Preferences: mem.Preferences,
		Working:     mem.Working,
		Profile:     mem.Profile,
	}

	if lang := mem.Preferences["language"]; lang != "" {
		tc.Language = lang
	}
	if p := mem.Profile; p != nil {
		tc.Location = p.Village
		tc.District = p.District
		tc.State = p.State
		tc.Lat, tc.Lon = p.Lat, p.Lon
		if p.Language != "" {
			tc.Language = p.Language
		}
	}
	if crop, ok := mem.Working["active_crop"].(string); ok && crop != "" {
		tc.ActiveCrop = crop
	}

	applyCallerContext(tc, caller)

	// Derived: a coordinate pair without a place name gets one back.
	if tc.Location == "" && tc.City == "" && tc.Lat != 0 && tc.Lon != 0 && a.geocoder != nil {
		place, err := a.geocoder.Reverse(ctx, tc.Lat, tc.Lon)
		if err != nil {
			slog.Warn("reverse geocoding failed", "user_id", userID, "error", err)
		} else if place != nil {
			tc.Location = place.Name
			if tc.City == "" {
				tc.City = place.City
			}
			if tc.District == "" {
				tc.District = place.District
			}
			if tc.State == "" {
				tc.State = place.State
			}
		}
	}

	tc.Recalled = a.memory.SemanticRecall(ctx, userID, message)

	if a.tasks != nil {
		overdue, err := a.tasks.ListOverdue(ctx, userID, time.Now())
		if err != nil {
			slog.Warn("overdue task lookup failed", "user_id", userID, "error", err)
		} else {
			tc.OverdueTasks = overdue
		}
	}
	return tc
}

func applyCallerContext(tc *TurnContext, caller map[string]any) {
	if caller == nil {
		return
	}
	if v, ok := floatParam(caller, "lat"); ok {
		tc.Lat = v
	}
	if v, ok := floatParam(caller, "lon"); ok {
		tc.Lon = v
	}
	for key, dst := range map[string]*string{
		"location":    &tc.Location,
		"city":        &tc.City,
		"district":    &tc.District,
		"state":       &tc.State,
		"language":    &tc.Language,
		"active_crop": &tc.ActiveCrop,
	} {
		if v := strParam(caller, key); v != "" {
			*dst = v
		}
	}
}

func (a *Agent) publishTurn(ctx context.Context, userID, intent string, resp Response) {
	if a.events == nil {
		return
	}
	event := knats.TurnEvent{
		UserID:     userID,
		Intent:     intent,
		Success:    resp.Success,
		Actions:    len(resp.ActionsTaken),
		DurationMS: resp.Timings["total_ms"],
		Timestamp:  time.Now().UTC(),
	}
	if err := a.events.PublishTurnEvent(ctx, event); err != nil {
		slog.Warn("publishing turn event failed", "user_id", userID, "error", err)
	}
}

// publishAudit emits one audit event per successful mutating action.
func (a *Agent) publishAudit(ctx context.Context, userID string, outcomes []ActionOutcome) {
	if a.events == nil {
		return
	}
	for _, o := range outcomes {
		if !o.Success || o.Action.Type == OpRead {
			continue
		}
		event := knats.AuditEvent{
			UserID:       userID,
			EventType:    o.Action.Name(),
			Severity:     "info",
			ResourceType: string(o.Action.Entity),
			Timestamp:    time.Now().UTC(),
		}
		if err := a.events.PublishAuditEvent(ctx, event); err != nil {
			slog.Warn("publishing audit event failed", "user_id", userID, "op", o.Action.Name(), "error", err)
		}
	}
}

func failureResponse(errMsg string, timings map[string]int64) Response {
	return Response{
		Success:      false,
		Speech:       "",
		Error:        errMsg,
		Suggestions:  []Suggestion{},
		ActionsTaken: []ActionOutcome{},
		UIUpdates:    map[string]bool{},
		Timings:      timings,
	}
}

func msSince(t time.Time) int64 {
	return time.Since(t).Milliseconds()
}
