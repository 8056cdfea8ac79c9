package agent

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/krishimitra/krishimitra/internal/farm"
	"github.com/krishimitra/krishimitra/internal/llm"
	"github.com/krishimitra/krishimitra/internal/memory"
	"github.com/krishimitra/krishimitra/internal/providers"
)

// fakeLLM serves canned responses per prompt role and counts calls.
type fakeLLM struct {
	byRole map[llm.Role]string
	err    error
	calls  int
}

func (f *fakeLLM) Generate(_ context.Context, role llm.Role, _ map[string]any, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.byRole[role], nil
}

// --- farm repository fakes ---

type memCrops struct {
	items map[uuid.UUID]*farm.Crop
	err   error
}

func newMemCrops() *memCrops { return &memCrops{items: map[uuid.UUID]*farm.Crop{}} }

func (m *memCrops) Create(_ context.Context, c *farm.Crop) error {
	if m.err != nil {
		return m.err
	}
	cp := *c
	m.items[c.ID] = &cp
	return nil
}

func (m *memCrops) List(_ context.Context, userID string) ([]farm.Crop, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []farm.Crop
	for _, c := range m.items {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memCrops) Get(_ context.Context, id uuid.UUID, userID string) (*farm.Crop, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.items[id]
	if !ok || c.UserID != userID {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *memCrops) Update(_ context.Context, c *farm.Crop) error {
	if _, ok := m.items[c.ID]; !ok {
		return farm.ErrNotFound
	}
	cp := *c
	m.items[c.ID] = &cp
	return nil
}

func (m *memCrops) Delete(_ context.Context, id uuid.UUID, _ string) error {
	if _, ok := m.items[id]; !ok {
		return farm.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

type memTasks struct {
	items   map[uuid.UUID]*farm.Task
	err     error
	overdue []farm.Task
}

func newMemTasks() *memTasks { return &memTasks{items: map[uuid.UUID]*farm.Task{}} }

func (m *memTasks) Create(_ context.Context, t *farm.Task) error {
	if m.err != nil {
		return m.err
	}
	cp := *t
	m.items[t.ID] = &cp
	return nil
}

func (m *memTasks) List(_ context.Context, userID string, includeCompleted bool) ([]farm.Task, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []farm.Task
	for _, t := range m.items {
		if t.UserID == userID && (includeCompleted || !t.Completed) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memTasks) Get(_ context.Context, id uuid.UUID, userID string) (*farm.Task, error) {
	t, ok := m.items[id]
	if !ok || t.UserID != userID {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (m *memTasks) Update(_ context.Context, t *farm.Task) error {
	if _, ok := m.items[t.ID]; !ok {
		return farm.ErrNotFound
	}
	cp := *t
	m.items[t.ID] = &cp
	return nil
}

func (m *memTasks) Delete(_ context.Context, id uuid.UUID, _ string) error {
	if _, ok := m.items[id]; !ok {
		return farm.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memTasks) ListOverdue(_ context.Context, _ string, _ time.Time) ([]farm.Task, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.overdue, nil
}

type memProfiles struct {
	items map[string]*farm.Profile
	err   error
}

func newMemProfiles() *memProfiles { return &memProfiles{items: map[string]*farm.Profile{}} }

func (m *memProfiles) Upsert(_ context.Context, p *farm.Profile) error {
	if m.err != nil {
		return m.err
	}
	cp := *p
	m.items[p.UserID] = &cp
	return nil
}

func (m *memProfiles) Get(_ context.Context, userID string) (*farm.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.items[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memProfiles) Delete(_ context.Context, userID string) error {
	if _, ok := m.items[userID]; !ok {
		return farm.ErrNotFound
	}
	delete(m.items, userID)
	return nil
}

type memNotifications struct {
	items map[uuid.UUID]*farm.Notification
}

func newMemNotifications() *memNotifications {
	return &memNotifications{items: map[uuid.UUID]*farm.Notification{}}
}

func (m *memNotifications) Create(_ context.Context, n *farm.Notification) error {
	cp := *n
	m.items[n.ID] = &cp
	return nil
}

func (m *memNotifications) List(_ context.Context, userID string, unreadOnly bool) ([]farm.Notification, error) {
	var out []farm.Notification
	for _, n := range m.items {
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (m *memNotifications) MarkRead(_ context.Context, id uuid.UUID, _ string) error {
	n, ok := m.items[id]
	if !ok {
		return farm.ErrNotFound
	}
	n.Read = true
	return nil
}

func (m *memNotifications) Delete(_ context.Context, id uuid.UUID, _ string) error {
	if _, ok := m.items[id]; !ok {
		return farm.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

type memHealth struct {
	items []farm.HealthLog
}

func (m *memHealth) Create(_ context.Context, h *farm.HealthLog) error {
	m.items = append(m.items, *h)
	return nil
}

func (m *memHealth) List(_ context.Context, userID string, limit int) ([]farm.HealthLog, error) {
	var out []farm.HealthLog
	for _, h := range m.items {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- provider fakes ---

type fakeGeocoder struct {
	forward    *providers.Place
	forwardErr error
	reverse    *providers.Place
	reverseErr error
	lastQuery  string
}

func (f *fakeGeocoder) Forward(_ context.Context, name string) (*providers.Place, error) {
	f.lastQuery = name
	return f.forward, f.forwardErr
}

func (f *fakeGeocoder) Reverse(_ context.Context, _, _ float64) (*providers.Place, error) {
	return f.reverse, f.reverseErr
}

type fakeWeather struct {
	snap    *providers.WeatherSnapshot
	err     error
	lastLat float64
	lastLon float64
}

func (f *fakeWeather) Fetch(_ context.Context, lat, lon float64) (*providers.WeatherSnapshot, error) {
	f.lastLat, f.lastLon = lat, lon
	return f.snap, f.err
}

type fakeSoil struct {
	snap *providers.SoilSnapshot
	err  error
}

func (f *fakeSoil) Fetch(_ context.Context, _, _ float64) (*providers.SoilSnapshot, error) {
	return f.snap, f.err
}

type fakeMarket struct {
	rows         []providers.PriceRow
	err          error
	lastState    string
	lastDistrict string
	lastCrop     string
}

func (f *fakeMarket) Prices(_ context.Context, state, district, crop string) ([]providers.PriceRow, error) {
	f.lastState, f.lastDistrict, f.lastCrop = state, district, crop
	return f.rows, f.err
}

// --- memory fake ---

type fakeMemory struct {
	ctx       *memory.Context
	appends   []string // "role:content"
	appendErr error
	recalled  []memory.RecalledTurn
}

func (f *fakeMemory) GetContext(_ context.Context, _ string) *memory.Context {
	if f.ctx != nil {
		return f.ctx
	}
	return &memory.Context{Preferences: map[string]string{}, Working: map[string]any{}}
}

func (f *fakeMemory) AppendConversation(_ context.Context, _ string, role, content string) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appends = append(f.appends, role+":"+content)
	return nil
}

func (f *fakeMemory) SemanticRecall(_ context.Context, _, _ string) []memory.RecalledTurn {
	return f.recalled
}

// testExecutor builds an executor over fresh in-memory fakes.
func testExecutor() (*Executor, *memCrops, *memTasks, *fakeWeather, *fakeGeocoder) {
	crops := newMemCrops()
	tasks := newMemTasks()
	weather := &fakeWeather{snap: &providers.WeatherSnapshot{TempC: 30, RainProbability: 20, Condition: "clear"}}
	geocoder := &fakeGeocoder{}
	e := NewExecutor(ExecutorDeps{
		Profiles:      newMemProfiles(),
		Crops:         crops,
		Tasks:         tasks,
		Notifications: newMemNotifications(),
		Health:        &memHealth{},
		Geocoder:      geocoder,
		Weather:       weather,
		Soil:          &fakeSoil{snap: &providers.SoilSnapshot{PHWater: 6.5}},
		Market:        &fakeMarket{},
	})
	return e, crops, tasks, weather, geocoder
}

var errBoom = errors.New("boom")
