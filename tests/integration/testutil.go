//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/krishimitra/krishimitra/internal/agent"
	"github.com/krishimitra/krishimitra/internal/api"
	"github.com/krishimitra/krishimitra/internal/audit"
	"github.com/krishimitra/krishimitra/internal/farm"
	"github.com/krishimitra/krishimitra/internal/llm"
	"github.com/krishimitra/krishimitra/internal/memory"
)

// scriptedLLM returns canned output per role so agent turns are
// deterministic without a model server.
type scriptedLLM struct {
	mu     sync.Mutex
	byRole map[llm.Role]string
}

func (s *scriptedLLM) Generate(_ context.Context, role llm.Role, _ map[string]any, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if out, ok := s.byRole[role]; ok {
		return out, nil
	}
	return "", fmt.Errorf("no scripted output for role %q", role)
}

func (s *scriptedLLM) Script(role llm.Role, out string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byRole == nil {
		s.byRole = map[llm.Role]string{}
	}
	s.byRole[role] = out
}

type TestEnv struct {
	Pool        *pgxpool.Pool
	RedisClient *redis.Client
	Server      *httptest.Server
	LLM         *scriptedLLM
	Memory      *memory.Store
	Tasks       farm.TaskRepository
	Profiles    farm.ProfileRepository
}

var testEnv *TestEnv

func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if testEnv != nil {
		return testEnv
	}

	ctx := context.Background()

	// Start PostgreSQL container (pgvector image: conversations need the
	// vector extension)
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "pgvector/pgvector:0.8.1-pg16",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "krishi_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	pgHost, _ := pgContainer.Host(ctx)
	pgPort, _ := pgContainer.MappedPort(ctx, "5432")

	// Start Redis container
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting redis container: %v", err)
	}
	t.Cleanup(func() { redisContainer.Terminate(ctx) })

	redisHost, _ := redisContainer.Host(ctx)
	redisPort, _ := redisContainer.MappedPort(ctx, "6379")

	// Connect to PostgreSQL
	dsn := fmt.Sprintf("postgres://test:test@%s:%s/krishi_test?sslmode=disable", pgHost, pgPort.Port())
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	// Run migrations
	m, err := migrate.New(
		fmt.Sprintf("file://%s", getMigrationsPath()),
		dsn,
	)
	if err != nil {
		t.Fatalf("creating migrator: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("running migrations: %v", err)
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port()),
	})
	t.Cleanup(func() { redisClient.Close() })

	// Farm repositories
	profileRepo := farm.NewProfileRepository(pool)
	cropRepo := farm.NewCropRepository(pool)
	taskRepo := farm.NewTaskRepository(pool)
	notificationRepo := farm.NewNotificationRepository(pool)
	healthRepo := farm.NewHealthLogRepository(pool)

	// Memory tiers (no embedder: recall stays off in integration runs)
	shortTerm, err := memory.NewShortTermCache(64, 20)
	if err != nil {
		t.Fatalf("creating short-term cache: %v", err)
	}
	working := memory.NewWorkingStore(redisClient, time.Hour)
	memStore := memory.NewStore(memory.NewPostgresRepository(pool), shortTerm, working, profileRepo, nil, 0)

	// Turn pipeline with a scripted model
	client := &scriptedLLM{}
	executor := agent.NewExecutor(agent.ExecutorDeps{
		Profiles:      profileRepo,
		Crops:         cropRepo,
		Tasks:         taskRepo,
		Notifications: notificationRepo,
		Health:        healthRepo,
	})
	core := agent.New(agent.Deps{
		Engine:      agent.NewEngine(client, false),
		Gate:        agent.NewGate(nil),
		Executor:    executor,
		Synthesizer: agent.NewSynthesizer(client),
		Memory:      memStore,
		Tasks:       taskRepo,
		RainAlert:   70,
	})

	agentHandler := agent.NewHandler(core)
	farmHandler := farm.NewHandler(profileRepo, cropRepo, taskRepo, notificationRepo, healthRepo)
	auditHandler := audit.NewHandler(audit.NewRepository(pool))

	router := api.NewRouter(pool, nil, api.RouterConfig{}, api.HandlerSet{
		AgentQuery: agentHandler.Query,

		GetProfile:    farmHandler.GetProfile,
		UpsertProfile: farmHandler.UpsertProfile,
		DeleteProfile: farmHandler.DeleteProfile,

		CreateCrop: farmHandler.CreateCrop,
		ListCrops:  farmHandler.ListCrops,
		GetCrop:    farmHandler.GetCrop,
		UpdateCrop: farmHandler.UpdateCrop,
		DeleteCrop: farmHandler.DeleteCrop,

		CreateTask: farmHandler.CreateTask,
		ListTasks:  farmHandler.ListTasks,
		UpdateTask: farmHandler.UpdateTask,
		DeleteTask: farmHandler.DeleteTask,

		ListNotifications:    farmHandler.ListNotifications,
		MarkNotificationRead: farmHandler.MarkNotificationRead,
		DeleteNotification:   farmHandler.DeleteNotification,

		ListHealthLogs: farmHandler.ListHealthLogs,

		ListAuditEvents: auditHandler.List,
	})

	server := httptest.NewServer(router)
	t.Cleanup(func() { server.Close() })

	testEnv = &TestEnv{
		Pool:        pool,
		RedisClient: redisClient,
		Server:      server,
		LLM:         client,
		Memory:      memStore,
		Tasks:       taskRepo,
		Profiles:    profileRepo,
	}

	return testEnv
}

func getMigrationsPath() string {
	paths := []string{
		"../../migrations",
		"../../../migrations",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	log.Fatal("migrations directory not found")
	return ""
}

// Helper functions

func DoRequest(t *testing.T, env *TestEnv, method, path string, body any) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, env.Server.URL+path, bodyReader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("doing request: %v", err)
	}
	return resp
}

func ParseResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	return result
}

var _uniqueCounter int64

func uniqueID() int64 {
	_uniqueCounter++
	return _uniqueCounter
}
