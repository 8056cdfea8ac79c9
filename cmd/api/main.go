package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/krishimitra/krishimitra/internal/agent"
	"github.com/krishimitra/krishimitra/internal/api"
	"github.com/krishimitra/krishimitra/internal/audit"
	"github.com/krishimitra/krishimitra/internal/config"
	"github.com/krishimitra/krishimitra/internal/database"
	"github.com/krishimitra/krishimitra/internal/farm"
	"github.com/krishimitra/krishimitra/internal/llm"
	"github.com/krishimitra/krishimitra/internal/memory"
	"github.com/krishimitra/krishimitra/internal/middleware"
	knats "github.com/krishimitra/krishimitra/internal/nats"
	"github.com/krishimitra/krishimitra/internal/providers"
	iredis "github.com/krishimitra/krishimitra/internal/redis"
	"github.com/krishimitra/krishimitra/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(cfg.DB.DSN(), "migrations"); err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS JetStream (optional)
	var natsClient *knats.Client
	var publisher *knats.Publisher
	if cfg.NATS.Enabled {
		natsClient, err = knats.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to nats", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		publisher = knats.NewPublisher(natsClient.JetStream())
	}

	// LLM client: decision engine, synthesizer and (optionally) embedder
	llmClient := llm.NewOpenAICompatible(cfg.LLM)

	// External data providers
	provSet := providers.NewSet(cfg.Providers)

	// Farm data repositories
	profileRepo := farm.NewProfileRepository(pool)
	cropRepo := farm.NewCropRepository(pool)
	taskRepo := farm.NewTaskRepository(pool)
	notificationRepo := farm.NewNotificationRepository(pool)
	healthRepo := farm.NewHealthLogRepository(pool)

	// Three-tier memory
	shortTerm, err := memory.NewShortTermCache(cfg.Agent.ShortTermUsers, cfg.Agent.ShortTermMsgs)
	if err != nil {
		slog.Error("creating short-term cache", "error", err)
		os.Exit(1)
	}
	working := memory.NewWorkingStore(redisClient, cfg.Agent.WorkingContextTTL)
	memoryRepo := memory.NewPostgresRepository(pool)

	var embedder llm.Embedder
	if cfg.Agent.RecallEnabled {
		embedder = llmClient
	}
	memStore := memory.NewStore(memoryRepo, shortTerm, working, profileRepo, embedder, cfg.Agent.RecallLimit)

	// Turn pipeline
	executor := agent.NewExecutor(agent.ExecutorDeps{
		Profiles:      profileRepo,
		Crops:         cropRepo,
		Tasks:         taskRepo,
		Notifications: notificationRepo,
		Health:        healthRepo,
		Geocoder:      provSet.Geocoder,
		Weather:       provSet.Weather,
		Soil:          provSet.Soil,
		Market:        provSet.Market,
	})

	agentDeps := agent.Deps{
		Engine:      agent.NewEngine(llmClient, cfg.Agent.DirectToolIntents),
		Gate:        agent.NewGate(cfg.Agent.Gates),
		Executor:    executor,
		Synthesizer: agent.NewSynthesizer(llmClient),
		Memory:      memStore,
		Geocoder:    provSet.Geocoder,
		Tasks:       taskRepo,
		RainAlert:   cfg.Agent.RainAlertThreshold,
	}
	if publisher != nil {
		agentDeps.Events = publisher
	}
	core := agent.New(agentDeps)

	// Audit trail consumer (needs NATS)
	auditRepo := audit.NewRepository(pool)
	if natsClient != nil {
		consumerMgr := knats.NewConsumerManager(natsClient.JetStream())
		auditConsumer := audit.NewConsumer(auditRepo, consumerMgr)

		consumerCtx, stopConsumer := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stopConsumer()
		go func() {
			if err := auditConsumer.Start(consumerCtx); err != nil {
				slog.Error("audit consumer stopped", "error", err)
			}
		}()
	}

	// HTTP handlers
	agentHandler := agent.NewHandler(core)
	farmHandler := farm.NewHandler(profileRepo, cropRepo, taskRepo, notificationRepo, healthRepo)
	auditHandler := audit.NewHandler(auditRepo)

	routerCfg := api.RouterConfig{
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
	}
	if cfg.Server.AgentRateLimit > 0 {
		limiter := middleware.NewRateLimiter(redisClient, cfg.Server.AgentRateLimit, cfg.Server.AgentRateWindowSec)
		routerCfg.AgentRateLimiter = limiter.Middleware
	}

	router := api.NewRouter(pool, natsClient, routerCfg, api.HandlerSet{
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

	// Start server
	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
