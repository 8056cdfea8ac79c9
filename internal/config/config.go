package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Redis     RedisConfig
	NATS      NATSConfig
	LLM       LLMConfig
	Agent     AgentConfig
	Providers ProvidersConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
	// CORSAllowedOrigins defaults to "*" when unset.
	CORSAllowedOrigins []string
	// AgentRateLimit is the per-client request budget for /agent/query
	// within AgentRateWindowSec. Zero disables rate limiting.
	AgentRateLimit     int
	AgentRateWindowSec int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type NATSConfig struct {
	URL     string
	Enabled bool
}

type LLMConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	EmbedModel string
	Timeout    time.Duration
}

// AgentConfig tunes the turn pipeline.
type AgentConfig struct {
	// Gates maps an intent label to the context field it requires
	// (e.g. "crop_advice" -> "location"). Empty by default.
	Gates map[string]string
	// DirectToolIntents enables fast-path intents (weather_check,
	// market_prices) to bypass the LLM and bind straight to a read tool.
	DirectToolIntents bool
	// ShortTermUsers is the LRU capacity for per-user short-term buffers.
	ShortTermUsers int
	// ShortTermMsgs bounds each user's in-process conversation buffer.
	ShortTermMsgs int
	// WorkingContextTTL expires idle working-context hashes in redis.
	WorkingContextTTL time.Duration
	// RainAlertThreshold is the rain probability (percent) above which a
	// proactive weather suggestion is generated.
	RainAlertThreshold float64
	// RecallEnabled turns on pgvector semantic recall over past turns.
	RecallEnabled bool
	// RecallLimit caps how many recalled turns are injected into prompts.
	RecallLimit int
}

type ProvidersConfig struct {
	WeatherBaseURL string
	SoilBaseURL    string
	MarketBaseURL  string
	MarketAPIKey   string
	GeocodeBaseURL string
	Timeout        time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:               k.String("server.host"),
			Port:               k.Int("server.port"),
			CORSAllowedOrigins: k.Strings("server.cors.allowed.origins"),
			AgentRateLimit:     k.Int("server.agent.rate.limit"),
			AgentRateWindowSec: k.Int("server.agent.rate.window.sec"),
		},
		DB: DBConfig{
			Host:     k.String("db.host"),
			Port:     k.Int("db.port"),
			User:     k.String("db.user"),
			Password: k.String("db.password"),
			Name:     k.String("db.name"),
			SSLMode:  k.String("db.sslmode"),
			MaxConns: int32(k.Int("db.max.conns")),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL:     k.String("nats.url"),
			Enabled: k.Bool("nats.enabled"),
		},
		LLM: LLMConfig{
			BaseURL:    k.String("llm.base.url"),
			APIKey:     k.String("llm.api.key"),
			Model:      k.String("llm.model"),
			EmbedModel: k.String("llm.embed.model"),
		},
		Agent: AgentConfig{
			Gates:              k.StringMap("agent.gates"),
			DirectToolIntents:  k.Bool("agent.direct.tool.intents"),
			ShortTermUsers:     k.Int("agent.short.term.users"),
			ShortTermMsgs:      k.Int("agent.short.term.msgs"),
			RainAlertThreshold: k.Float64("agent.rain.alert.threshold"),
			RecallEnabled:      k.Bool("agent.recall.enabled"),
			RecallLimit:        k.Int("agent.recall.limit"),
		},
		Providers: ProvidersConfig{
			WeatherBaseURL: k.String("providers.weather.base.url"),
			SoilBaseURL:    k.String("providers.soil.base.url"),
			MarketBaseURL:  k.String("providers.market.base.url"),
			MarketAPIKey:   k.String("providers.market.api.key"),
			GeocodeBaseURL: k.String("providers.geocode.base.url"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if len(cfg.Server.CORSAllowedOrigins) == 0 {
		cfg.Server.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.Server.AgentRateWindowSec == 0 {
		cfg.Server.AgentRateWindowSec = 60
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "krishimitra"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "krishimitra"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "http://localhost:11434/v1"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "llama3.1:8b"
	}
	if cfg.Agent.ShortTermUsers == 0 {
		cfg.Agent.ShortTermUsers = 1024
	}
	if cfg.Agent.ShortTermMsgs == 0 {
		cfg.Agent.ShortTermMsgs = 20
	}
	if cfg.Agent.RainAlertThreshold == 0 {
		cfg.Agent.RainAlertThreshold = 70
	}
	if cfg.Agent.RecallLimit == 0 {
		cfg.Agent.RecallLimit = 3
	}
	if cfg.Providers.WeatherBaseURL == "" {
		cfg.Providers.WeatherBaseURL = "https://api.open-meteo.com/v1"
	}
	if cfg.Providers.SoilBaseURL == "" {
		cfg.Providers.SoilBaseURL = "https://rest.isric.org/soilgrids/v2.0"
	}
	if cfg.Providers.MarketBaseURL == "" {
		cfg.Providers.MarketBaseURL = "https://api.data.gov.in/resource"
	}
	if cfg.Providers.GeocodeBaseURL == "" {
		cfg.Providers.GeocodeBaseURL = "https://nominatim.openstreetmap.org"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse durations
	llmTimeoutStr := k.String("llm.timeout")
	if llmTimeoutStr == "" {
		llmTimeoutStr = "60s"
	}
	cfg.LLM.Timeout, err = time.ParseDuration(llmTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("parsing llm timeout: %w", err)
	}

	provTimeoutStr := k.String("providers.timeout")
	if provTimeoutStr == "" {
		provTimeoutStr = "10s"
	}
	cfg.Providers.Timeout, err = time.ParseDuration(provTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("parsing providers timeout: %w", err)
	}

	workingTTLStr := k.String("agent.working.context.ttl")
	if workingTTLStr == "" {
		workingTTLStr = "24h"
	}
	cfg.Agent.WorkingContextTTL, err = time.ParseDuration(workingTTLStr)
	if err != nil {
		return nil, fmt.Errorf("parsing working context ttl: %w", err)
	}

	return cfg, nil
}
