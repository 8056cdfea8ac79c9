package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// knownGateFields are the context fields the precondition gate can check.
var knownGateFields = map[string]bool{
	"location":    true,
	"active_crop": true,
}

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1–65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}

	// LLM endpoint
	if c.LLM.BaseURL == "" {
		errs = append(errs, "LLM_BASE_URL is required")
	}
	if c.LLM.Model == "" {
		errs = append(errs, "LLM_MODEL is required")
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, "LLM_TIMEOUT must be positive")
	}

	// Agent tuning
	if c.Agent.ShortTermUsers < 1 {
		errs = append(errs, "AGENT_SHORT_TERM_USERS must be at least 1")
	}
	if c.Agent.ShortTermMsgs < 1 {
		errs = append(errs, "AGENT_SHORT_TERM_MSGS must be at least 1")
	}
	if c.Agent.RainAlertThreshold < 0 || c.Agent.RainAlertThreshold > 100 {
		errs = append(errs, fmt.Sprintf("AGENT_RAIN_ALERT_THRESHOLD must be 0–100, got %g", c.Agent.RainAlertThreshold))
	}
	for intent, field := range c.Agent.Gates {
		if !knownGateFields[field] {
			errs = append(errs, fmt.Sprintf("AGENT_GATES: intent %q requires unknown field %q", intent, field))
		}
	}

	// Recall needs an embedding model to be useful
	if c.Agent.RecallEnabled && c.LLM.EmbedModel == "" {
		errs = append(errs, "AGENT_RECALL_ENABLED requires LLM_EMBED_MODEL")
	}

	// Market provider key: warn only, the API works unauthenticated at low volume
	if c.Providers.MarketAPIKey == "" {
		slog.Warn("PROVIDERS_MARKET_API_KEY is empty — market price lookups may be throttled")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
