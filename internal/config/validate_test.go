package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		DB: DBConfig{
			Host: "localhost", Port: 5432, User: "krishimitra",
			Password: "secret", Name: "krishimitra", SSLMode: "disable", MaxConns: 25,
		},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		LLM: LLMConfig{
			BaseURL: "http://localhost:11434/v1",
			Model:   "llama3.1:8b",
			Timeout: 60 * time.Second,
		},
		Agent: AgentConfig{
			ShortTermUsers:     1024,
			ShortTermMsgs:      20,
			WorkingContextTTL:  24 * time.Hour,
			RainAlertThreshold: 70,
			RecallLimit:        3,
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidate_MissingDBPassword(t *testing.T) {
	cfg := validConfig()
	cfg.DB.Password = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "DB_PASSWORD") {
		t.Fatalf("expected DB_PASSWORD error, got: %v", err)
	}
}

func TestValidate_BadServerPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 70000
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "SERVER_PORT") {
		t.Fatalf("expected SERVER_PORT error, got: %v", err)
	}
}

func TestValidate_MissingLLMModel(t *testing.T) {
	cfg := validConfig()
	cfg.LLM.Model = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "LLM_MODEL") {
		t.Fatalf("expected LLM_MODEL error, got: %v", err)
	}
}

func TestValidate_UnknownGateField(t *testing.T) {
	cfg := validConfig()
	cfg.Agent.Gates = map[string]string{"crop_advice": "favorite_color"}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "favorite_color") {
		t.Fatalf("expected gate field error, got: %v", err)
	}
}

func TestValidate_KnownGateField(t *testing.T) {
	cfg := validConfig()
	cfg.Agent.Gates = map[string]string{"crop_advice": "location"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidate_RecallNeedsEmbedModel(t *testing.T) {
	cfg := validConfig()
	cfg.Agent.RecallEnabled = true
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "LLM_EMBED_MODEL") {
		t.Fatalf("expected embed model error, got: %v", err)
	}
	cfg.LLM.EmbedModel = "nomic-embed-text"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidate_CollectsMultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.DB.Password = ""
	cfg.LLM.Model = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "DB_PASSWORD") || !strings.Contains(err.Error(), "LLM_MODEL") {
		t.Fatalf("expected both errors, got: %v", err)
	}
}
