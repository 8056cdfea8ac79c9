package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	knats "github.com/krishimitra/krishimitra/internal/nats"
)

// AuditLog matches the audit_events table schema.
type AuditLog struct {
	ID           uuid.UUID       `json:"id"`
	UserID       string          `json:"user_id"`
	EventType    string          `json:"event_type"`
	Severity     string          `json:"severity"`
	ResourceType string          `json:"resource_type,omitempty"`
	ResourceID   string          `json:"resource_id,omitempty"`
	Details      json.RawMessage `json:"details,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ListParams holds pagination and filtering parameters for audit queries.
type ListParams struct {
	EventType string
	Severity  string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// DefaultListParams returns sensible defaults.
func DefaultListParams() ListParams {
	return ListParams{
		Page:     1,
		PageSize: 20,
	}
}

// convertEventToLog maps a NATS audit event to its storage row.
func convertEventToLog(event knats.AuditEvent) *AuditLog {
	log := &AuditLog{
		ID:           uuid.New(),
		UserID:       event.UserID,
		EventType:    event.EventType,
		Severity:     event.Severity,
		ResourceType: event.ResourceType,
		ResourceID:   event.ResourceID,
		CreatedAt:    event.Timestamp,
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	if event.Details != "" {
		if data, err := json.Marshal(map[string]string{"message": event.Details}); err == nil {
			log.Details = data
		}
	}
	return log
}
