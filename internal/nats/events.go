package nats

import "time"

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// Stream names.
const (
	StreamEvents        = "KRISHI_EVENTS"
	StreamNotifications = "KRISHI_NOTIFY"
)

// Subject constants.
const (
	SubjectTurnEvent        = "krishi.events.turn"
	SubjectAuditEvent       = "krishi.events.audit"
	SubjectNotificationPush = "krishi.notify.push"
)

// TurnEvent is published after every completed agent turn.
type TurnEvent struct {
	UserID     string    `json:"user_id"`
	Intent     string    `json:"intent"`
	Success    bool      `json:"success"`
	Actions    int       `json:"actions"`
	DurationMS int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// AuditEvent is published for audit logging of data mutations.
type AuditEvent struct {
	UserID       string    `json:"user_id"`
	EventType    string    `json:"event_type"`
	Severity     string    `json:"severity"` // info, warn, error
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Details      string    `json:"details"`
	Timestamp    time.Time `json:"timestamp"`
}

// NotificationPush is published to deliver a stored notification to
// whatever delivery channel is subscribed (SMS gateway, app push).
type NotificationPush struct {
	UserID   string `json:"user_id"`
	Text     string `json:"text"`
	Priority string `json:"priority"`
}
