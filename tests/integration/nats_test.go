//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/krishimitra/krishimitra/internal/audit"
	"github.com/krishimitra/krishimitra/internal/config"
	knats "github.com/krishimitra/krishimitra/internal/nats"
)

func setupNATSContainer(t *testing.T) *knats.Client {
	t.Helper()
	ctx := context.Background()

	natsContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2-alpine",
			ExposedPorts: []string{"4222/tcp"},
			Cmd:          []string{"--jetstream", "--store_dir", "/data"},
			WaitingFor:   wait.ForLog("Server is ready").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { natsContainer.Terminate(ctx) })

	host, _ := natsContainer.Host(ctx)
	port, _ := natsContainer.MappedPort(ctx, "4222")

	client, err := knats.NewClient(ctx, config.NATSConfig{
		URL: fmt.Sprintf("nats://%s:%s", host, port.Port()),
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client
}

func TestNATSPublishConsume(t *testing.T) {
	client := setupNATSContainer(t)
	ctx := context.Background()

	publisher := knats.NewPublisher(client.JetStream())
	consumerMgr := knats.NewConsumerManager(client.JetStream())

	t.Run("publish and consume turn event", func(t *testing.T) {
		event := knats.TurnEvent{
			UserID:     "farmer-1",
			Intent:     "weather_check",
			Success:    true,
			Actions:    1,
			DurationMS: 840,
			Timestamp:  time.Now().UTC(),
		}

		err := publisher.PublishTurnEvent(ctx, event)
		require.NoError(t, err)

		consumer, err := consumerMgr.EnsureConsumer(ctx, knats.StreamEvents, "test-turn-consumer", knats.SubjectTurnEvent)
		require.NoError(t, err)

		msgs, err := consumer.Fetch(1, jetstream.FetchMaxWait(5*time.Second))
		require.NoError(t, err)

		var received knats.TurnEvent
		for m := range msgs.Messages() {
			err = json.Unmarshal(m.Data(), &received)
			require.NoError(t, err)
			_ = m.Ack()
		}

		assert.Equal(t, "farmer-1", received.UserID)
		assert.Equal(t, "weather_check", received.Intent)
		assert.True(t, received.Success)
	})

	t.Run("publish and consume notification push", func(t *testing.T) {
		push := knats.NotificationPush{
			UserID:   "farmer-2",
			Text:     "Rain is likely tomorrow",
			Priority: "medium",
		}
		err := publisher.PublishNotification(ctx, push)
		require.NoError(t, err)

		consumer, err := consumerMgr.EnsureConsumer(ctx, knats.StreamNotifications, "test-notify-consumer", knats.SubjectNotificationPush)
		require.NoError(t, err)

		msgs, err := consumer.Fetch(1, jetstream.FetchMaxWait(5*time.Second))
		require.NoError(t, err)

		var received knats.NotificationPush
		for m := range msgs.Messages() {
			err = json.Unmarshal(m.Data(), &received)
			require.NoError(t, err)
			_ = m.Ack()
		}
		assert.Equal(t, "Rain is likely tomorrow", received.Text)
	})

	t.Run("NATS client is healthy", func(t *testing.T) {
		assert.True(t, client.Healthy())
	})
}

// Publishing an audit event must end as a row in audit_events once the
// consumer has run.
func TestAuditTrailPersistence(t *testing.T) {
	env := SetupTestEnv(t)
	client := setupNATSContainer(t)
	ctx := context.Background()

	publisher := knats.NewPublisher(client.JetStream())
	consumerMgr := knats.NewConsumerManager(client.JetStream())
	consumer := audit.NewConsumer(audit.NewRepository(env.Pool), consumerMgr)

	consumerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		_ = consumer.Start(consumerCtx)
	}()

	uid := fmt.Sprintf("audit-user-%d", uniqueID())
	err := publisher.PublishAuditEvent(ctx, knats.AuditEvent{
		UserID:       uid,
		EventType:    "create_task",
		Severity:     "info",
		ResourceType: "task",
		ResourceID:   "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d",
		Details:      "created via turn",
		Timestamp:    time.Now().UTC(),
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		var count int
		if err := env.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_events WHERE user_id = $1`, uid).Scan(&count); err != nil {
			return false
		}
		return count == 1
	}, 15*time.Second, 250*time.Millisecond)

	var eventType, resourceType string
	err = env.Pool.QueryRow(ctx, `SELECT event_type, resource_type FROM audit_events WHERE user_id = $1`, uid).Scan(&eventType, &resourceType)
	require.NoError(t, err)
	assert.Equal(t, "create_task", eventType)
	assert.Equal(t, "task", resourceType)
}
