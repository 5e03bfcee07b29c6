package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aanujkhurana/AAA-SportsTournament/brackets"
	"github.com/aanujkhurana/AAA-SportsTournament/metrics"
	"github.com/aanujkhurana/AAA-SportsTournament/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Notifier receives events after a mutation has been committed.
// Delivery is best effort; implementations must not block the caller for long.
type Notifier interface {
	Notify(ctx context.Context, event models.Event)
}

func newEvent(kind models.EventKind, tournamentID int, match *models.Match, matches []*models.Match, now time.Time) models.Event {
	return models.Event{
		ID:           uuid.NewString(),
		Kind:         kind,
		TournamentID: tournamentID,
		Match:        match,
		Matches:      matches,
		OccurredAt:   now.UTC(),
	}
}

// HubNotifier pushes events to websocket clients of this instance.
type HubNotifier struct {
	hub *brackets.Hub
}

func NewHubNotifier(hub *brackets.Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) Notify(_ context.Context, event models.Event) {
	room := brackets.RoomForTournament(event.TournamentID)
	n.hub.BroadcastToRoom(room, brackets.WebSocketMessage{
		Type:    string(event.Kind),
		Payload: event,
		RoomID:  room,
	})
	metrics.EventsPublished.WithLabelValues(string(event.Kind), "websocket", "ok").Inc()
}

const (
	DefaultEventsChannel = "tournament-events"
	redisPublishTimeout  = 2 * time.Second
)

// RedisNotifier publishes events so that every instance can relay them to its own clients.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

func NewRedisNotifier(client *redis.Client, channel string, logger *slog.Logger) *RedisNotifier {
	if channel == "" {
		channel = DefaultEventsChannel
	}
	return &RedisNotifier{client: client, channel: channel, logger: logger}
}

func (n *RedisNotifier) Notify(ctx context.Context, event models.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("failed to encode event", slog.String("kind", string(event.Kind)), slog.Any("error", err))
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), redisPublishTimeout)
	defer cancel()
	if err := n.client.Publish(pubCtx, n.channel, payload).Err(); err != nil {
		metrics.EventsPublished.WithLabelValues(string(event.Kind), "redis", "error").Inc()
		n.logger.Error("failed to publish event",
			slog.String("kind", string(event.Kind)),
			slog.Int("tournament_id", event.TournamentID),
			slog.Any("error", err))
		return
	}
	metrics.EventsPublished.WithLabelValues(string(event.Kind), "redis", "ok").Inc()
}

// RunRedisRelay forwards events published by any instance to the local hub until ctx ends.
func RunRedisRelay(ctx context.Context, client *redis.Client, channel string, hub *brackets.Hub, logger *slog.Logger) error {
	if channel == "" {
		channel = DefaultEventsChannel
	}
	sub := client.Subscribe(ctx, channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}
	local := NewHubNotifier(hub)
	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var event models.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logger.Warn("dropping malformed event from redis", slog.Any("error", err))
				continue
			}
			local.Notify(ctx, event)
		}
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, models.Event) {}
