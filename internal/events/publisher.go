package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
)

const (
	// historySuffix is appended to the channel name to form the history list key.
	historySuffix = ":history"
	// DefaultHistorySize is the number of events kept in the history list.
	DefaultHistorySize = 100
	// publishTimeout bounds a single publish round trip.
	publishTimeout = 2 * time.Second
	// DefaultQueueSize is the number of listener events buffered for the background sender.
	DefaultQueueSize = 256
)

// queuedEvent is a listener event waiting for the background sender.
type queuedEvent struct {
	ctx   context.Context //nolint:containedctx // Carries the request logger to the sender.
	event Event
}

// Publisher sends events to Redis.
// It satisfies the security service StatusListener interface: listener calls
// only enqueue the event, a background goroutine publishes it.
type Publisher struct {
	// client is the Redis connection.
	client redis.UniversalClient
	// channel is the pub/sub channel name.
	channel string
	// historySize caps the history list.
	historySize int64
	// now returns the event timestamp.
	now func() time.Time
	// queue feeds the background sender.
	queue chan queuedEvent
	// done is closed when the background sender exits.
	done chan struct{}
	// closed is set once Close has run; guarded by mu.
	closed bool
	// mu guards closed against concurrent sends on queue.
	mu sync.RWMutex
}

// Connect opens a Redis client for the settings and verifies it with PING.
func Connect(ctx context.Context, settings config.Redis) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         settings.Addr,
		Password:     settings.Password,
		DB:           settings.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.InfoKV(ctx, "Connected to Redis", "addr", settings.Addr, "db", settings.DB, "channel", settings.Channel)

	return NewPublisher(client, settings.Channel), nil
}

// NewPublisher wraps an existing client. An empty channel falls back to the default.
func NewPublisher(client redis.UniversalClient, channel string) *Publisher {
	if channel == "" {
		channel = config.DefaultRedisChannel
	}

	p := &Publisher{
		client:      client,
		channel:     channel,
		historySize: DefaultHistorySize,
		now:         time.Now,
		queue:       make(chan queuedEvent, DefaultQueueSize),
		done:        make(chan struct{}),
	}

	go p.send()

	return p
}

// Channel returns the pub/sub channel name.
func (p *Publisher) Channel() string {
	return p.channel
}

// Publish stamps the event, sends it to the channel and appends it to the history.
func (p *Publisher) Publish(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = p.now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	key := p.channel + historySuffix

	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Publish(ctx, p.channel, payload)
		pipe.LPush(ctx, key, payload)
		pipe.LTrim(ctx, key, 0, p.historySize-1)

		return nil
	})
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	return nil
}

// Recent returns up to limit events from the history, newest first.
func (p *Publisher) Recent(ctx context.Context, limit int64) ([]Event, error) {
	if limit <= 0 || limit > p.historySize {
		limit = p.historySize
	}

	values, err := p.client.LRange(ctx, p.channel+historySuffix, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read event history: %w", err)
	}

	result := make([]Event, 0, len(values))

	for _, value := range values {
		var event Event
		if err = json.Unmarshal([]byte(value), &event); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}

		result = append(result, event)
	}

	return result, nil
}

// Close stops the background sender, giving queued events one publish
// timeout to go out, and closes the Redis client.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
	case <-time.After(publishTimeout):
	}

	// Fails pending round trips so the sender exits.
	err := p.client.Close()

	<-p.done

	return err
}

// AlarmStatusChanged publishes an alarm status write.
func (p *Publisher) AlarmStatusChanged(ctx context.Context, status domain.AlarmStatus) {
	p.enqueue(ctx, Event{Kind: KindAlarmStatus, AlarmStatus: status})
}

// CatDetected publishes an image classification result.
func (p *Publisher) CatDetected(ctx context.Context, detected bool) {
	p.enqueue(ctx, Event{Kind: KindCatDetected, CatDetected: &detected})
}

// SensorStatusChanged publishes a stored sensor change.
func (p *Publisher) SensorStatusChanged(ctx context.Context, sensor domain.Sensor) {
	p.enqueue(ctx, Event{
		Kind: KindSensor,
		Sensor: &Sensor{
			Name:   sensor.Name,
			Type:   sensor.Type,
			Active: sensor.Active,
		},
	})
}

// enqueue stamps the event and hands it to the background sender without blocking.
// Events are dropped with a warning when the queue is full or the publisher is closed.
func (p *Publisher) enqueue(ctx context.Context, event Event) {
	event.Timestamp = p.now().UTC()

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		logger.WarnKV(ctx, "Event publisher is closed, dropping event", "kind", event.Kind)

		return
	}

	select {
	case p.queue <- queuedEvent{ctx: context.WithoutCancel(ctx), event: event}:
	default:
		logger.WarnKV(ctx, "Event queue is full, dropping event", "kind", event.Kind)
	}
}

// send publishes queued events in order until the queue is closed.
func (p *Publisher) send() {
	defer close(p.done)

	for item := range p.queue {
		if err := p.Publish(item.ctx, item.event); err != nil {
			logger.WarnKV(item.ctx, "Failed to publish event", "kind", item.event.Kind, "error", err)
		}
	}
}
