// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

// Package eventbus publishes a notification after every completed refresh
// cycle and runs the consumers subscribed to it.
//
// Two backends are supported: an in-process Go channel (the default) and
// core NATS for fan-out to other processes. Both sit behind watermill, so
// consumers are plain router handlers with the same retry and panic
// recovery regardless of transport.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/contestwatch/internal/config"
	"github.com/tomtom215/contestwatch/internal/logging"
	"github.com/tomtom215/contestwatch/internal/metrics"
	"github.com/tomtom215/contestwatch/internal/models"
)

// ErrClosed is returned by PublishRefresh after Close.
var ErrClosed = errors.New("event bus closed")

const (
	metaCategory = "category"
	metaCycleID  = "cycle_id"
)

// Handler consumes one refresh notification. A returned error is retried.
type Handler func(ctx context.Context, result models.RefreshResult) error

type consumer struct {
	name string
	fn   Handler
}

// Bus is safe for concurrent use. Handlers must be registered before Run.
//
// Every Run builds a fresh watermill router over the same transport, since
// a router cannot be started again once it has stopped.
type Bus struct {
	topic     string
	publisher message.Publisher
	sub       message.Subscriber
	breaker   *gobreaker.CircuitBreaker[struct{}]
	wmLogger  watermill.LoggerAdapter

	mu        sync.RWMutex
	closed    bool
	consumers []consumer
	router    *message.Router // non-nil while Run is active

	ready     chan struct{}
	readyOnce sync.Once
}

// New builds the bus for cfg.Backend. Nothing is consumed until Run.
func New(cfg *config.EventsConfig) (*Bus, error) {
	wmLogger := watermill.NewSlogLogger(logging.NewComponentSlogLogger("eventbus"))

	var (
		pub message.Publisher
		sub message.Subscriber
		err error
	)
	switch cfg.Backend {
	case "", "memory":
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, wmLogger)
		pub, sub = ch, ch
	case "nats":
		pub, sub, err = newNATS(cfg.NATSURL, wmLogger)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}

	b := &Bus{
		topic:     cfg.Topic,
		publisher: pub,
		sub:       sub,
		breaker:   newPublishBreaker(),
		wmLogger:  wmLogger,
		ready:     make(chan struct{}),
	}
	b.Handle("refresh-log", logRefresh)
	return b, nil
}

// Topic returns the topic refresh notifications are published on.
func (b *Bus) Topic() string { return b.topic }

// PublishRefresh sends result on the bus. Publishing is guarded by a
// circuit breaker so a dead broker does not slow every refresh down.
func (b *Bus) PublishRefresh(ctx context.Context, result models.RefreshResult) error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal refresh result: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(metaCategory, string(result.Category))
	msg.Metadata.Set(metaCycleID, result.CycleID)
	msg.SetContext(ctx)

	_, err = b.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, b.publisher.Publish(b.topic, msg)
	})
	metrics.RecordEventPublished(err == nil)
	if err != nil {
		return fmt.Errorf("publish %s: %w", b.topic, err)
	}
	return nil
}

// Handle subscribes fn to refresh notifications under a unique name. It
// takes effect on the next Run.
func (b *Bus) Handle(name string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consumers = append(b.consumers, consumer{name: name, fn: fn})
}

func (b *Bus) newRouter() (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, b.wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}
	router.AddMiddleware(
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     2 * time.Second,
			Multiplier:      2,
			Logger:          b.wmLogger,
		}.Middleware,
	)
	sub := keepOpenSubscriber{b.sub}
	for _, c := range b.consumers {
		router.AddConsumerHandler(c.name, b.topic, sub, b.consume(c))
	}
	return router, nil
}

// keepOpenSubscriber stops the router from closing the shared transport
// when it shuts down. Subscriptions still end with the router's context;
// the transport itself is closed by Bus.Close.
type keepOpenSubscriber struct {
	message.Subscriber
}

func (keepOpenSubscriber) Close() error { return nil }

func (b *Bus) consume(c consumer) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		var result models.RefreshResult
		if err := json.Unmarshal(msg.Payload, &result); err != nil {
			// Not retryable; ack and drop.
			b.wmLogger.Error("Dropping malformed refresh notification", err, watermill.LogFields{"uuid": msg.UUID})
			return nil
		}
		ctx := logging.ContextWithCycleID(msg.Context(), msg.Metadata.Get(metaCycleID))
		if err := c.fn(ctx, result); err != nil {
			return err
		}
		metrics.RecordEventConsumed(c.name)
		return nil
	}
}

// Run starts a router and blocks until ctx is done or Close is called. It
// may be called again after it returns.
func (b *Bus) Run(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	if b.router != nil {
		b.mu.Unlock()
		return errors.New("event bus already running")
	}
	router, err := b.newRouter()
	if err != nil {
		b.mu.Unlock()
		return err
	}
	b.router = router
	b.mu.Unlock()

	done := make(chan struct{})
	defer func() {
		close(done)
		b.mu.Lock()
		b.router = nil
		b.mu.Unlock()
	}()

	go func() {
		select {
		case <-router.Running():
			b.readyOnce.Do(func() { close(b.ready) })
		case <-done:
		}
	}()
	return router.Run(ctx)
}

// Running is closed once the first router has subscribed every handler.
func (b *Bus) Running() <-chan struct{} {
	return b.ready
}

// Close stops the active router, if any, and the transport. It is
// idempotent and does not wait on a router that was never started.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	router := b.router
	b.mu.Unlock()

	var errs []error
	if router != nil {
		errs = append(errs, router.Close())
	}
	errs = append(errs, b.publisher.Close())
	if any(b.sub) != any(b.publisher) {
		errs = append(errs, b.sub.Close())
	}
	return errors.Join(errs...)
}

func logRefresh(ctx context.Context, r models.RefreshResult) error {
	ev := logging.Ctx(ctx).Info()
	if len(r.FailedPlatforms) > 0 {
		ev = logging.Ctx(ctx).Warn()
	}
	ev.Str("category", string(r.Category)).
		Int("fetched", r.Fetched).
		Int("upserted", r.Upserted).
		Int("deleted", r.Deleted).
		Interface("failed_platforms", r.FailedPlatforms).
		Msg("Refresh notification received")
	return nil
}

func newPublishBreaker() *gobreaker.CircuitBreaker[struct{}] {
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "eventbus-publish",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state transition")
		},
	})
}
