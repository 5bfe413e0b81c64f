// Package analytics ships search events to Kafka off the request path.
// Events are buffered in a channel, grouped into batches and published by a
// single background goroutine; when the buffer is full, events are dropped.
package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/softmatch/pkg/kafka"
)

// Publisher writes a batch of events. *kafka.Producer implements it.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

type Options struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	// OnDrop, if set, is called for each event dropped on a full buffer.
	OnDrop func()
}

type Collector struct {
	publisher Publisher
	opts      Options
	eventCh   chan SearchEvent
	logger    *slog.Logger
	done      chan struct{}

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

func NewCollector(publisher Publisher, opts Options) *Collector {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1024
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 5 * time.Second
	}
	return &Collector{
		publisher: publisher,
		opts:      opts,
		eventCh:   make(chan SearchEvent, opts.BufferSize),
		logger:    slog.Default().With("component", "analytics-collector"),
		done:      make(chan struct{}),
	}
}

// Start launches the publishing loop. It runs until ctx is cancelled or
// Close is called, publishing whatever is still buffered before exiting.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.opts.FlushInterval)
		defer ticker.Stop()

		batch := make([]kafka.Event, 0, c.opts.BatchSize)
		flush := func(ctx context.Context) {
			if len(batch) == 0 {
				return
			}
			if err := c.publisher.PublishBatch(ctx, batch); err != nil {
				c.logger.Error("failed to publish analytics batch", "events", len(batch), "error", err)
			} else {
				c.logger.Debug("analytics batch published", "events", len(batch))
			}
			batch = make([]kafka.Event, 0, c.opts.BatchSize)
		}
		add := func(event SearchEvent) {
			batch = append(batch, kafka.Event{Key: event.Query, Value: event})
		}

		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					flush(context.Background())
					return
				}
				add(event)
				if len(batch) >= c.opts.BatchSize {
					flush(ctx)
				}
			case <-ticker.C:
				flush(ctx)
			case <-ctx.Done():
				c.stopAccepting()
			drain:
				for {
					select {
					case event, ok := <-c.eventCh:
						if !ok {
							break drain
						}
						add(event)
					default:
						break drain
					}
				}
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				flush(flushCtx)
				cancel()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started",
		"buffer_size", c.opts.BufferSize,
		"batch_size", c.opts.BatchSize,
		"flush_interval", c.opts.FlushInterval,
	)
}

// Track enqueues an event without blocking. It reports whether the event
// was accepted.
func (c *Collector) Track(event SearchEvent) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.eventCh <- event:
		return true
	default:
		c.dropped.Add(1)
		if c.opts.OnDrop != nil {
			c.opts.OnDrop()
		}
		c.logger.Warn("analytics event dropped (buffer full)")
		return false
	}
}

func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

// stopAccepting makes Track reject events once the loop is shutting down.
// The channel stays open; Close may still be called.
func (c *Collector) stopAccepting() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// Close stops accepting events and waits for the loop to publish what is
// buffered. Start must have been called.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.eventCh)
	}
	c.mu.Unlock()
	<-c.done
}
