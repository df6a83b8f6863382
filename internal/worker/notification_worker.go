package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/scrubbe-dev/incident-service/internal/events"
)

// DefaultQueueSize bounds the notification backlog when none is configured.
const DefaultQueueSize = 256

var (
	// ErrQueueFull is returned by Publish when the backlog is at capacity.
	ErrQueueFull = errors.New("notification queue full")
	// ErrQueueStopped is returned by Publish after Stop.
	ErrQueueStopped = errors.New("notification queue stopped")
)

// ChannelRegistrar attaches delivery channels to the event dispatcher.
type ChannelRegistrar interface {
	RegisterHandlers()
}

type queuedEvent struct {
	ctx   context.Context
	event events.Event
}

// NotificationWorker is a Dispatcher that queues published events and hands
// them to the wrapped dispatcher on a background goroutine. Publish never
// waits on delivery.
type NotificationWorker struct {
	next   events.Dispatcher
	logger *zap.Logger

	mu      sync.RWMutex
	stopped bool
	queue   chan queuedEvent
	done    chan struct{}
	start   sync.Once
}

// NewNotificationWorker wraps next with a queue of queueSize events.
func NewNotificationWorker(next events.Dispatcher, queueSize int, logger *zap.Logger) *NotificationWorker {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{
		next:   next,
		logger: logger,
		queue:  make(chan queuedEvent, queueSize),
		done:   make(chan struct{}),
	}
}

// Publish enqueues event. The context loses its cancellation so delivery
// outlives the request that triggered it.
func (w *NotificationWorker) Publish(ctx context.Context, event events.Event) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return ErrQueueStopped
	}
	select {
	case w.queue <- queuedEvent{ctx: context.WithoutCancel(ctx), event: event}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe registers handler on the wrapped dispatcher.
func (w *NotificationWorker) Subscribe(eventType events.EventType, handler events.EventHandler) {
	w.next.Subscribe(eventType, handler)
}

// SubscribeAll registers handler for every event on the wrapped dispatcher.
func (w *NotificationWorker) SubscribeAll(handler events.EventHandler) {
	w.next.SubscribeAll(handler)
}

// Start launches the delivery goroutine. Further calls do nothing.
func (w *NotificationWorker) Start() {
	w.start.Do(func() {
		go w.run()
	})
}

func (w *NotificationWorker) run() {
	defer close(w.done)
	for item := range w.queue {
		if err := w.next.Publish(item.ctx, item.event); err != nil {
			w.logger.Warn("notification delivery failed",
				zap.String("ticket_id", item.event.TicketID),
				zap.String("event_type", string(item.event.Type)),
				zap.Error(err))
		}
	}
}

// Stop refuses new events and waits up to timeout for the backlog to drain.
func (w *NotificationWorker) Stop(timeout time.Duration) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	close(w.queue)
	w.mu.Unlock()

	w.Start()
	select {
	case <-w.done:
	case <-time.After(timeout):
		w.logger.Warn("notification queue not drained before shutdown", zap.Int("pending", len(w.queue)))
	}
}

// StartNotificationWorker subscribes the delivery channels and starts the
// delivery goroutine.
func StartNotificationWorker(w *NotificationWorker, registrar ChannelRegistrar, logger *zap.Logger) {
	if registrar != nil {
		registrar.RegisterHandlers()
	}
	w.Start()
	if logger != nil {
		logger.Info("notification worker started", zap.Int("queue_size", cap(w.queue)))
	}
}
