package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Event is one command from the host stream: a command tag like
// ":OBSERVER:MOVE:" plus its pipe-separated arguments.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

// HandlerFunc processes a host command and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*registration)

type registration struct {
	queueSize int
	blocking  bool
	logged    bool
}

// Buffered decouples the handler from the host tick: events are queued and
// processed by a dedicated goroutine. Use for high-volume commands like
// observer movement so a slow handler never stalls the host.
func Buffered(size int) Option {
	return func(r *registration) {
		r.queueSize = size
	}
}

// Blocking makes a buffered handler apply backpressure when the queue is
// full instead of dropping the event.
func Blocking() Option {
	return func(r *registration) {
		r.blocking = true
	}
}

// Logged wraps the handler with debug/error logging.
func Logged() Option {
	return func(r *registration) {
		r.logged = true
	}
}

// Dispatcher routes host commands to registered handlers.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger

	queueDepth metric.Int64ObservableGauge
	processed  metric.Int64Counter
	dropped    metric.Int64Counter

	// Queues tracked for the gauge callback.
	mu     sync.RWMutex
	queues map[string]chan Event
}

// New creates a Dispatcher reporting through the given logger. Metrics go to
// the global OTel meter, which is a no-op unless a provider is installed.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		queues:   make(map[string]chan Event),
		logger:   logger,
	}
	if err := d.initMetrics(meter()); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dispatcher) initMetrics(m metric.Meter) error {
	var err error

	d.queueDepth, err = m.Int64ObservableGauge(
		"geosync.commands.queue_depth",
		metric.WithDescription("Host commands waiting in each handler queue"),
	)
	if err != nil {
		return fmt.Errorf("creating queue depth gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for cmd, q := range d.queues {
				o.ObserveInt64(d.queueDepth, int64(len(q)),
					metric.WithAttributes(attribute.String("command", cmd)))
			}
			return nil
		},
		d.queueDepth,
	)
	if err != nil {
		return fmt.Errorf("registering queue depth callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"geosync.commands.processed",
		metric.WithDescription("Host commands processed"),
	)
	if err != nil {
		return fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"geosync.commands.dropped",
		metric.WithDescription("Host commands dropped because a handler queue was full"),
	)
	if err != nil {
		return fmt.Errorf("creating dropped counter: %w", err)
	}

	return nil
}

// Register adds a handler for the given command.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	reg := &registration{}
	for _, opt := range opts {
		opt(reg)
	}

	handler := h
	if reg.queueSize > 0 {
		handler = d.queuedHandler(command, reg.queueSize, reg.blocking, handler)
	}
	if reg.logged {
		handler = d.loggedHandler(command, handler)
	}

	d.handlers[command] = handler
}

// Dispatch routes a host command to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	h, ok := d.handlers[e.Command]
	if !ok {
		return nil, fmt.Errorf("no handler for command %s", e.Command)
	}
	return h(e)
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.handlers[command]
	return ok
}

func (d *Dispatcher) queuedHandler(command string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	queue := make(chan Event, size)

	d.mu.Lock()
	d.queues[command] = queue
	d.mu.Unlock()

	cmdAttr := attribute.String("command", command)

	go func() {
		for e := range queue {
			h(e)
			d.processed.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
		}
	}()

	if blocking {
		return func(e Event) (any, error) {
			queue <- e
			return "accepted", nil
		}
	}

	return func(e Event) (any, error) {
		select {
		case queue <- e:
			return "accepted", nil
		default:
			d.dropped.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
			return nil, fmt.Errorf("command queue full: %s", command)
		}
	}
}

func (d *Dispatcher) loggedHandler(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("host command received", "command", command, "args", len(e.Args))

		result, err := h(e)

		if err != nil {
			d.logger.Error("host command failed", "command", command, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("host command handled", "command", command, "duration", time.Since(start))
		}

		return result, err
	}
}
