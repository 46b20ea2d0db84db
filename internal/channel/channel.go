package channel

import (
	"context"
	"sync"
	"time"

	"github.com/mastershashi/llm-engineering-usecases/internal/errors"
	"github.com/mastershashi/llm-engineering-usecases/internal/log"
	"github.com/mastershashi/llm-engineering-usecases/internal/metrics"
)

// Protocol constants.
const (
	DefaultReconnectDelay    = 2 * time.Second
	DefaultKeepaliveInterval = 25 * time.Second
)

// State is the transport state as seen by consumers.
type State int

const (
	// Idle: never connected, or intentionally disconnected.
	Idle State = iota
	Connecting
	Connected
	// Waiting: the transport closed and a reconnect is pending.
	Waiting
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Waiting:
		return "reconnecting"
	default:
		return "idle"
	}
}

// ConnectHandler is told about every successful connection. reconnect is
// true when an earlier transport for this session was lost, meaning events
// may have been missed.
type ConnectHandler func(reconnect bool)

// StateHandler observes state transitions.
type StateHandler func(State)

// Channel is the logical event channel for one plan.
type Channel struct {
	planID            string
	url               string
	dialer            Dialer
	reconnectDelay    time.Duration
	keepaliveInterval time.Duration
	logger            *log.Logger
	metrics           *metrics.Metrics
	onConnect         ConnectHandler
	onState           StateHandler

	handlers registry

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc // non-nil while the client wants to be connected
	done   chan struct{}      // closed when the supervisor exits
}

// Option configures a Channel
type Option func(*Channel)

// WithDialer replaces the websocket dialer. Tests use in-memory transports.
func WithDialer(d Dialer) Option {
	return func(c *Channel) { c.dialer = d }
}

// WithReconnectDelay overrides DefaultReconnectDelay.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Channel) {
		if d > 0 {
			c.reconnectDelay = d
		}
	}
}

// WithKeepaliveInterval overrides DefaultKeepaliveInterval.
func WithKeepaliveInterval(d time.Duration) Option {
	return func(c *Channel) {
		if d > 0 {
			c.keepaliveInterval = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(c *Channel) { c.logger = l }
}

// WithMetrics records dial, frame and keepalive metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Channel) { c.metrics = m }
}

// WithConnectHandler registers a callback for every established transport.
func WithConnectHandler(h ConnectHandler) Option {
	return func(c *Channel) { c.onConnect = h }
}

// WithStateHandler registers a callback for state transitions.
func WithStateHandler(h StateHandler) Option {
	return func(c *Channel) { c.onState = h }
}

// New creates a channel for planID that will dial url. It does not
// connect until Connect is called.
func New(planID, url string, opts ...Option) *Channel {
	c := &Channel{
		planID:            planID,
		url:               url,
		reconnectDelay:    DefaultReconnectDelay,
		keepaliveInterval: DefaultKeepaliveInterval,
		logger:            log.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dialer == nil {
		c.dialer = NewWebsocketDialer("")
	}
	c.logger = c.logger.Component("channel").WithPlan(planID)
	return c
}

// PlanID returns the plan this channel streams.
func (c *Channel) PlanID() string {
	return c.planID
}

// On registers h for topic (or Wildcard) and returns a subscription id.
// Registration is independent of the transport and survives reconnects.
func (c *Channel) On(topic EventType, h Handler) string {
	return c.handlers.add(topic, h)
}

// Off removes a subscription. It reports whether the id was registered.
func (c *Channel) Off(id string) bool {
	return c.handlers.remove(id)
}

// Handlers returns the number of registered handlers.
func (c *Channel) Handlers() int {
	return c.handlers.len()
}

// State returns the current transport state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect starts the supervisor that dials, reads and reconnects until
// Disconnect. Calling Connect on a running channel is a no-op.
func (c *Channel) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.supervise(ctx, c.done)
}

// Disconnect records the intent to stay closed, stops the keepalive,
// closes the transport and cancels any pending reconnect. It waits for
// the supervisor to exit, so no handler runs after it returns. It must not
// be called from inside a Handler.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	c.setState(Idle)
	c.logger.Info("event channel disconnected")
}

func (c *Channel) setState(s State) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()
	if changed && c.onState != nil {
		c.onState(s)
	}
}

func (c *Channel) supervise(ctx context.Context, done chan struct{}) {
	defer close(done)

	lost := false
	for attempt := 1; ; attempt++ {
		c.setState(Connecting)
		conn, err := c.dialer.Dial(ctx, c.url)
		if ctx.Err() != nil {
			if conn != nil {
				_ = conn.Close()
			}
			return
		}

		if err != nil {
			c.metrics.RecordDial(false)
			c.logger.WithError(errors.Wrap(errors.ErrCodeTransportDial, "dial failed", err)).
				Warn("event channel dial failed", "attempt", attempt)
		} else {
			c.metrics.RecordDial(true)
			c.setState(Connected)
			c.logger.Info("event channel connected", "attempt", attempt, "reconnect", lost)
			if c.onConnect != nil {
				c.onConnect(lost)
			}
			reason := c.serve(ctx, conn)
			c.metrics.RecordDisconnect()
			if ctx.Err() != nil {
				return
			}
			lost = true
			c.logger.WithError(reason).Info("event channel dropped")
		}

		c.setState(Waiting)
		c.metrics.RecordReconnect()
		c.logger.Debug("reconnect scheduled", "delay", c.reconnectDelay)

		timer := time.NewTimer(c.reconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// serve pumps one transport until it closes or ctx is cancelled and
// returns why it stopped.
func (c *Channel) serve(ctx context.Context, conn Conn) error {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	var once sync.Once
	closeConn := func() { once.Do(func() { _ = conn.Close() }) }
	defer func() {
		close(stop)
		closeConn()
		wg.Wait()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(c.keepaliveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				closeConn()
				return
			case <-ticker.C:
				if err := conn.WriteMessage(pingFrame); err != nil {
					c.metrics.RecordKeepaliveFailure()
					c.logger.WithError(errors.Wrap(errors.ErrCodeTransportKeepalive, "keepalive failed", err)).
						Warn("keepalive failed, closing transport")
					closeConn()
					return
				}
			}
		}
	}()

	for {
		frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return errors.Wrap(errors.ErrCodeTransportClosed, "closed by client", err)
			}
			return errors.Wrap(errors.ErrCodeTransportDropped, "transport closed", err)
		}
		c.deliver(frame)
	}
}

func (c *Channel) deliver(frame []byte) {
	ev, ok, err := decodeFrame(frame)
	if err != nil {
		c.metrics.RecordMalformed()
		c.logger.Debug("malformed frame dropped", "error", err.Error(), "bytes", len(frame))
		return
	}
	if !ok {
		return
	}
	c.metrics.RecordEvent(string(ev.Type))
	for _, h := range c.handlers.match(ev.Type) {
		c.call(h, ev)
	}
}

// call isolates a panicking handler so later handlers and frames still run.
func (c *Channel) call(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("event handler panicked", "event", string(ev.Type), "panic", r)
		}
	}()
	h(ev)
}
