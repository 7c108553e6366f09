// Package realtime is the websocket transport of the chat push channel. It
// decodes frames into typed events and hands each one to the attached
// handlers, then publishes it on the bus under "rt.<event name>" for
// observers. It never touches the store.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/status"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const readLimit = 1 << 20

// Config configures the realtime client.
type Config struct {
	URL   string
	Token string
	// MaxReconnectAttempts caps consecutive failed attempts; 0 means no limit.
	MaxReconnectAttempts int
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
	HTTPClient           *http.Client
}

func (c *Config) defaults() {
	if c.ReconnectBaseDelay == 0 {
		c.ReconnectBaseDelay = time.Second
	}
	if c.ReconnectMaxDelay == 0 {
		c.ReconnectMaxDelay = 30 * time.Second
	}
}

// Client keeps a websocket connection open, reconnecting with backoff.
type Client struct {
	cfg     Config
	bus     *bus.Bus
	machine *status.Machine
	logger  *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	hmu      sync.RWMutex
	handlers map[uint64]Handler
	nextID   uint64
}

// Handler consumes decoded events. Ingest runs on the read loop, one event at
// a time in arrival order, so a slow handler slows reading instead of losing
// events.
type Handler interface {
	Ingest(Event)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(Event)

func (f HandlerFunc) Ingest(evt Event) { f(evt) }

// New creates a client. It does not connect until Start.
func New(cfg Config, b *bus.Bus, machine *status.Machine, logger *zap.Logger) *Client {
	cfg.defaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, bus: b, machine: machine, logger: logger, handlers: map[uint64]Handler{}}
}

// Attach registers h for every event decoded from now on. The returned
// function detaches it and may be called more than once.
func (c *Client) Attach(h Handler) (detach func()) {
	c.hmu.Lock()
	id := c.nextID
	c.nextID++
	c.handlers[id] = h
	c.hmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.hmu.Lock()
			delete(c.handlers, id)
			c.hmu.Unlock()
		})
	}
}

// Handlers returns the number of attached handlers.
func (c *Client) Handlers() int {
	c.hmu.RLock()
	defer c.hmu.RUnlock()
	return len(c.handlers)
}

// Start runs the connection loop in the background until ctx ends or Stop is
// called. Calling Start while running does nothing.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go c.run(ctx, c.done)
}

// Stop closes the connection and waits for the loop to exit.
func (c *Client) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	c.transition(status.Stopped)
}

func (c *Client) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	bo := &backoff{
		baseDelay:   c.cfg.ReconnectBaseDelay,
		maxDelay:    c.cfg.ReconnectMaxDelay,
		maxAttempts: c.cfg.MaxReconnectAttempts,
	}
	for {
		c.transition(status.Connecting)
		err := c.session(ctx, bo)
		if ctx.Err() != nil {
			return
		}
		if !bo.shouldRetry() {
			c.logger.Error("realtime channel gave up", zap.Error(err), zap.Int("attempts", bo.attempt))
			c.transition(status.Stopped)
			return
		}
		delay := bo.next()
		c.transition(status.Reconnecting)
		c.logger.Warn("realtime channel lost",
			zap.Error(err),
			zap.Int("attempt", bo.attempt),
			zap.Duration("retry_in", delay),
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

// session dials once and reads frames until the connection fails.
func (c *Client) session(ctx context.Context, bo *backoff) error {
	opts := &websocket.DialOptions{HTTPClient: c.cfg.HTTPClient}
	if c.cfg.Token != "" {
		opts.HTTPHeader = http.Header{"Authorization": []string{"Bearer " + c.cfg.Token}}
	}
	conn, _, err := websocket.Dial(ctx, c.cfg.URL, opts)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()
	conn.SetReadLimit(readLimit)

	bo.markConnected()
	c.transition(status.Connected)
	c.logger.Info("realtime channel connected", zap.String("url", c.cfg.URL))

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("websocket read: %w", err)
		}
		c.handle(data)
	}
}

func (c *Client) handle(data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Warn("dropping unreadable frame", zap.Error(err))
		return
	}
	evt, err := Decode(env)
	switch {
	case errors.Is(err, ErrUnknownEvent):
		c.logger.Debug("ignoring realtime event", zap.String("type", env.Type))
		return
	case err != nil:
		c.logger.Warn("dropping realtime event", zap.String("type", env.Type), zap.Error(err))
		return
	}
	c.deliver(evt)
}

func (c *Client) deliver(evt Event) {
	c.hmu.RLock()
	hs := make([]Handler, 0, len(c.handlers))
	for _, h := range c.handlers {
		hs = append(hs, h)
	}
	c.hmu.RUnlock()

	for _, h := range hs {
		h.Ingest(evt)
	}

	if c.bus != nil {
		c.bus.Publish(bus.Now(bus.RealtimePrefix+evt.Name(), evt))
	}
}

func (c *Client) transition(to status.State) {
	if c.machine == nil {
		return
	}
	if err := c.machine.Transition(to); err != nil {
		c.logger.Debug("status transition skipped", zap.Error(err))
	}
}
