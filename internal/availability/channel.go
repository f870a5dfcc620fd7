package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ferryline/pkg/logger"
	"ferryline/pkg/model"
)

// Connection states. Every state change goes through the transition table;
// an edge not listed there is a bug, not a race to paper over.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateBackoff    State = "backoff"
	StateClosed     State = "closed"
)

var transitions = map[State][]State{
	StateIdle:       {StateConnecting, StateClosed},
	StateConnecting: {StateOpen, StateBackoff, StateClosed},
	StateOpen:       {StateBackoff, StateClosed},
	StateBackoff:    {StateConnecting, StateClosed},
	StateClosed:     {},
}

func canTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Conn is the subset of the websocket connection the channel uses.
// *websocket.Conn satisfies it; tests substitute a scripted fake.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
	Close() error
}

// Dialer opens one push connection. The production dialer wraps gorilla's
// default dialer.
type Dialer interface {
	Dial(ctx context.Context, rawURL string) (Conn, error)
}

type wsDialer struct{}

func (wsDialer) Dial(ctx context.Context, rawURL string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// DeltaHandler receives every availability delta the channel delivers.
type DeltaHandler func(sailingID string, delta model.AvailabilityDelta)

// StateHandler is notified after every state change.
type StateHandler func(state State)

type Config struct {
	URL                  string
	MaxReconnectAttempts int           // default 5
	ReconnectBase        time.Duration // default 3s
	KeepaliveInterval    time.Duration // default 30s
}

func (cfg Config) withDefaults() Config {
	if cfg.MaxReconnectAttempts == 0 {
		cfg.MaxReconnectAttempts = 5
	}
	if cfg.ReconnectBase == 0 {
		cfg.ReconnectBase = 3 * time.Second
	}
	if cfg.KeepaliveInterval == 0 {
		cfg.KeepaliveInterval = 30 * time.Second
	}
	return cfg
}

// Channel owns the persistent push connection: the subscription interest
// set, the keepalive probe and the bounded reconnect loop. Errors are
// recorded as state and never returned out of the message loop.
type Channel struct {
	cfg     Config
	log     *logger.Logger
	dialer  Dialer
	onDelta DeltaHandler
	onState StateHandler

	mu         sync.Mutex
	state      State
	lastErr    error
	subscribed bool
	interests  map[string]bool
	conn       Conn
	attempts   int
	cancel     context.CancelFunc
	done       chan struct{}
}

func NewChannel(cfg Config, log *logger.Logger, onDelta DeltaHandler) *Channel {
	return &Channel{
		cfg:       cfg.withDefaults(),
		log:       log.WithComponent("availability-channel"),
		dialer:    wsDialer{},
		onDelta:   onDelta,
		state:     StateIdle,
		interests: make(map[string]bool),
	}
}

// SetDialer replaces the websocket dialer. Tests use it to script the wire.
func (c *Channel) SetDialer(d Dialer) {
	c.dialer = d
}

// OnStateChange registers a listener invoked after each transition.
func (c *Channel) OnStateChange(fn StateHandler) {
	c.onState = fn
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the most recent connection error, if any. Errors are
// non-fatal and only observable here.
func (c *Channel) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Subscribed reports whether the server has acknowledged the current
// subscription set.
func (c *Channel) Subscribed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscribed
}

// Connect opens the push connection, optionally scoped to a set of routes,
// and starts the read loop. It returns immediately; progress is observable
// through State and OnStateChange.
func (c *Channel) Connect(ctx context.Context, routeFilter ...string) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return fmt.Errorf("channel already started (state %s)", c.state)
	}
	for _, route := range routeFilter {
		c.interests[route] = true
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.run(runCtx)
	return nil
}

// Subscribe registers interest in routes. Only routes not already in the
// interest set are sent to the server, so a caller recomputing its route
// list on every render causes no churn.
func (c *Channel) Subscribe(routes []string) {
	c.mu.Lock()
	var added []string
	for _, route := range routes {
		if !c.interests[route] {
			c.interests[route] = true
			added = append(added, route)
		}
	}
	conn := c.conn
	open := c.state == StateOpen
	c.mu.Unlock()

	if len(added) == 0 || !open {
		return
	}
	c.send(conn, ClientFrame{Action: ActionSubscribe, Routes: added})
}

// Unsubscribe removes interest in routes, sending only the ones that were
// actually registered.
func (c *Channel) Unsubscribe(routes []string) {
	c.mu.Lock()
	var removed []string
	for _, route := range routes {
		if c.interests[route] {
			delete(c.interests, route)
			removed = append(removed, route)
		}
	}
	conn := c.conn
	open := c.state == StateOpen
	c.mu.Unlock()

	if len(removed) == 0 || !open {
		return
	}
	c.send(conn, ClientFrame{Action: ActionUnsubscribe, Routes: removed})
}

// Close tears the channel down: the read loop, the keepalive probe and any
// pending backoff wait are all cancelled so no reconnect can outlive the
// caller.
func (c *Channel) Close() {
	c.mu.Lock()
	cancel := c.cancel
	conn := c.conn
	done := c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	if done != nil {
		<-done
	}
	c.transition(StateClosed)
}

func (c *Channel) run(ctx context.Context) {
	defer close(c.done)

	for {
		if !c.transition(StateConnecting) {
			return
		}

		conn, err := c.dialer.Dial(ctx, c.connectURL())
		if err != nil {
			c.recordError(err)
			if !c.backoff(ctx) {
				return
			}
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.attempts = 0
		c.mu.Unlock()
		if !c.transition(StateOpen) {
			_ = conn.Close()
			return
		}
		c.log.Info("push channel connected", "url", c.cfg.URL)

		c.resubscribe(conn)

		keepaliveDone := make(chan struct{})
		go c.keepalive(ctx, conn, keepaliveDone)

		readErr := c.readLoop(conn)
		close(keepaliveDone)
		_ = conn.Close()

		c.mu.Lock()
		c.conn = nil
		c.subscribed = false
		c.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		c.recordError(readErr)
		if !c.backoff(ctx) {
			return
		}
	}
}

func (c *Channel) connectURL() string {
	c.mu.Lock()
	routes := c.interestList()
	c.mu.Unlock()

	if len(routes) == 0 {
		return c.cfg.URL
	}
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return c.cfg.URL
	}
	q := u.Query()
	q.Set("routes", strings.Join(routes, ","))
	u.RawQuery = q.Encode()
	return u.String()
}

// interestList returns the current interest set. Caller must hold c.mu.
func (c *Channel) interestList() []string {
	routes := make([]string, 0, len(c.interests))
	for route := range c.interests {
		routes = append(routes, route)
	}
	return routes
}

// resubscribe re-registers the full interest set after a (re)connect.
func (c *Channel) resubscribe(conn Conn) {
	c.mu.Lock()
	routes := c.interestList()
	c.mu.Unlock()

	if len(routes) == 0 {
		return
	}
	c.send(conn, ClientFrame{Action: ActionSubscribe, Routes: routes})
}

// send writes a client frame to the connection. A write failure is
// recorded, not returned; the read loop sees the broken connection and
// drives the reconnect.
func (c *Channel) send(conn Conn, frame ClientFrame) {
	if err := conn.WriteJSON(frame); err != nil {
		c.recordError(err)
	}
}

func (c *Channel) keepalive(ctx context.Context, conn Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.KeepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			c.send(conn, ClientFrame{Action: ActionPing})
		}
	}
}

func (c *Channel) readLoop(conn Conn) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.handleMessage(raw)
	}
}

func (c *Channel) handleMessage(raw []byte) {
	var msg ServerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.log.Warn("dropping malformed push message", "error", err)
		return
	}

	switch msg.Type {
	case MsgConnected:
		c.log.Debug("push server acknowledged connection")
	case MsgSubscribed:
		c.mu.Lock()
		c.subscribed = true
		c.mu.Unlock()
		c.log.Debug("subscription acknowledged", "routes", msg.Routes)
	case MsgUpdate:
		if msg.Data == nil || msg.Data.SailingID() == "" {
			c.log.Warn("dropping availability update without sailing id")
			return
		}
		delta := msg.Data.Availability
		if delta.Source == "" {
			delta.Source = msg.Data.Source
		}
		if c.onDelta != nil {
			c.onDelta(msg.Data.SailingID(), delta)
		}
	case MsgPong:
		// keepalive answered, nothing to do
	case MsgError:
		c.recordError(fmt.Errorf("push server error: %s", msg.Message))
	default:
		c.log.Warn("dropping push message of unknown type", "type", msg.Type)
	}
}

// backoff waits before the next reconnect attempt. It returns false when the
// attempt budget is exhausted or the context is cancelled; the channel then
// ends in Closed.
func (c *Channel) backoff(ctx context.Context) bool {
	c.mu.Lock()
	c.attempts++
	attempt := c.attempts
	c.mu.Unlock()

	if attempt > c.cfg.MaxReconnectAttempts {
		c.log.Error("reconnect attempts exhausted", "attempts", attempt-1)
		c.transition(StateClosed)
		return false
	}
	if !c.transition(StateBackoff) {
		return false
	}

	wait := c.cfg.ReconnectBase * time.Duration(attempt)
	c.log.Info("push channel reconnecting", "attempt", attempt, "wait", wait)

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		c.transition(StateClosed)
		return false
	case <-timer.C:
		return true
	}
}

func (c *Channel) recordError(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
	c.log.Warn("push channel error", "error", err)
}

func (c *Channel) transition(to State) bool {
	c.mu.Lock()
	from := c.state
	if from == to {
		c.mu.Unlock()
		return true
	}
	if !canTransition(from, to) {
		c.mu.Unlock()
		return false
	}
	c.state = to
	onState := c.onState
	c.mu.Unlock()

	c.log.Debug("push channel state change", "from", string(from), "to", string(to))
	if onState != nil {
		onState(to)
	}
	return true
}
