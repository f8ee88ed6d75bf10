package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/nerrad567/ocpp-gateway/internal/audit"
	"github.com/nerrad567/ocpp-gateway/internal/ocpp"
)

const (
	// writeWait bounds a single socket write.
	writeWait = 10 * time.Second

	// closeGrace bounds the close handshake frame.
	closeGrace = time.Second
)

// ConnState is the lifecycle state of a Conn.
type ConnState int32

const (
	StateOpen ConnState = iota
	StateClosing
	StateClosed
)

// String returns the state name.
func (s ConnState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ConnConfig holds the per-connection transport settings.
type ConnConfig struct {
	MaxMessageSize int64
	PingInterval   time.Duration
	PongTimeout    time.Duration
	SendBuffer     int
	CallTimeout    time.Duration

	// RateLimit is the sustained inbound frame rate; zero disables limiting.
	RateLimit rate.Limit
	RateBurst int
}

// MessageLog records every frame for audit.
type MessageLog interface {
	Append(ctx context.Context, e *audit.Entry) error
}

// Dispatcher answers inbound Call frames.
type Dispatcher interface {
	Dispatch(ctx context.Context, stationID string, call *ocpp.Frame) *ocpp.Frame
}

type callOutcome struct {
	payload json.RawMessage
	err     error
}

type pendingCall struct {
	action string
	result chan callOutcome
}

// Conn is the live session with one charge point. The read loop processes
// inbound frames strictly in arrival order; the write loop is the only
// goroutine writing to the socket.
type Conn struct {
	id        string
	ws        *websocket.Conn
	cfg       ConnConfig
	router    Dispatcher
	log       MessageLog
	logger    Logger
	limiter   *rate.Limiter
	connected time.Time

	send chan []byte
	done chan struct{}

	state     atomic.Int32
	closeOnce sync.Once
	wg        sync.WaitGroup

	pendingMu     sync.Mutex
	pending       map[string]pendingCall
	pendingClosed bool

	// onClose runs once after the read loop exits, before the state
	// becomes Closed.
	onClose func(*Conn)
}

func newConn(id string, ws *websocket.Conn, cfg ConnConfig, router Dispatcher, msgLog MessageLog, logger Logger) *Conn {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 1
	}
	if logger == nil {
		logger = noopLogger{}
	}
	c := &Conn{
		id:        id,
		ws:        ws,
		cfg:       cfg,
		router:    router,
		log:       msgLog,
		logger:    logger,
		connected: time.Now().UTC(),
		send:      make(chan []byte, cfg.SendBuffer),
		done:      make(chan struct{}),
		pending:   make(map[string]pendingCall),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(cfg.RateLimit, burst)
	}
	return c
}

// ID returns the charge point identity.
func (c *Conn) ID() string {
	return c.id
}

// ConnectedAt returns when the connection was accepted.
func (c *Conn) ConnectedAt() time.Time {
	return c.connected
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() string {
	if c.ws == nil {
		return ""
	}
	return c.ws.RemoteAddr().String()
}

// State returns the lifecycle state.
func (c *Conn) State() ConnState {
	return ConnState(c.state.Load())
}

// PendingCalls returns the number of outbound Calls awaiting an answer.
func (c *Conn) PendingCalls() int {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	return len(c.pending)
}

// Done is closed when the connection starts closing.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Run serves the connection until the socket fails, Close is called or ctx
// is cancelled.
func (c *Conn) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		c.writeLoop()
	}()
	go func() {
		defer c.wg.Done()
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.done:
		}
	}()

	c.readLoop(ctx)
	c.Close()
	c.wg.Wait()

	if c.onClose != nil {
		c.onClose(c)
	}
	c.state.Store(int32(StateClosed))
}

// Close starts closing the connection. Waiting Calls fail with
// ErrConnectionClosed. Close is safe to call more than once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosing))
		close(c.done)
		if c.ws != nil {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			// The peer may already be gone; both calls are best effort.
			_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
			_ = c.ws.Close()
		}
		c.failPending()
	})
}

func (c *Conn) readLoop(ctx context.Context) {
	if c.cfg.MaxMessageSize > 0 {
		c.ws.SetReadLimit(c.cfg.MaxMessageSize)
	}
	deadline := c.cfg.PingInterval + c.cfg.PongTimeout
	extend := func() {
		if c.cfg.PingInterval > 0 {
			_ = c.ws.SetReadDeadline(time.Now().Add(deadline)) //nolint:errcheck // deadline errors surface on read
		}
	}
	extend()
	c.ws.SetPongHandler(func(string) error {
		extend()
		return nil
	})

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && c.State() == StateOpen {
				c.logger.Warn("websocket read error", "station_id", c.id, "error", err)
			}
			return
		}
		if c.State() != StateOpen {
			return
		}
		extend()

		if msgType != websocket.TextMessage {
			c.logger.Warn("non-text frame, closing", "station_id", c.id)
			return
		}

		frame, err := ocpp.Parse(data)
		if err != nil {
			c.logger.Warn("malformed frame, closing", "station_id", c.id, "error", err)
			return
		}

		switch frame.Type {
		case ocpp.MessageTypeCall:
			c.record(ctx, audit.Incoming, frame, frame.Action)
			c.handleCall(ctx, frame)
		case ocpp.MessageTypeCallResult, ocpp.MessageTypeCallError:
			c.resolve(ctx, frame)
		}
	}
}

func (c *Conn) handleCall(ctx context.Context, call *ocpp.Frame) {
	var resp *ocpp.Frame
	if c.limiter != nil && !c.limiter.Allow() {
		c.logger.Warn("inbound rate limit exceeded", "station_id", c.id, "action", call.Action)
		resp = ocpp.NewCallError(call.UniqueID, ocpp.ErrorGeneric, "rate limit exceeded", nil)
	} else {
		resp = c.router.Dispatch(ctx, c.id, call)
	}

	if err := c.write(ctx, resp, call.Action); err != nil {
		c.logger.Warn("sending response", "station_id", c.id, "action", call.Action, "error", err)
	}
}

// resolve hands a CallResult or CallError to the waiting Call.
func (c *Conn) resolve(ctx context.Context, f *ocpp.Frame) {
	c.pendingMu.Lock()
	p, ok := c.pending[f.UniqueID]
	if ok {
		delete(c.pending, f.UniqueID)
	}
	c.pendingMu.Unlock()

	if !ok {
		c.record(ctx, audit.Incoming, f, "")
		c.logger.Warn("unmatched response dropped", "station_id", c.id, "unique_id", f.UniqueID, "type", f.Type.String())
		return
	}
	c.record(ctx, audit.Incoming, f, p.action)

	out := callOutcome{payload: f.Payload}
	if f.Type == ocpp.MessageTypeCallError {
		out = callOutcome{err: f.AsError()}
	}
	p.result <- out
}

// Call sends an outbound Call and waits for the answer. A CallError reply is
// returned as *ocpp.CallError.
func (c *Conn) Call(ctx context.Context, action string, payload any) (json.RawMessage, error) {
	if c.State() != StateOpen {
		return nil, ErrConnectionClosed
	}

	frame, err := ocpp.NewCall(uuid.NewString(), action, payload)
	if err != nil {
		return nil, err
	}

	result := make(chan callOutcome, 1)
	c.pendingMu.Lock()
	if c.pendingClosed {
		c.pendingMu.Unlock()
		return nil, ErrConnectionClosed
	}
	c.pending[frame.UniqueID] = pendingCall{action: action, result: result}
	c.pendingMu.Unlock()

	if c.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.CallTimeout)
		defer cancel()
	}

	if err := c.write(ctx, frame, action); err != nil {
		c.dropPending(frame.UniqueID)
		return nil, err
	}

	select {
	case out := <-result:
		return out.payload, out.err
	case <-ctx.Done():
		c.dropPending(frame.UniqueID)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrCallTimeout, action)
		}
		return nil, ctx.Err()
	}
}

func (c *Conn) dropPending(uniqueID string) {
	c.pendingMu.Lock()
	delete(c.pending, uniqueID)
	c.pendingMu.Unlock()
}

func (c *Conn) failPending() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	c.pendingClosed = true
	for id, p := range c.pending {
		p.result <- callOutcome{err: ErrConnectionClosed}
		delete(c.pending, id)
	}
}

// write logs the frame and queues it for the write loop.
func (c *Conn) write(ctx context.Context, f *ocpp.Frame, action string) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}

	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	c.record(ctx, audit.Outgoing, f, action)

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Conn) writeLoop() {
	var tick <-chan time.Time
	if c.cfg.PingInterval > 0 {
		ticker := time.NewTicker(c.cfg.PingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // surfaces on write
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Warn("websocket write error", "station_id", c.id, "error", err)
				c.Close()
				return
			}
		case <-tick:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // surfaces on write
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// record appends the frame to the message log. Failures are logged and
// never interrupt the exchange.
func (c *Conn) record(ctx context.Context, dir audit.Direction, f *ocpp.Frame, action string) {
	if c.log == nil {
		return
	}
	payload := f.Payload
	if f.Type == ocpp.MessageTypeCallError {
		payload, _ = json.Marshal(map[string]any{ //nolint:errcheck // plain strings always encode
			"errorCode":        f.ErrorCode,
			"errorDescription": f.ErrorDescription,
			"errorDetails":     json.RawMessage(f.ErrorDetails),
		})
	}
	entry := &audit.Entry{
		StationID:   c.id,
		Direction:   dir,
		MessageType: f.Type.String(),
		Action:      action,
		UniqueID:    f.UniqueID,
		Payload:     payload,
	}
	if err := c.log.Append(context.WithoutCancel(ctx), entry); err != nil {
		c.logger.Warn("message log append failed", "station_id", c.id, "error", err)
	}
}
