// Package client talks to a jsheet server over its websocket protocol.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
)

const (
	defaultDialTimeout = 10 * time.Second
	defaultMaxAttempts = 3
	defaultBaseBackoff = 200 * time.Millisecond
	defaultMaxBackoff  = 2 * time.Second
	defaultUserAgent   = "jsheet/dev"
)

// Dialer opens connections with retry on transient failures.
type Dialer struct {
	UserAgent  string
	HTTPClient *http.Client

	dialTimeout time.Duration
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	sleep       func(time.Duration)
	randInt63n  func(int64) int64
	now         func() time.Time
}

func NewDialer() *Dialer {
	return &Dialer{
		UserAgent:   defaultUserAgent,
		dialTimeout: defaultDialTimeout,
		maxAttempts: defaultMaxAttempts,
		baseBackoff: defaultBaseBackoff,
		maxBackoff:  defaultMaxBackoff,
		sleep:       time.Sleep,
		randInt63n:  rand.Int63n,
		now:         time.Now,
	}
}

// Conn is a client connection. Calls may be made concurrently; responses
// are matched to calls by request id.
type Conn struct {
	ws     *websocket.Conn
	events chan Message

	mu      sync.Mutex
	pending map[string]chan Message
	err     error
	done    chan struct{}
}

// Dial connects to url, e.g. ws://127.0.0.1:7431/.
func Dial(ctx context.Context, url string) (*Conn, error) {
	return NewDialer().Dial(ctx, url)
}

func (d *Dialer) Dial(ctx context.Context, url string) (*Conn, error) {
	maxAttempts := d.maxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		timeout := d.dialTimeout
		if timeout <= 0 {
			timeout = defaultDialTimeout
		}
		dctx, cancel := context.WithTimeout(ctx, timeout)
		ws, resp, err := websocket.Dial(dctx, url, &websocket.DialOptions{
			HTTPClient: d.HTTPClient,
			HTTPHeader: d.headers(),
		})
		cancel()
		if err == nil {
			return newConn(ws), nil
		}

		status, retryAfter := 0, ""
		if resp != nil {
			status = resp.StatusCode
			retryAfter = resp.Header.Get("Retry-After")
		}
		if attempt < maxAttempts && ctx.Err() == nil && (isRetryableTransportError(err) || shouldRetryStatus(status)) {
			d.sleepWithBackoff(attempt, retryAfter)
			continue
		}
		return nil, fmt.Errorf("connecting to %s failed after %d attempt(s): %w", url, attempt, err)
	}

	return nil, fmt.Errorf("connecting to %s failed after %d attempt(s)", url, maxAttempts)
}

func (d *Dialer) headers() http.Header {
	h := make(http.Header)
	userAgent := strings.TrimSpace(d.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	h.Set("User-Agent", userAgent)
	return h
}

func isRetryableTransportError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		// refused while the server is still starting up
		return opErr.Op == "dial"
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func shouldRetryStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func (d *Dialer) sleepWithBackoff(attempt int, retryAfterHeader string) {
	if delay, ok := d.parseRetryAfter(retryAfterHeader); ok {
		d.sleep(delay)
		return
	}

	base := d.baseBackoff
	if base <= 0 {
		base = defaultBaseBackoff
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay <= 0 {
			delay = defaultMaxBackoff
			break
		}
	}

	maxBackoff := d.maxBackoff
	if maxBackoff <= 0 {
		maxBackoff = defaultMaxBackoff
	}
	if delay > maxBackoff {
		delay = maxBackoff
	}
	if delay <= 0 {
		return
	}

	// Full jitter in [0, delay).
	if d.randInt63n != nil {
		delay = time.Duration(d.randInt63n(int64(delay)))
	}
	d.sleep(delay)
}

func (d *Dialer) parseRetryAfter(headerValue string) (time.Duration, bool) {
	v := strings.TrimSpace(headerValue)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		now := time.Now
		if d.now != nil {
			now = d.now
		}
		delay := t.Sub(now())
		if delay > 0 {
			return delay, true
		}
	}
	return 0, false
}

func newConn(ws *websocket.Conn) *Conn {
	c := &Conn{
		ws:      ws,
		events:  make(chan Message, 16),
		pending: make(map[string]chan Message),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *Conn) readLoop() {
	defer close(c.events)
	for {
		var m Message
		if err := wsjson.Read(context.Background(), c.ws, &m); err != nil {
			c.mu.Lock()
			c.err = err
			for id, ch := range c.pending {
				close(ch)
				delete(c.pending, id)
			}
			c.mu.Unlock()
			close(c.done)
			return
		}
		if m.Event != "" {
			select {
			case c.events <- m:
			default:
				// slow consumer: drop rather than stall responses
			}
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[m.ID]
		delete(c.pending, m.ID)
		c.mu.Unlock()
		if ok {
			ch <- m
		}
	}
}

// Events delivers server events. It is closed when the connection ends.
func (c *Conn) Events() <-chan Message { return c.events }

// CallError is a failed call reported by the server.
type CallError struct {
	Op      string
	Kind    string
	Message string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %s error: %s", e.Op, e.Kind, e.Message)
}

// Call sends op with args and decodes the result into out. args may be nil
// and out may be nil to discard the result.
func (c *Conn) Call(ctx context.Context, op string, args, out any) error {
	raw, err := c.CallRaw(ctx, op, args)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parsing %s result: %w", op, err)
	}
	return nil
}

// CallRaw is Call without decoding the result.
func (c *Conn) CallRaw(ctx context.Context, op string, args any) (json.RawMessage, error) {
	req := Request{ID: uuid.NewString(), Op: op}
	if args != nil {
		raw, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("encoding %s args: %w", op, err)
		}
		req.Args = raw
	}

	ch := make(chan Message, 1)
	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return nil, fmt.Errorf("connection closed: %w", err)
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()

	if err := wsjson.Write(ctx, c.ws, req); err != nil {
		c.forget(req.ID)
		return nil, fmt.Errorf("sending %s: %w", op, err)
	}

	select {
	case <-ctx.Done():
		c.forget(req.ID)
		return nil, ctx.Err()
	case m, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("connection closed while waiting for %s", op)
		}
		if !m.OK {
			ce := &CallError{Op: op, Kind: "unknown"}
			if m.Error != nil {
				ce.Kind = m.Error.Kind
				ce.Message = m.Error.Message
			}
			return nil, ce
		}
		return m.Result, nil
	}
}

func (c *Conn) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Conn) Close() error {
	err := c.ws.Close(websocket.StatusNormalClosure, "")
	<-c.done
	return err
}
