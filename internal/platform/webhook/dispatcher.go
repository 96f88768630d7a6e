// Package webhook delivers live events to external alerting endpoints, such
// as a state surveillance system, as signed JSON POSTs with retries.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/emmanuel-123tech/africareai/internal/platform/auth"
	"github.com/emmanuel-123tech/africareai/internal/platform/websocket"
)

// ErrQueueFull is returned by Publish when deliveries are backed up.
var ErrQueueFull = errors.New("webhook: delivery queue full")

// Endpoint receives events for the listed topics.
type Endpoint struct {
	URL    string   `json:"url"`
	Secret string   `json:"-"`
	Topics []string `json:"topics"`
}

func (ep Endpoint) wants(topic string) bool {
	for _, t := range ep.Topics {
		if t == topic || t == "*" {
			return true
		}
	}
	return false
}

// ValidateURL checks that rawURL is an absolute http or https URL.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", rawURL)
	}
	return nil
}

// SignPayload returns the hex HMAC-SHA256 of payload under secret.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature matches payload under secret.
func VerifySignature(payload []byte, secret, signature string) bool {
	return hmac.Equal([]byte(SignPayload(payload, secret)), []byte(signature))
}

// Attempt records one delivery try.
type Attempt struct {
	ID         string        `json:"id"`
	URL        string        `json:"url"`
	EventType  string        `json:"event_type"`
	RecordID   string        `json:"record_id,omitempty"`
	Attempt    int           `json:"attempt"`
	Status     string        `json:"status"`
	StatusCode int           `json:"status_code,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
	CreatedAt  time.Time     `json:"created_at"`
}

// ---------------------------------------------------------------------------
// Dispatcher
// ---------------------------------------------------------------------------

type Option func(*Dispatcher)

func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) { d.client = c }
}

// WithRetryDelays sets the waits between attempts. Its length is the number
// of retries after the first try.
func WithRetryDelays(delays ...time.Duration) Option {
	return func(d *Dispatcher) { d.retryDelays = delays }
}

func WithQueueSize(n int) Option {
	return func(d *Dispatcher) { d.queue = make(chan job, n) }
}

// WithLogSize bounds how many recent attempts Deliveries returns.
func WithLogSize(n int) Option {
	return func(d *Dispatcher) { d.logSize = n }
}

type job struct {
	endpoint Endpoint
	event    websocket.Event
}

// Dispatcher implements websocket.EventPublisher. Publish only enqueues;
// a single worker started by Start performs deliveries in order.
type Dispatcher struct {
	endpoints   []Endpoint
	client      *http.Client
	retryDelays []time.Duration
	queue       chan job
	logger      zerolog.Logger

	mu      sync.Mutex
	log     []*Attempt
	logSize int

	wg sync.WaitGroup
}

func NewDispatcher(endpoints []Endpoint, logger zerolog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		endpoints:   endpoints,
		client:      &http.Client{Timeout: 10 * time.Second},
		retryDelays: []time.Duration{time.Second, 5 * time.Second, 30 * time.Second},
		queue:       make(chan job, 256),
		logger:      logger.With().Str("component", "webhook").Logger(),
		logSize:     200,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Endpoints returns the configured endpoints.
func (d *Dispatcher) Endpoints() []Endpoint {
	return d.endpoints
}

// Publish queues event for every endpoint subscribed to its topic.
func (d *Dispatcher) Publish(_ context.Context, event websocket.Event) error {
	for _, ep := range d.endpoints {
		if !ep.wants(event.Topic) {
			continue
		}
		select {
		case d.queue <- job{endpoint: ep, event: event}:
		default:
			d.logger.Warn().Str("url", ep.URL).Str("topic", event.Topic).Msg("webhook queue full, event dropped")
			return ErrQueueFull
		}
	}
	return nil
}

// Start runs the delivery worker until ctx is cancelled. Jobs still queued
// at that point are abandoned.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case j := <-d.queue:
				d.deliver(ctx, j)
			}
		}
	}()
}

// Wait blocks until the worker has stopped.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, j job) {
	payload, err := json.Marshal(j.event)
	if err != nil {
		d.logger.Error().Err(err).Msg("failed to marshal webhook event")
		return
	}

	for n := 0; n <= len(d.retryDelays); n++ {
		if n > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(d.retryDelays[n-1]):
			}
		}
		a := d.attempt(ctx, j, payload, n+1)
		d.record(a)
		if a.Status == "success" {
			return
		}
		d.logger.Warn().
			Str("url", a.URL).
			Int("attempt", a.Attempt).
			Int("status_code", a.StatusCode).
			Str("error", a.Error).
			Msg("webhook delivery failed")
	}
}

func (d *Dispatcher) attempt(ctx context.Context, j job, payload []byte, n int) *Attempt {
	now := time.Now()
	a := &Attempt{
		ID:        uuid.New().String(),
		URL:       j.endpoint.URL,
		EventType: j.event.Type,
		RecordID:  j.event.RecordID,
		Attempt:   n,
		Status:    "failed",
		CreatedAt: now.UTC(),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.endpoint.URL, bytes.NewReader(payload))
	if err != nil {
		a.Error = err.Error()
		return a
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-ID", a.ID)
	req.Header.Set("X-Webhook-Timestamp", now.UTC().Format(time.RFC3339))
	if j.endpoint.Secret != "" {
		req.Header.Set("X-Webhook-Signature", "sha256="+SignPayload(payload, j.endpoint.Secret))
	}

	resp, err := d.client.Do(req)
	a.Duration = time.Since(now)
	if err != nil {
		a.Error = err.Error()
		return a
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	a.StatusCode = resp.StatusCode
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		a.Status = "success"
	} else {
		a.Error = fmt.Sprintf("non-2xx response: %d", resp.StatusCode)
	}
	return a
}

func (d *Dispatcher) record(a *Attempt) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.log = append(d.log, a)
	if over := len(d.log) - d.logSize; over > 0 {
		d.log = d.log[over:]
	}
}

// Deliveries returns recent attempts, newest first.
func (d *Dispatcher) Deliveries() []*Attempt {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Attempt, len(d.log))
	for i, a := range d.log {
		out[len(d.log)-1-i] = a
	}
	return out
}

// ---------------------------------------------------------------------------
// Handler
// ---------------------------------------------------------------------------

type Handler struct {
	d *Dispatcher
}

func NewHandler(d *Dispatcher) *Handler {
	return &Handler{d: d}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/alerts", auth.RequireRole(auth.RoleAdmin))
	g.GET("/endpoints", h.ListEndpoints)
	g.GET("/deliveries", h.ListDeliveries)
}

func (h *Handler) ListEndpoints(c echo.Context) error {
	return c.JSON(http.StatusOK, h.d.Endpoints())
}

func (h *Handler) ListDeliveries(c echo.Context) error {
	return c.JSON(http.StatusOK, h.d.Deliveries())
}
