// Package nats publishes run completion events to a NATS subject.
//
// The connection is opened on the first Publish, so building the adapter
// never touches the network. Each publish is flushed to the server before
// it counts as delivered.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/justapithecus/autotiny/adapter"
)

// DefaultSubject is the default subject name.
const DefaultSubject = "autotiny.run_completed"

// DefaultTimeout bounds connecting and each flush.
const DefaultTimeout = 5 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// HeaderEvent carries the event type on every message.
const HeaderEvent = "Autotiny-Event"

// Config configures the NATS adapter.
type Config struct {
	// URL is the server URL, e.g. nats://localhost:4222 (required).
	URL string
	// Subject is the subject to publish on (default autotiny.run_completed).
	Subject string
	// Timeout bounds connecting and flushing (default 5s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure (default 3).
	Retries int
	// BaseBackoff is the delay before the first retry (default 500ms).
	BaseBackoff time.Duration
}

// Adapter publishes run completion events to NATS.
type Adapter struct {
	config Config

	mu     sync.Mutex
	conn   *natsgo.Conn
	closed bool
}

// New creates a NATS adapter. It does not connect.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("nats adapter requires a URL")
	}
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 500 * time.Millisecond
	}
	return &Adapter{config: cfg}, nil
}

// Publish sends the event as JSON and waits for the server to accept it.
func (a *Adapter) Publish(ctx context.Context, event *adapter.RunCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("nats: marshal event: %w", err)
	}

	err = adapter.Retry(ctx, a.config.Retries, a.config.BaseBackoff, func(ctx context.Context) error {
		conn, err := a.connect()
		if err != nil {
			return err
		}

		msg := natsgo.NewMsg(a.config.Subject)
		msg.Data = body
		msg.Header.Set(HeaderEvent, event.EventType)
		if err := conn.PublishMsg(msg); err != nil {
			if errors.Is(err, natsgo.ErrConnectionClosed) {
				return adapter.Permanent(err)
			}
			return err
		}

		flushCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
		return conn.FlushWithContext(flushCtx)
	})
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	return nil
}

func (a *Adapter) connect() (*natsgo.Conn, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, adapter.Permanent(natsgo.ErrConnectionClosed)
	}
	if a.conn != nil {
		return a.conn, nil
	}

	conn, err := natsgo.Connect(a.config.URL,
		natsgo.Name("autotiny"),
		natsgo.Timeout(a.config.Timeout),
		natsgo.MaxReconnects(0),
	)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", a.config.URL, err)
	}
	a.conn = conn
	return conn, nil
}

// Close drains the connection if one was opened.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.closed = true
	if a.conn == nil {
		return nil
	}
	err := a.conn.Drain()
	a.conn = nil
	return err
}

var _ adapter.Adapter = (*Adapter)(nil)
