package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/frahmantamala/expense-tracker/internal/core/events"
)

type BalancePublisher interface {
	PublishBalance(ctx context.Context, msg *BalanceMessage) error
}

// NewForwarder returns an event bus handler that relays balance changes to
// the broker.
func NewForwarder(pub BalancePublisher) events.Handler {
	return func(ctx context.Context, event events.Event) error {
		e, ok := event.(*events.BalanceChangedEvent)
		if !ok {
			return fmt.Errorf("unexpected event %T", event)
		}
		return pub.PublishBalance(ctx, NewBalanceMessage(e))
	}
}

// Conn is a broker link that can publish balance messages.
type Conn interface {
	BalancePublisher
	IsClosed() bool
	Close() error
}

// ReconnectingPublisher holds one broker link and redials it when a publish
// finds the link closed, so a broker restart costs at most the messages sent
// while it was down.
type ReconnectingPublisher struct {
	dial   func() (Conn, error)
	logger *slog.Logger

	mu   sync.Mutex
	conn Conn
}

func NewReconnectingPublisher(dial func() (Conn, error), logger *slog.Logger) *ReconnectingPublisher {
	return &ReconnectingPublisher{dial: dial, logger: logger}
}

// Connect dials eagerly so a misconfigured broker fails at startup.
func (p *ReconnectingPublisher) Connect() error {
	_, err := p.current()
	return err
}

func (p *ReconnectingPublisher) PublishBalance(ctx context.Context, msg *BalanceMessage) error {
	conn, err := p.current()
	if err != nil {
		return err
	}
	err = conn.PublishBalance(ctx, msg)
	if err == nil || !isConnectionError(err) {
		return err
	}

	p.logger.WarnContext(ctx, "AMQP publish failed, redialing", "error", err)
	p.discard(conn)
	conn, err = p.current()
	if err != nil {
		return err
	}
	return conn.PublishBalance(ctx, msg)
}

func (p *ReconnectingPublisher) current() (Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn, nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
	conn, err := p.dial()
	if err != nil {
		return nil, fmt.Errorf("redial broker: %w", err)
	}
	p.conn = conn
	return conn, nil
}

func (p *ReconnectingPublisher) discard(conn Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == conn {
		_ = p.conn.Close()
		p.conn = nil
	}
}

func (p *ReconnectingPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}
