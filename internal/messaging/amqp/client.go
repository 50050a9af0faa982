package amqp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sethvargo/go-retry"
)

const maxBackoff = 30 * time.Second

// ErrDeliveryClosed is returned by ConsumeBalance when the broker closes the
// delivery channel.
var ErrDeliveryClosed = errors.New("amqp: delivery channel closed")

var _ Conn = (*Client)(nil)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
	logger       *slog.Logger
}

func NewClient(url, exchangeName, queueName string, logger *slog.Logger) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

// setup declares a durable direct exchange and binds the queue to it with
// the queue name as routing key.
func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	err = c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

func (c *Client) PublishBalance(ctx context.Context, msg *BalanceMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    msg.EventID,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	c.logger.DebugContext(ctx, "published balance message",
		"category_id", msg.CategoryID,
		"reason", msg.Reason,
		"exchange", c.exchangeName)
	return nil
}

// ConsumeBalance delivers messages to handler until ctx is done or the
// channel closes. Undecodable messages are dropped; handler failures are
// requeued.
func (c *Client) ConsumeBalance(ctx context.Context, handler func(context.Context, *BalanceMessage) error) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "started consuming balance messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return ErrDeliveryClosed
			}

			msg, err := BalanceMessageFromJSON(delivery.Body)
			if err != nil {
				c.logger.ErrorContext(ctx, "failed to unmarshal message", "error", err)
				_ = delivery.Nack(false, false)
				continue
			}

			if err := handler(ctx, msg); err != nil {
				c.logger.ErrorContext(ctx, "failed to handle message",
					"error", err,
					"category_id", msg.CategoryID)
				_ = delivery.Nack(false, true)
				continue
			}

			_ = delivery.Ack(false)
		}
	}
}

// IsClosed reports whether the connection or the channel has gone away.
func (c *Client) IsClosed() bool {
	return c.conn == nil || c.conn.IsClosed() || c.channel == nil || c.channel.IsClosed()
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// RunConsumer keeps a consumer alive across broker restarts. Connection
// errors trigger a reconnect with capped exponential backoff that restarts
// after every successful dial; any other error ends the loop.
func RunConsumer(ctx context.Context, dial func() (*Client, error), handler func(context.Context, *BalanceMessage) error, logger *slog.Logger) error {
	current := newBackoff()
	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		wait, stop := current.Next()
		logger.Warn("AMQP connection lost, reconnecting", "retry_in", wait)
		return wait, stop
	})

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		client, err := dial()
		if err == nil {
			current = newBackoff()
			err = client.ConsumeBalance(ctx, handler)
			client.Close()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if isConnectionError(err) {
			logger.Warn("AMQP consumer stopped", "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
}

func newBackoff() retry.Backoff {
	return retry.WithCappedDuration(maxBackoff, retry.NewExponential(time.Second))
}

// isConnectionError reports whether err means the broker link went away, as
// opposed to a refusal such as bad credentials that a redial cannot fix.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDeliveryClosed) || errors.Is(err, amqp091.ErrClosed) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var amqpErr *amqp091.Error
	if errors.As(err, &amqpErr) {
		return amqpErr.Recover
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
