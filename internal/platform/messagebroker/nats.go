package messagebroker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Message is the broker-agnostic view of a received message.
type Message interface {
	Subject() string
	Data() []byte
}

// Subscription is a handle to an active subject subscription.
type Subscription interface {
	Unsubscribe() error
}

// NATSClient is the messaging interface the application consumes.
// Kept small so tests can substitute a mock.
type NATSClient interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Subscribe(ctx context.Context, subject, queueGroup string, handler func(msg Message)) (Subscription, error)
	Close()
}

type natsMessage struct{ msg *nats.Msg }

func (m natsMessage) Subject() string { return m.msg.Subject }
func (m natsMessage) Data() []byte    { return m.msg.Data }

type natsClient struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewNATSClient connects to NATS with reconnect handling.
// URL example: "nats://localhost:4222".
func NewNATSClient(natsURL, appName string, logger *slog.Logger) (NATSClient, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name(appName),
		nats.Timeout(5*time.Second),
		nats.PingInterval(20*time.Second),
		nats.MaxPingsOutstanding(3),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Error("NATS connection closed", "error", nc.LastError())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &natsClient{conn: nc, logger: logger}, nil
}

func (c *natsClient) Publish(ctx context.Context, subject string, data []byte) error {
	if err := c.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

func (c *natsClient) Subscribe(ctx context.Context, subject, queueGroup string, handler func(msg Message)) (Subscription, error) {
	natsHandler := func(msg *nats.Msg) { handler(natsMessage{msg: msg}) }

	var sub *nats.Subscription
	var err error
	if queueGroup != "" {
		sub, err = c.conn.QueueSubscribe(subject, queueGroup, natsHandler)
	} else {
		sub, err = c.conn.Subscribe(subject, natsHandler)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	return sub, nil
}

func (c *natsClient) Close() {
	if c.conn != nil && !c.conn.IsClosed() {
		// Drain flushes buffered published messages before closing.
		if err := c.conn.Drain(); err != nil {
			c.logger.Warn("NATS drain failed", "error", err)
		}
		c.conn.Close()
	}
}
