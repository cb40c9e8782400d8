package clicks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/sundayezeilo/linkmetrics/internal/errx"
	"github.com/sundayezeilo/linkmetrics/internal/idgen"
	"github.com/sundayezeilo/linkmetrics/internal/links"
)

const (
	DefaultStream   = "CLICKS"
	DefaultSubject  = "clicks.recorded"
	DefaultConsumer = "click-recorder"

	streamMaxAge     = 7 * 24 * time.Hour
	dedupWindow      = 2 * time.Minute
	consumerAckWait  = 30 * time.Second
	consumerMaxRetry = 10
)

// StreamManager is the part of nats.JetStreamContext that manages streams.
type StreamManager interface {
	StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	UpdateStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
}

// EnsureStream creates the click stream, or updates it when it exists.
func EnsureStream(js StreamManager, stream, subject string) error {
	cfg := &nats.StreamConfig{
		Name:       stream,
		Subjects:   []string{subject},
		Storage:    nats.FileStorage,
		MaxAge:     streamMaxAge,
		Duplicates: dedupWindow,
		Replicas:   1,
	}

	_, err := js.StreamInfo(stream)
	switch {
	case errors.Is(err, nats.ErrStreamNotFound):
		if _, err := js.AddStream(cfg); err != nil {
			return fmt.Errorf("failed to create stream %s: %w", stream, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to look up stream %s: %w", stream, err)
	}

	if _, err := js.UpdateStream(cfg); err != nil {
		return fmt.Errorf("failed to update stream %s: %w", stream, err)
	}
	return nil
}

// Publisher is the part of nats.JetStreamContext the dispatcher uses.
type Publisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// NATSDispatcher publishes clicks to JetStream for a Consumer to record.
// The click id doubles as the message id, so republishing within the
// stream's duplicate window is absorbed by the server.
type NATSDispatcher struct {
	js      Publisher
	subject string
	timeout time.Duration
	ids     idgen.Generator
	now     func() time.Time
}

// NATSDispatcherConfig tunes a NATSDispatcher.
type NATSDispatcherConfig struct {
	Subject        string
	PublishTimeout time.Duration
	IDGenerator    idgen.Generator
	Now            func() time.Time
}

// NewNATSDispatcher creates a NATSDispatcher.
func NewNATSDispatcher(js Publisher, cfg NATSDispatcherConfig) *NATSDispatcher {
	subject := cfg.Subject
	if subject == "" {
		subject = DefaultSubject
	}
	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = DefaultRecordTimeout
	}
	ids := cfg.IDGenerator
	if ids == nil {
		ids = idgen.NewV7()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &NATSDispatcher{js: js, subject: subject, timeout: timeout, ids: ids, now: now}
}

// Dispatch waits for the JetStream ack. It detaches from ctx cancellation
// so a client hanging up after the redirect does not lose the click.
func (d *NATSDispatcher) Dispatch(ctx context.Context, in ClickInput) error {
	in, err := stamp(in, d.ids, d.now)
	if err != nil {
		return err
	}
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode click: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	if _, err := d.js.Publish(d.subject, data, nats.Context(pubCtx), nats.MsgId(in.ID.String())); err != nil {
		return fmt.Errorf("failed to publish click: %w", err)
	}
	return nil
}

// Close is a no-op; the connection is owned by the caller.
func (d *NATSDispatcher) Close(context.Context) error { return nil }

// Subscriber is the part of nats.JetStreamContext the consumer uses.
type Subscriber interface {
	Subscribe(subj string, cb nats.MsgHandler, opts ...nats.SubOpt) (*nats.Subscription, error)
}

// acker is the part of *nats.Msg the consumer acknowledges through.
type acker interface {
	Ack(opts ...nats.AckOpt) error
	Nak(opts ...nats.AckOpt) error
	Term(opts ...nats.AckOpt) error
}

// Consumer records clicks from the JetStream durable consumer. Delivery is
// at least once; the recorder's idempotent insert absorbs redeliveries.
type Consumer struct {
	js       Subscriber
	recorder ClickRecorder
	subject  string
	durable  string
	timeout  time.Duration
	logger   *slog.Logger

	sub *nats.Subscription
}

// ConsumerConfig tunes a Consumer.
type ConsumerConfig struct {
	Subject       string
	Durable       string
	RecordTimeout time.Duration
	Logger        *slog.Logger
}

// NewConsumer creates a Consumer. Call Start to subscribe.
func NewConsumer(js Subscriber, recorder ClickRecorder, cfg ConsumerConfig) *Consumer {
	subject := cfg.Subject
	if subject == "" {
		subject = DefaultSubject
	}
	durable := cfg.Durable
	if durable == "" {
		durable = DefaultConsumer
	}
	timeout := cfg.RecordTimeout
	if timeout <= 0 {
		timeout = DefaultRecordTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		js:       js,
		recorder: recorder,
		subject:  subject,
		durable:  durable,
		timeout:  timeout,
		logger:   logger,
	}
}

// Start subscribes with manual acks.
func (c *Consumer) Start() error {
	sub, err := c.js.Subscribe(c.subject, func(msg *nats.Msg) {
		c.handle(msg.Data, msg)
	},
		nats.Durable(c.durable),
		nats.ManualAck(),
		nats.AckWait(consumerAckWait),
		nats.MaxDeliver(consumerMaxRetry),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", c.subject, err)
	}
	c.sub = sub
	c.logger.Info("click consumer started", "subject", c.subject, "durable", c.durable)
	return nil
}

// Stop drains the subscription so in-flight messages finish.
func (c *Consumer) Stop() error {
	if c.sub == nil {
		return nil
	}
	return c.sub.Drain()
}

// handle acks recorded and permanently unrecordable clicks, and naks the
// rest for redelivery.
func (c *Consumer) handle(data []byte, msg acker) {
	var in ClickInput
	if err := json.Unmarshal(data, &in); err != nil {
		c.logger.Error("discarding undecodable click message", "error", err.Error())
		c.settle(msg.Term, "term")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	_, err := c.recorder.Record(ctx, in)
	switch {
	case err == nil:
		c.settle(msg.Ack, "ack")
	case errors.Is(err, links.ErrLinkUnavailable), errx.Is(err, errx.Invalid):
		c.logger.Info("dropping click",
			"click_id", in.ID.String(),
			"link_id", in.LinkID.String(),
			"error", err.Error(),
		)
		c.settle(msg.Ack, "ack")
	default:
		c.logger.Warn("click recording failed, requesting redelivery",
			"click_id", in.ID.String(),
			"error", err.Error(),
		)
		c.settle(msg.Nak, "nak")
	}
}

func (c *Consumer) settle(fn func(...nats.AckOpt) error, action string) {
	if err := fn(); err != nil {
		c.logger.Warn("failed to settle click message", "action", action, "error", err.Error())
	}
}
