// Package natshook publishes committed licensing events to NATS JetStream
// so indexers and other services can follow ledgers without polling.
//
// Each event is published to "<prefix>.<ledger id>.<event type>" with the
// event ID as the JetStream message ID, so redeliveries are deduplicated
// by the server.
package natshook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/xraph/licensing/event"
	"github.com/xraph/licensing/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin     = (*Extension)(nil)
	_ plugin.OnEvent    = (*Extension)(nil)
	_ plugin.OnShutdown = (*Extension)(nil)
)

// Publisher is the part of jetstream.JetStream the extension uses.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Extension publishes every committed event to JetStream.
type Extension struct {
	js     Publisher
	nc     *nats.Conn
	cfg    Config
	logger *slog.Logger
}

// New creates an Extension publishing through js.
func New(js Publisher, opts ...Option) *Extension {
	e := &Extension{
		js:     js,
		cfg:    DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Connect dials NATS, opens a JetStream context and, when cfg.StreamName
// is set, makes sure the stream exists.
func Connect(ctx context.Context, cfg Config, opts ...Option) (*Extension, error) {
	cfg = cfg.withDefaults()
	e := New(nil, append([]Option{WithConfig(cfg)}, opts...)...)

	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				e.logger.Warn("natshook: disconnected from NATS", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			e.logger.Info("natshook: reconnected to NATS", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			e.logger.Info("natshook: NATS connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("natshook: connect %s: %w", cfg.URL, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("natshook: create JetStream context: %w", err)
	}

	if cfg.StreamName != "" {
		_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     cfg.StreamName,
			Subjects: []string{cfg.SubjectPrefix + ".>"},
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("natshook: ensure stream %s: %w", cfg.StreamName, err)
		}
	}

	e.js = js
	e.nc = nc
	return e, nil
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "nats-publisher" }

// Subject returns the subject evt is published to.
func (e *Extension) Subject(evt *event.Event) string {
	return fmt.Sprintf("%s.%s.%s", e.cfg.SubjectPrefix, evt.LedgerID, evt.Type)
}

// OnEvent implements plugin.OnEvent. Publishing is retried with
// exponential backoff until the hook context ends or the retry budget
// is spent.
func (e *Extension) OnEvent(ctx context.Context, evt *event.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("natshook: marshal event %s: %w", evt.ID, err)
	}
	subject := e.Subject(evt)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.cfg.InitialInterval
	b.MaxInterval = e.cfg.MaxInterval
	b.MaxElapsedTime = e.cfg.MaxElapsedTime

	attempt := 0
	operation := func() error {
		attempt++
		_, err := e.js.Publish(ctx, subject, data, jetstream.WithMsgID(evt.ID.String()))
		if err != nil {
			e.logger.Debug("natshook: publish attempt failed",
				"subject", subject,
				"attempt", attempt,
				"error", err,
			)
		}
		return err
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("natshook: publish %s after %d attempts: %w", subject, attempt, err)
	}
	return nil
}

// OnShutdown implements plugin.OnShutdown. It drains the connection opened
// by Connect; an Extension built with New owns no connection.
func (e *Extension) OnShutdown(_ context.Context) error {
	if e.nc == nil {
		return nil
	}
	if err := e.nc.Drain(); err != nil {
		return fmt.Errorf("natshook: drain: %w", err)
	}
	return nil
}
