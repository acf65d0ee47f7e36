// Package nats implements the event stream port using NATS JetStream.
package nats

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/ScriptForge/internal/config"
	"github.com/Strob0t/ScriptForge/internal/resilience"
)

const streamName = "SCRIPTFORGE"

// Publisher implements eventstream.Publisher using NATS JetStream. Publishes
// run through a circuit breaker so a down broker degrades to dropped events
// instead of a stalled analysis pipeline.
type Publisher struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	breaker *resilience.Breaker
}

// Connect establishes a connection to NATS and ensures the JetStream stream
// exists. Breaker thresholds come from the nats config section.
func Connect(ctx context.Context, cfg config.NATS) (*Publisher, error) {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"scripts.>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", cfg.URL, "stream", streamName)
	return &Publisher{
		nc:      nc,
		js:      js,
		breaker: resilience.NewBreaker(cfg.BreakerFailures, cfg.BreakerCooldown),
	}, nil
}

// Publish sends a message to the given subject. When the breaker is open the
// message is dropped and ErrCircuitOpen returned.
func (p *Publisher) Publish(ctx context.Context, subject string, data []byte) error {
	err := p.breaker.Do(func() error {
		_, err := p.js.Publish(ctx, subject, data)
		return err
	})
	if err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// IsConnected reports whether the underlying connection is up.
func (p *Publisher) IsConnected() bool {
	return p.nc != nil && p.nc.IsConnected()
}

// Close shuts down the NATS connection.
func (p *Publisher) Close() error {
	p.nc.Close()
	return nil
}
