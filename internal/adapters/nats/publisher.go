package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/greenside/internal/core/domain"
)

const (
	// TapStream holds every translated map tap.
	TapStream = "MAP_TAPS"
	// TapSubjectPrefix is followed by the session id.
	TapSubjectPrefix = "map.tap."
)

// TapSubject is the subject a session's taps are published on.
func TapSubject(sessionID string) string {
	return TapSubjectPrefix + sessionID
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream(nats.PublishAsyncMaxPending(256))
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if err := ensureTapStream(js); err != nil {
		return nil, err
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishTap queues the tap without waiting for the stream ack.
func (p *Publisher) PublishTap(ctx context.Context, tap *domain.TapEvent) error {
	data, err := json.Marshal(tap)
	if err != nil {
		return err
	}
	_, err = p.js.PublishAsync(TapSubject(tap.SessionID), data)
	return err
}

// Close waits for outstanding acks, then drains the connection.
func (p *Publisher) Close() {
	select {
	case <-p.js.PublishAsyncComplete():
	case <-time.After(5 * time.Second):
	}
	_ = p.conn.Drain()
}

// TapStreamConfig keeps a day of taps.
func TapStreamConfig() nats.StreamConfig {
	return nats.StreamConfig{
		Name:      TapStream,
		Subjects:  []string{TapSubjectPrefix + ">"},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
}

func ensureTapStream(js nats.JetStreamContext) error {
	cfg := TapStreamConfig()
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}
	return nil
}

// RawConn creates a plain NATS connection (e.g. for the WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
