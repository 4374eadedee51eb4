package telemetry

import (
	"context"
	"errors"
)

// ErrNotConnected is returned when publishing without a broker connection
var ErrNotConnected = errors.New("telemetry publisher not connected")

// Publisher forwards terminal events to downstream consumers.
type Publisher interface {
	// Publish JSON-encodes payload and sends it to topic
	Publish(ctx context.Context, topic string, payload interface{}) error
	IsConnected() bool
	Close()
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }

func (NopPublisher) IsConnected() bool { return false }

func (NopPublisher) Close() {}
