// Package events is the internal state-change event bus: action handlers
// publish one event per mutation, which internal/telemetry forwards to
// Kafka for downstream integration. This is additive observability, not
// part of the OCPP control path (spec.md's core never blocks on it).
package events

import (
	"time"

	"github.com/google/uuid"
)

// Type names the kind of internal event, independent of OCPP wire
// vocabulary (adapted from the teacher's domain/events type set, trimmed
// to what this system's handlers actually produce).
type Type string

const (
	TypeChargerBooted           Type = "charger.booted"
	TypeConnectorStatusChanged  Type = "connector.status_changed"
	TypeTransactionStarted      Type = "transaction.started"
	TypeTransactionStopped      Type = "transaction.stopped"
	TypeMeterValuesReceived     Type = "transaction.meter_values"
	TypeAuthorizationDecided    Type = "authorization.decided"
)

// Event is one internal state-change notification.
type Event struct {
	ID        string
	Type      Type
	ChargerID int
	Timestamp time.Time
	Payload   interface{}
}

// New stamps a fresh Event with a generated id and the current time.
func New(t Type, chargerID int, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		ChargerID: chargerID,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

// Bus publishes events to whatever downstream sink is configured.
type Bus interface {
	Publish(e Event)
}

// NoopBus discards every event; used when Kafka telemetry is disabled.
type NoopBus struct{}

func (NoopBus) Publish(Event) {}
