// Package telemetry forwards internal events (internal/events) to Kafka
// as an additive integration feed. Adapted from the teacher's
// internal/message KafkaProducer: same sarama.AsyncProducer setup and
// success/error goroutines, retargeted at this system's event shapes.
package telemetry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/charging-platform/ocpp-central-system/internal/events"
	"github.com/charging-platform/ocpp-central-system/internal/logger"
	"github.com/charging-platform/ocpp-central-system/internal/metrics"
)

// wireEvent is the JSON shape published to the telemetry topic.
type wireEvent struct {
	EventID   string      `json:"eventId"`
	EventType string      `json:"eventType"`
	ChargerID int         `json:"chargerId"`
	Timestamp int64        `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Producer is an events.Bus that publishes asynchronously to Kafka.
type Producer struct {
	producer sarama.AsyncProducer
	topic    string
	log      *logger.Logger
}

// NewProducer builds a Producer. If brokers is empty or enabled is false,
// the caller should use events.NoopBus{} instead (spec.md's core never
// depends on Kafka availability).
func NewProducer(brokers []string, topic string, log *logger.Logger) (*Producer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Flush.Frequency = 500 * time.Millisecond
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create kafka producer: %w", err)
	}

	p := &Producer{producer: producer, topic: topic, log: log}
	go p.handleSuccesses()
	go p.handleErrors()
	return p, nil
}

// Publish implements events.Bus. It never blocks the caller beyond the
// producer's input channel send; publish failures are logged, never
// propagated, because telemetry is additive observability (SPEC_FULL.md
// §3 DOMAIN STACK).
func (p *Producer) Publish(e events.Event) {
	wire := wireEvent{
		EventID:   e.ID,
		EventType: string(e.Type),
		ChargerID: e.ChargerID,
		Timestamp: e.Timestamp.UnixMilli(),
		Payload:   e.Payload,
	}
	data, err := json.Marshal(wire)
	if err != nil {
		p.log.ErrorWithErr(err, "telemetry: marshal event failed")
		return
	}

	msg := &sarama.ProducerMessage{
		Topic:    p.topic,
		Key:      sarama.StringEncoder(fmt.Sprintf("charger-%d", e.ChargerID)),
		Value:    sarama.ByteEncoder(data),
		Metadata: e,
	}
	p.producer.Input() <- msg
}

// Close shuts down the producer, flushing any buffered messages.
func (p *Producer) Close() error {
	return p.producer.Close()
}

func (p *Producer) handleSuccesses() {
	for msg := range p.producer.Successes() {
		if e, ok := msg.Metadata.(events.Event); ok {
			metrics.TelemetryPublished.WithLabelValues(string(e.Type)).Inc()
		}
	}
}

func (p *Producer) handleErrors() {
	for err := range p.producer.Errors() {
		p.log.ErrorWithErr(err.Err, "telemetry: kafka publish failed")
	}
}
