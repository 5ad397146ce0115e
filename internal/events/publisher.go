// Package events provides event publishing functionality.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"voice-interrupt-filter/internal/observability/metrics"
	"voice-interrupt-filter/internal/schema"
)

// TranscriptPublisher is the publishing surface sessions depend on.
type TranscriptPublisher interface {
	PublishPartial(ctx context.Context, key string, event any) error
	PublishFinal(ctx context.Context, key string, event any) error
	PublishFiltered(ctx context.Context, key string, event any) error
}

// Publisher publishes transcript events to separate Kafka topics: admitted
// partials, admitted finals, and suppressed transcripts.
type Publisher struct {
	writerPartial  *kafka.Writer
	writerFinal    *kafka.Writer
	writerFiltered *kafka.Writer
	validator      *schema.Validator
	principal      string
	topicPartial   string
	topicFinal     string
	topicFiltered  string
	enabled        bool
	metrics        *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers       []string
	TopicPartial  string
	TopicFinal    string
	TopicFiltered string
	Principal     string
	Enabled       bool
}

// New creates a new Kafka event publisher. When disabled (or given no
// brokers) it degrades to log-only mode and every publish succeeds.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			validator: schema.New(),
			enabled:   false,
			metrics:   m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			validator:     schema.New(),
			principal:     cfg.Principal,
			topicPartial:  cfg.TopicPartial,
			topicFinal:    cfg.TopicFinal,
			topicFiltered: cfg.TopicFiltered,
			enabled:       false,
			metrics:       m,
		}
	}

	// Custom dialer with longer timeouts for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			Transport:    transport,
		}
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicPartial", cfg.TopicPartial).
		Str("topicFinal", cfg.TopicFinal).
		Str("topicFiltered", cfg.TopicFiltered).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerPartial:  newWriter(cfg.TopicPartial),
		writerFinal:    newWriter(cfg.TopicFinal),
		writerFiltered: newWriter(cfg.TopicFiltered),
		validator:      schema.New(),
		principal:      cfg.Principal,
		topicPartial:   cfg.TopicPartial,
		topicFinal:     cfg.TopicFinal,
		topicFiltered:  cfg.TopicFiltered,
		enabled:        true,
		metrics:        m,
	}
}

// PublishPartial publishes an admitted partial transcript event.
func (p *Publisher) PublishPartial(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerPartial, p.topicPartial, "partial", key, event)
}

// PublishFinal publishes an admitted final transcript event.
func (p *Publisher) PublishFinal(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerFinal, p.topicFinal, "final", key, event)
}

// PublishFiltered publishes a suppressed transcript event to the audit topic.
func (p *Publisher) PublishFiltered(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerFiltered, p.topicFiltered, "filtered", key, event)
}

// publish is the internal method that writes to a specific Kafka writer.
func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	if err := p.validator.Validate(event); err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Event failed validation")
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	// If Kafka is disabled, just log
	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(topic)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes all Kafka writers.
func (p *Publisher) Close() error {
	var err error
	for _, w := range []*kafka.Writer{p.writerPartial, p.writerFinal, p.writerFiltered} {
		if w == nil {
			continue
		}
		if e := w.Close(); e != nil {
			log.Error().Err(e).Str("topic", w.Topic).Msg("Error closing Kafka writer")
			err = e
		}
	}
	return err
}
