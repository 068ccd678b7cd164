// Package kafka publishes every finished record to a Kafka topic, keyed by
// record id. The transport is write-only: it feeds downstream consumers
// and cannot serve loads.
//
// Configuration options:
//
//	brokers  comma-separated broker addresses (required)
//	topic    destination topic (required)
//	acks     all, 1 or 0 (default all)
//	retries  producer retries (default 3)
//
// The transport's compression setting selects Kafka batch compression.
package kafka

import (
	"context"
	"strconv"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ajitpratap0/objectdag/pkg/config"
	"github.com/ajitpratap0/objectdag/pkg/errors"
	"github.com/ajitpratap0/objectdag/pkg/logger"
	"github.com/ajitpratap0/objectdag/pkg/observability"
	"github.com/ajitpratap0/objectdag/pkg/transport/core"
	"github.com/ajitpratap0/objectdag/pkg/transport/registry"
	"go.uber.org/zap"
)

// TypeName is the registry name of this transport.
const TypeName = "kafka"

// Header names set on every message.
const (
	HeaderContentType        = "content-type"
	HeaderTotalChildrenCount = "total-children-count"
)

func init() {
	registry.Register(TypeName, func(_ context.Context, cfg *config.TransportConfig) (core.Transport, error) {
		return Open(cfg)
	})
}

// Transport produces records to Kafka.
type Transport struct {
	name     string
	topic    string
	producer sarama.SyncProducer
	logger   *zap.Logger
}

// Open creates a synchronous producer from cfg.
func Open(cfg *config.TransportConfig) (*Transport, error) {
	brokers, err := cfg.RequireOption("brokers")
	if err != nil {
		return nil, err
	}
	topic, err := cfg.RequireOption("topic")
	if err != nil {
		return nil, err
	}
	saramaConfig, err := SaramaConfig(cfg)
	if err != nil {
		return nil, err
	}

	producer, err := sarama.NewSyncProducer(splitBrokers(brokers), saramaConfig)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create Kafka producer").
			WithDetail("brokers", brokers)
	}
	return New(cfg.Name, topic, producer), nil
}

// New wraps an existing producer.
func New(name, topic string, producer sarama.SyncProducer) *Transport {
	return &Transport{
		name:     name,
		topic:    topic,
		producer: producer,
		logger:   logger.Get().With(zap.String("transport", name), zap.String("topic", topic)),
	}
}

// SaramaConfig builds the producer configuration for cfg.
func SaramaConfig(cfg *config.TransportConfig) (*sarama.Config, error) {
	sc := sarama.NewConfig()
	sc.ClientID = "objectdag-" + cfg.Name

	switch cfg.Option("acks", "all") {
	case "all", "-1":
		sc.Producer.RequiredAcks = sarama.WaitForAll
	case "1":
		sc.Producer.RequiredAcks = sarama.WaitForLocal
	case "0":
		sc.Producer.RequiredAcks = sarama.NoResponse
	default:
		return nil, errors.New(errors.ErrorTypeConfig, "invalid acks option").
			WithDetail("acks", cfg.Option("acks", ""))
	}

	retries, err := cfg.IntOption("retries", 3)
	if err != nil {
		return nil, err
	}
	sc.Producer.Retry.Max = retries
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true

	switch strings.ToLower(cfg.Compression.Algorithm) {
	case "gzip":
		sc.Producer.Compression = sarama.CompressionGZIP
	case "snappy":
		sc.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		sc.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		sc.Producer.Compression = sarama.CompressionZSTD
		sc.Version = sarama.V2_1_0_0
	default:
		sc.Producer.Compression = sarama.CompressionNone
	}
	if cfg.Timeouts.Connection > 0 {
		sc.Net.DialTimeout = cfg.Timeouts.Connection
	}
	if cfg.Timeouts.Write > 0 {
		sc.Net.WriteTimeout = cfg.Timeouts.Write
	}

	if err := sc.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid Kafka producer configuration")
	}
	return sc, nil
}

// Name implements core.Transport.
func (t *Transport) Name() string {
	return t.name
}

// SaveObject implements core.Transport. Trace context of ctx travels in
// the message headers.
func (t *Transport) SaveObject(ctx context.Context, rec *core.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	partition, offset, err := t.producer.SendMessage(t.message(ctx, rec))
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to produce record").
			WithDetail("id", rec.ID).
			WithDetail("topic", t.topic)
	}
	t.logger.Debug("record produced",
		zap.String("id", rec.ID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

func (t *Transport) message(ctx context.Context, rec *core.Record) *sarama.ProducerMessage {
	carrier := make(map[string]string)
	observability.InjectHeaders(ctx, carrier)

	headers := make([]sarama.RecordHeader, 0, 2+len(carrier))
	headers = append(headers,
		sarama.RecordHeader{Key: []byte(HeaderContentType), Value: []byte("application/json")},
		sarama.RecordHeader{Key: []byte(HeaderTotalChildrenCount), Value: []byte(strconv.Itoa(rec.TotalChildrenCount()))},
	)
	for k, v := range carrier {
		headers = append(headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}

	return &sarama.ProducerMessage{
		Topic:   t.topic,
		Key:     sarama.StringEncoder(rec.ID),
		Value:   sarama.ByteEncoder(rec.JSON),
		Headers: headers,
	}
}

// Close implements core.Closer.
func (t *Transport) Close(_ context.Context) error {
	return t.producer.Close()
}

func splitBrokers(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
