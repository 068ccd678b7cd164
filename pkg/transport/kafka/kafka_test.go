package kafka

import (
	"context"
	"fmt"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/ajitpratap0/objectdag/pkg/config"
	"github.com/ajitpratap0/objectdag/pkg/errors"
	"github.com/ajitpratap0/objectdag/pkg/observability"
	"github.com/ajitpratap0/objectdag/pkg/testutil"
	"github.com/ajitpratap0/objectdag/pkg/transport/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func headerMap(msg *sarama.ProducerMessage) map[string]string {
	out := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		out[string(h.Key)] = string(h.Value)
	}
	return out
}

func TestSaveObject_ProducesKeyedMessage(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	rec := testutil.SampleRecord(t, "kafka")

	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		value, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		if msg.Topic != "objects" {
			return fmt.Errorf("unexpected topic %q", msg.Topic)
		}
		if string(key) != rec.ID {
			return fmt.Errorf("unexpected key %q", key)
		}
		if string(value) != string(rec.JSON) {
			return fmt.Errorf("unexpected value %q", value)
		}
		h := headerMap(msg)
		if h[HeaderContentType] != "application/json" || h[HeaderTotalChildrenCount] != "0" {
			return fmt.Errorf("unexpected headers %v", h)
		}
		return nil
	})

	tr := New("kafka", "objects", producer)
	require.NoError(t, tr.SaveObject(context.Background(), rec))
	require.NoError(t, tr.Close(context.Background()))
}

func TestSaveObject_PropagatesTraceContext(t *testing.T) {
	shutdown, err := observability.InitTracing(config.TracingConfig{Enabled: true, SamplingRate: 1},
		observability.WithExporter(tracetest.NewInMemoryExporter()), observability.WithSyncExport())
	require.NoError(t, err)
	defer func() { _ = shutdown(context.Background()) }()

	ctx, span := observability.Tracer().Start(context.Background(), "serialize")
	defer span.End()

	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if _, ok := headerMap(msg)["traceparent"]; !ok {
			return fmt.Errorf("traceparent header missing")
		}
		return nil
	})

	tr := New("kafka", "objects", producer)
	require.NoError(t, tr.SaveObject(ctx, testutil.SampleRecord(t, "traced")))
	require.NoError(t, tr.Close(context.Background()))
}

func TestSaveObject_ProducerError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	tr := New("kafka", "objects", producer)
	err := tr.SaveObject(context.Background(), testutil.SampleRecord(t, "lost"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))
	require.NoError(t, tr.Close(context.Background()))
}

func TestSaramaConfig(t *testing.T) {
	cfg := config.NewTransportConfig("k", TypeName)
	cfg.Compression.Algorithm = "zstd"
	cfg.Options["acks"] = "1"
	cfg.Options["retries"] = "7"

	sc, err := SaramaConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, sarama.WaitForLocal, sc.Producer.RequiredAcks)
	assert.Equal(t, sarama.CompressionZSTD, sc.Producer.Compression)
	assert.Equal(t, 7, sc.Producer.Retry.Max)
	assert.True(t, sc.Producer.Return.Successes)

	cfg.Options["acks"] = "most"
	_, err = SaramaConfig(cfg)
	assert.Error(t, err)
}

func TestOpen_RequiresBrokersAndTopic(t *testing.T) {
	cfg := config.NewTransportConfig("k", TypeName)
	_, err := Open(cfg)
	assert.Error(t, err)

	cfg.Options["brokers"] = "localhost:9092"
	_, err = Open(cfg)
	assert.Error(t, err)
}

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, splitBrokers(" a:9092, ,b:9092 "))
}

func TestRegistered(t *testing.T) {
	assert.True(t, registry.Has(TypeName))
}
