package events

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"
)

// Bus backends.
const (
	BackendMemory = "memory"
	BackendKafka  = "kafka"
)

// BusConfig selects and configures the message bus.
type BusConfig struct {
	Backend       string
	KafkaBrokers  []string
	ConsumerGroup string
	BufferSize    int64
}

// Bus bundles a publisher with the subscriber reading the same topics.
type Bus struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Close releases both sides of the bus.
func (b *Bus) Close() error {
	if b == nil {
		return nil
	}
	var firstErr error
	if b.Publisher != nil {
		firstErr = b.Publisher.Close()
	}
	// gochannel uses one value for both sides
	if b.Subscriber != nil && interface{}(b.Subscriber) != interface{}(b.Publisher) {
		if err := b.Subscriber.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewBus builds the configured bus. Memory is the default.
func NewBus(cfg BusConfig, logger *zap.Logger) (*Bus, error) {
	wmLogger := NewZapLogger(logger)

	switch cfg.Backend {
	case BackendKafka:
		if len(cfg.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("kafka bus requires at least one broker")
		}
		publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
			Brokers:   cfg.KafkaBrokers,
			Marshaler: kafka.DefaultMarshaler{},
		}, wmLogger)
		if err != nil {
			return nil, fmt.Errorf("create kafka publisher: %w", err)
		}
		subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
			Brokers:               cfg.KafkaBrokers,
			Unmarshaler:           kafka.DefaultMarshaler{},
			ConsumerGroup:         cfg.ConsumerGroup,
			OverwriteSaramaConfig: kafka.DefaultSaramaSubscriberConfig(),
		}, wmLogger)
		if err != nil {
			_ = publisher.Close()
			return nil, fmt.Errorf("create kafka subscriber: %w", err)
		}
		return &Bus{Publisher: publisher, Subscriber: subscriber}, nil
	case BackendMemory, "":
		buffer := cfg.BufferSize
		if buffer <= 0 {
			buffer = 64
		}
		channel := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: buffer}, wmLogger)
		return &Bus{Publisher: channel, Subscriber: channel}, nil
	default:
		return nil, fmt.Errorf("unknown bus backend %q", cfg.Backend)
	}
}

// NewMessage wraps a payload with a fresh watermill UUID when id is empty.
func NewMessage(id string, payload []byte, metadata map[string]string) *message.Message {
	if id == "" {
		id = watermill.NewUUID()
	}
	msg := message.NewMessage(id, payload)
	for k, v := range metadata {
		msg.Metadata.Set(k, v)
	}
	return msg
}
