package pubsub

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	amqp "github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/webitel/admin-notify-service/config"
)

const (
	DriverMemory = "memory"
	DriverAMQP   = "amqp"
)

// Factory builds broker endpoints for the configured driver.
type Factory interface {
	Publisher() (message.Publisher, error)
	// Subscriber returns a subscriber whose queues are named "<topic>_<queue>".
	Subscriber(queue string) (message.Subscriber, error)
	Close() error
}

func NewWatermillLogger(logger *slog.Logger) watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logger.With(slog.String("component", "watermill")))
}

// NewFactory selects the broker driver from broker.driver.
func NewFactory(cfg *config.Config, logger watermill.LoggerAdapter) (Factory, error) {
	switch cfg.Broker.Driver {
	case DriverMemory:
		return newMemoryFactory(logger), nil
	case DriverAMQP:
		return newAMQPFactory(cfg.Broker.URL, logger), nil
	default:
		return nil, fmt.Errorf("pubsub: unsupported driver %q", cfg.Broker.Driver)
	}
}

// [IN_PROCESS] one GoChannel serves as both ends; useful for single-node runs and tests.
type memoryFactory struct {
	ch *gochannel.GoChannel
}

func newMemoryFactory(logger watermill.LoggerAdapter) *memoryFactory {
	return &memoryFactory{
		ch: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger),
	}
}

func (f *memoryFactory) Publisher() (message.Publisher, error)         { return f.ch, nil }
func (f *memoryFactory) Subscriber(string) (message.Subscriber, error) { return f.ch, nil }
func (f *memoryFactory) Close() error                                  { return f.ch.Close() }

// [BROKER] every topic is a fanout exchange; each node binds its own
// auto-deleted queue so all nodes see every event.
type amqpFactory struct {
	url    string
	logger watermill.LoggerAdapter

	mu      sync.Mutex
	closers []interface{ Close() error }
}

func newAMQPFactory(url string, logger watermill.LoggerAdapter) *amqpFactory {
	return &amqpFactory{url: url, logger: logger}
}

func (f *amqpFactory) Publisher() (message.Publisher, error) {
	cfg := amqp.NewNonDurablePubSubConfig(f.url, amqp.GenerateQueueNameTopicName)
	pub, err := amqp.NewPublisher(cfg, f.logger)
	if err != nil {
		return nil, fmt.Errorf("amqp publisher: %w", err)
	}
	f.track(pub)
	return pub, nil
}

func (f *amqpFactory) Subscriber(queue string) (message.Subscriber, error) {
	cfg := amqp.NewNonDurablePubSubConfig(f.url, amqp.GenerateQueueNameTopicNameWithSuffix(queue))
	sub, err := amqp.NewSubscriber(cfg, f.logger)
	if err != nil {
		return nil, fmt.Errorf("amqp subscriber %s: %w", queue, err)
	}
	f.track(sub)
	return sub, nil
}

func (f *amqpFactory) track(c interface{ Close() error }) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closers = append(f.closers, c)
}

func (f *amqpFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	for _, c := range f.closers {
		errs = append(errs, c.Close())
	}
	f.closers = nil
	return errors.Join(errs...)
}
