package kafka

import (
	"context"

	"github.com/IBM/sarama"
)

type Config struct {
	Addrs []string `envconfig:"KAFKA_ADDRS" default:"localhost:9092"`
}

const (
	// CirculationTopic carries loan/hold lifecycle events published by the
	// reservation engine.
	CirculationTopic = "odl.circulation"
	// LicenseImportTopic is produced by the catalog importer whenever a
	// pool's license set changes; consuming it triggers a counter recompute.
	LicenseImportTopic = "odl.license-import"

	ImportConsumerGroup = "odl-license-import"
)

func NewProducer(cfg Config) (sarama.SyncProducer, error) {
	defaultCfg := sarama.NewConfig()

	defaultCfg.Producer.RequiredAcks = sarama.WaitForAll
	defaultCfg.Producer.Return.Successes = true

	return sarama.NewSyncProducer(cfg.Addrs, defaultCfg)
}

func NewConsumer(cfg Config, group string) (sarama.ConsumerGroup, error) {
	defaultCfg := sarama.NewConfig()
	defaultCfg.Consumer.Offsets.Initial = sarama.OffsetOldest

	return sarama.NewConsumerGroup(cfg.Addrs, group, defaultCfg)
}

// Consume runs the consumer-group session loop until the context is done.
// sarama requires Consume to be re-entered after every rebalance.
func Consume(ctx context.Context, consumer sarama.ConsumerGroup, handler sarama.ConsumerGroupHandler, topic string) error {
	for {
		if err := consumer.Consume(ctx, []string{topic}, handler); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
