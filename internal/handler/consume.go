package handler

import (
	"context"
	"encoding/json"

	"github.com/Astemirdum/odl-service/internal/model"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

type recomputeFunc func(ctx context.Context, poolUid string) (model.Counters, error)

// Consumer reacts to license-import notifications: the catalog importer
// changed a pool's license set, so its counters must be re-derived.
type Consumer struct {
	recomputeHandler recomputeFunc
	log              *zap.Logger
	ready            chan bool
}

func NewConsumer(recompute recomputeFunc, log *zap.Logger) *Consumer {
	return &Consumer{
		recomputeHandler: recompute,
		log:              log.Named("consumer"),
		ready:            make(chan bool),
	}
}

func (consumer *Consumer) Setup(sarama.ConsumerGroupSession) error {
	// Mark the consumer as ready
	close(consumer.ready)
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited.
func (consumer *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (consumer *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				consumer.log.Warn("message channel was closed")
				return nil
			}
			var req model.ImportNotification
			if err := json.Unmarshal(message.Value, &req); err != nil {
				consumer.log.Error("unmarshal import notification", zap.Error(err))
				session.MarkMessage(message, "")
				continue
			}

			if _, err := consumer.recomputeHandler(context.Background(), req.PoolUid); err != nil {
				consumer.log.Error("recompute pool", zap.String("pool_uid", req.PoolUid), zap.Error(err))
				continue
			}

			consumer.log.Debug("Message claimed:", zap.String("value", string(message.Value)), zap.Time("timestamp", message.Timestamp), zap.String("topic", message.Topic))
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
