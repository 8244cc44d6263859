package events

import (
	"encoding/json"

	"github.com/Astemirdum/odl-service/internal/model"
	"github.com/Astemirdum/odl-service/pkg/kafka"

	"github.com/IBM/sarama"
)

// Publisher fans circulation transitions out to kafka. Publishing is
// best-effort from the engine's point of view: a broker failure never fails
// the operation that produced the event.
type Publisher interface {
	Publish(event model.CirculationEvent) error
}

func NewPublisher(producer sarama.SyncProducer) Publisher {
	return &publisherImpl{producer: producer}
}

type publisherImpl struct {
	producer sarama.SyncProducer
}

func (p *publisherImpl) Publish(event model.CirculationEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: kafka.CirculationTopic,
		Key:   sarama.StringEncoder(event.PoolUid),
		Value: sarama.StringEncoder(data),
	}
	_, _, err = p.producer.SendMessage(msg)
	return err
}

// NewNopPublisher is used when kafka is not configured (and in tests).
func NewNopPublisher() Publisher {
	return nopPublisher{}
}

type nopPublisher struct{}

func (nopPublisher) Publish(model.CirculationEvent) error { return nil }
