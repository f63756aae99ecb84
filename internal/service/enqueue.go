package service

import (
	"encoding/json"
	"time"

	"github.com/IBM/sarama"

	"github.com/openshelf/lending-service/internal/model"
	"github.com/openshelf/lending-service/pkg/breaker"
	"github.com/openshelf/lending-service/pkg/kafka"
)

type Enqueuer interface {
	Enqueue(event model.LoanEvent) error
}

type enqueuerImpl struct {
	producer sarama.SyncProducer
	cb       *breaker.Breaker
}

// NewEnqueuer publishes loan events through a circuit breaker so a
// broker outage degrades to fast failures instead of blocked requests.
func NewEnqueuer(producer sarama.SyncProducer) Enqueuer {
	return &enqueuerImpl{
		producer: producer,
		cb:       breaker.New(20, 30*time.Second, 0.5, 3),
	}
}

func (q *enqueuerImpl) Enqueue(event model.LoanEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return q.cb.Call(func() error {
		msg := &sarama.ProducerMessage{
			Topic: kafka.LoanEventsTopic,
			Key:   sarama.StringEncoder(event.LoanUid),
			Value: sarama.ByteEncoder(data),
		}
		_, _, err := q.producer.SendMessage(msg)
		return err
	})
}
