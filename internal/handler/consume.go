package handler

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/openshelf/lending-service/internal/model"
)

type applyLoanEvent func(ctx context.Context, event model.LoanEvent) error

// Consumer ingests loan events from kafka into the stats counters.
type Consumer struct {
	apply applyLoanEvent
	log   *zap.Logger
}

func NewConsumer(apply applyLoanEvent, log *zap.Logger) *Consumer {
	return &Consumer{
		apply: apply,
		log:   log.Named("consumer"),
	}
}

// Setup runs at the start of every session. The same handler instance is
// reused across rebalances, so it must stay safe to call repeatedly.
func (consumer *Consumer) Setup(sarama.ConsumerGroupSession) error {
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
			var event model.LoanEvent
			if err := json.Unmarshal(message.Value, &event); err != nil {
				consumer.log.Error("unmarshal loan event", zap.Error(err))
				session.MarkMessage(message, "")
				continue
			}

			if err := consumer.apply(context.Background(), event); err != nil {
				consumer.log.Error("apply loan event", zap.Error(err))
				continue
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}
