package handler_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openshelf/lending-service/internal/handler"
	"github.com/openshelf/lending-service/internal/model"
)

// The consumer group loop reuses one handler across sessions, so sarama
// calls Setup again after every rebalance or broker reconnect.
func TestConsumer_SetupRepeats(t *testing.T) {
	t.Parallel()
	apply := func(_ context.Context, _ model.LoanEvent) error { return nil }
	consumer := handler.NewConsumer(apply, zap.NewExample())

	require.NotPanics(t, func() {
		for i := 0; i < 3; i++ {
			require.NoError(t, consumer.Setup(nil))
			require.NoError(t, consumer.Cleanup(nil))
		}
	})
}
