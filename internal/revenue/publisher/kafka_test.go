package publisher

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/salesengine/internal/revenue/domain"
	saledomain "github.com/smallbiznis/salesengine/internal/sale/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_KeysByOwner(t *testing.T) {
	w := &fakeWriter{}
	pub := NewKafkaPublisherWithWriter(w)

	delta := domain.RecognitionDelta{
		SaleID:        "11",
		OwnerID:       "22",
		OldStatus:     saledomain.PaymentStatusCredit,
		NewStatus:     saledomain.PaymentStatusPaid,
		RevenueImpact: decimal.NewFromInt(300),
		ProfitImpact:  decimal.NewFromInt(90),
	}
	require.NoError(t, pub.Publish(context.Background(), delta))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "22", string(w.msgs[0].Key))

	var decoded domain.RecognitionDelta
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, saledomain.PaymentStatusPaid, decoded.NewStatus)
	assert.True(t, decoded.RevenueImpact.Equal(decimal.NewFromInt(300)))

	require.NoError(t, pub.Close())
	assert.True(t, w.closed)
}

func TestLogPublisher_NeverFails(t *testing.T) {
	pub := NewLogPublisher(zap.NewNop())
	assert.NoError(t, pub.Publish(context.Background(), domain.RecognitionDelta{}))
}
