package stock

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWireFormat(t *testing.T) {
	pid := uuid.NewString()

	raw, err := Encode(Adjustment{Kind: KindDecrement, ProductID: pid, Quantity: 3, CorrelationID: "tx-1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"productId":"`+pid+`","quantity":3,"transactionId":"tx-1"}`, string(raw))

	raw, err = Encode(Adjustment{Kind: KindIncrement, ProductID: pid, Quantity: 2, CorrelationID: "rf-1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"productId":"`+pid+`","quantity":2,"refundId":"rf-1"}`, string(raw))

	got, err := Decode(KindIncrement, raw)
	require.NoError(t, err)
	assert.Equal(t, "increment|rf-1|"+pid, got.IdempotencyKey())
}

func TestDecodeRejectsMalformed(t *testing.T) {
	pid := uuid.NewString()
	cases := map[string]string{
		"not json":       `{`,
		"empty product":  `{"productId":"","quantity":1,"transactionId":"t"}`,
		"bad product":    `{"productId":"P1","quantity":1,"transactionId":"t"}`,
		"zero quantity":  `{"productId":"` + pid + `","quantity":0,"transactionId":"t"}`,
		"float quantity": `{"productId":"` + pid + `","quantity":1.5,"transactionId":"t"}`,
		"no correlation": `{"productId":"` + pid + `","quantity":1}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(KindDecrement, []byte(payload))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestTopics(t *testing.T) {
	k, ok := KindForTopic("refund.update")
	require.True(t, ok)
	assert.Equal(t, KindIncrement, k)
	assert.Equal(t, "stock.update", KindDecrement.Topic())
	_, ok = KindForTopic("stock.update.dlq")
	assert.False(t, ok)
}
