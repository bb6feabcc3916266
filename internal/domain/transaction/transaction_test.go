package transaction

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTx(t *testing.T) *Transaction {
	t.Helper()
	tx, err := New("tx-1", 7, 1, decimal.RequireFromString("100.00"), "USD", "card", []LineItem{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 1},
		{ProductID: "p1", Quantity: 3},
	})
	require.NoError(t, err)
	return tx
}

func TestNewMergesLineItems(t *testing.T) {
	tx := newTx(t)

	assert.Equal(t, StatusNew, tx.Status)
	assert.Equal(t, []LineItem{{ProductID: "p1", Quantity: 5}, {ProductID: "p2", Quantity: 1}}, tx.LineItems)
	assert.True(t, tx.OriginalAmount.Equal(tx.Amount))
}

func TestNewRejectsBadShape(t *testing.T) {
	amt := decimal.NewFromInt(10)
	cases := []struct {
		name   string
		userID int64
		amount decimal.Decimal
		cur    string
		items  []LineItem
		want   error
	}{
		{"user", 0, amt, "USD", nil, ErrInvalidUser},
		{"amount", 1, decimal.NewFromInt(-1), "USD", nil, ErrInvalidAmount},
		{"currency", 1, amt, "usd", nil, ErrInvalidCurrency},
		{"item", 1, amt, "USD", []LineItem{{ProductID: "p", Quantity: 0}}, ErrInvalidLineItem},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New("id", 1, tc.userID, tc.amount, tc.cur, "card", tc.items)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestLifecycle(t *testing.T) {
	tx := newTx(t)

	require.NoError(t, tx.ApplyDiscount(decimal.RequireFromString("80.00"), "RAMADAN20"))
	assert.Equal(t, StatusDiscounted, tx.Status)
	assert.Equal(t, "80", tx.Amount.String())
	assert.Equal(t, "RAMADAN20", tx.PromoCode)

	require.NoError(t, tx.MarkPaid())
	assert.Equal(t, StatusPaid, tx.Status)

	assert.ErrorIs(t, tx.ApplyDiscount(decimal.Zero, "X"), ErrInvalidStateTransition)
	assert.Equal(t, "80", tx.Amount.String(), "amount is frozen once paid")

	require.NoError(t, tx.MarkRefunded())
	assert.Equal(t, StatusRefunded, tx.Status)
	assert.Equal(t, int64(4), tx.Version)
}

func TestIllegalTransitions(t *testing.T) {
	paid := newTx(t)
	require.NoError(t, paid.MarkPaid())
	assert.ErrorIs(t, paid.MarkPaid(), ErrInvalidStateTransition)

	fresh := newTx(t)
	assert.ErrorIs(t, fresh.MarkRefunded(), ErrInvalidStateTransition)

	discounted := newTx(t)
	require.NoError(t, discounted.ApplyDiscount(decimal.NewFromInt(90), "A"))
	assert.ErrorIs(t, discounted.ApplyDiscount(decimal.NewFromInt(80), "B"), ErrInvalidStateTransition)
	assert.ErrorIs(t, discounted.MarkRefunded(), ErrInvalidStateTransition)

	refunded := newTx(t)
	require.NoError(t, refunded.MarkPaid())
	require.NoError(t, refunded.MarkRefunded())
	assert.ErrorIs(t, refunded.MarkPaid(), ErrInvalidStateTransition)
	assert.ErrorIs(t, refunded.MarkRefunded(), ErrInvalidStateTransition)
}

func TestDiscountCannotRaiseAmount(t *testing.T) {
	tx := newTx(t)
	assert.ErrorIs(t, tx.ApplyDiscount(decimal.NewFromInt(101), "UP"), ErrInvalidDiscount)
	assert.Equal(t, StatusNew, tx.Status)
}

func TestLineItemEncoding(t *testing.T) {
	raw := EncodeLineItems([]LineItem{{ProductID: "a", Quantity: 2}, {ProductID: "b", Quantity: 9}})
	assert.Equal(t, []string{"a 2", "b 9"}, raw)

	items, err := DecodeLineItems(raw)
	require.NoError(t, err)
	assert.Equal(t, LineItem{ProductID: "b", Quantity: 9}, items[1])

	for _, bad := range []string{"", "a", "a b", "a -1", "a 1 2"} {
		_, err := ParseLineItem(bad)
		assert.ErrorIs(t, err, ErrInvalidLineItem, bad)
	}
}

func TestCloneIsDeep(t *testing.T) {
	tx := newTx(t)
	c := tx.Clone()
	c.LineItems[0].Quantity = 99
	assert.Equal(t, 5, tx.LineItems[0].Quantity)
}
