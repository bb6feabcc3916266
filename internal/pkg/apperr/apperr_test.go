package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindSurvivesWrapping(t *testing.T) {
	base := Permanent("decrement would go negative", errors.New("qty 5 < 10"))
	wrapped := fmt.Errorf("consumer: handle: %w", base)

	assert.Equal(t, KindPermanent, KindOf(wrapped))
	assert.True(t, IsPermanent(wrapped))
	assert.False(t, Is(wrapped, KindTransient))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.False(t, IsPermanent(nil))
}

func TestInsufficientStockCarriesReasons(t *testing.T) {
	err := fmt.Errorf("create: %w", InsufficientStock([]string{"Mug (only 2 available)", "Product ID x not found"}))

	assert.Equal(t, KindInsufficientStock, KindOf(err))
	assert.Equal(t, []string{"Mug (only 2 available)", "Product ID x not found"}, ReasonsOf(err))
	assert.Contains(t, err.Error(), "Mug (only 2 available); Product ID x not found")
}

func TestErrorsIsReachesCause(t *testing.T) {
	sentinel := errors.New("transaction: invalid state transition")
	err := Conflict("transaction already paid", sentinel)

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, "conflict: transaction already paid: transaction: invalid state transition", err.Error())
}
