package stock

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Kind string

const (
	KindDecrement Kind = "decrement"
	KindIncrement Kind = "increment"
)

// Routing keys, one per kind so the two are consumed independently.
const (
	TopicDecrement = "stock.update"
	TopicIncrement = "refund.update"
)

var ErrMalformed = errors.New("stock: malformed adjustment")

func (k Kind) Topic() string {
	switch k {
	case KindDecrement:
		return TopicDecrement
	case KindIncrement:
		return TopicIncrement
	}
	return ""
}

func KindForTopic(topic string) (Kind, bool) {
	switch topic {
	case TopicDecrement:
		return KindDecrement, true
	case TopicIncrement:
		return KindIncrement, true
	}
	return "", false
}

// Adjustment is a stock decrement or increment intent.
type Adjustment struct {
	Kind      Kind
	ProductID string
	Quantity  int
	// CorrelationID is the transaction id for decrements and the refund id for increments.
	CorrelationID string
}

func (a Adjustment) Validate() error {
	if a.Kind.Topic() == "" {
		return fmt.Errorf("%w: unknown kind %q", ErrMalformed, a.Kind)
	}
	if strings.TrimSpace(a.ProductID) == "" {
		return fmt.Errorf("%w: productId is required", ErrMalformed)
	}
	if _, err := uuid.Parse(a.ProductID); err != nil {
		return fmt.Errorf("%w: productId %q is not a UUID", ErrMalformed, a.ProductID)
	}
	if a.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrMalformed, a.Quantity)
	}
	if strings.TrimSpace(a.CorrelationID) == "" {
		return fmt.Errorf("%w: correlation id is required", ErrMalformed)
	}
	return nil
}

// IdempotencyKey identifies the intent across redeliveries.
func (a Adjustment) IdempotencyKey() string {
	return string(a.Kind) + "|" + a.CorrelationID + "|" + a.ProductID
}

type decrementWire struct {
	ProductID     string `json:"productId"`
	Quantity      int    `json:"quantity"`
	TransactionID string `json:"transactionId"`
}

type incrementWire struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	RefundID  string `json:"refundId"`
}

// Encode renders the kind-specific wire payload.
func Encode(a Adjustment) ([]byte, error) {
	switch a.Kind {
	case KindDecrement:
		return json.Marshal(decrementWire{ProductID: a.ProductID, Quantity: a.Quantity, TransactionID: a.CorrelationID})
	case KindIncrement:
		return json.Marshal(incrementWire{ProductID: a.ProductID, Quantity: a.Quantity, RefundID: a.CorrelationID})
	}
	return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformed, a.Kind)
}

// Decode parses and validates a payload of the given kind.
func Decode(kind Kind, payload []byte) (Adjustment, error) {
	a := Adjustment{Kind: kind}
	switch kind {
	case KindDecrement:
		var w decrementWire
		if err := json.Unmarshal(payload, &w); err != nil {
			return Adjustment{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		a.ProductID, a.Quantity, a.CorrelationID = w.ProductID, w.Quantity, w.TransactionID
	case KindIncrement:
		var w incrementWire
		if err := json.Unmarshal(payload, &w); err != nil {
			return Adjustment{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		a.ProductID, a.Quantity, a.CorrelationID = w.ProductID, w.Quantity, w.RefundID
	}
	if err := a.Validate(); err != nil {
		return Adjustment{}, err
	}
	return a, nil
}
