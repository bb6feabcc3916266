package transaction

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidLineItem = errors.New("transaction: invalid line item")

// LineItem is one (product, quantity) pair of a transaction.
type LineItem struct {
	ProductID string
	Quantity  int
}

func (l LineItem) Validate() error {
	if strings.TrimSpace(l.ProductID) == "" {
		return fmt.Errorf("%w: product id is required", ErrInvalidLineItem)
	}
	if l.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be greater than zero", ErrInvalidLineItem)
	}
	return nil
}

// String renders the storage encoding "productId quantity".
func (l LineItem) String() string {
	return l.ProductID + " " + strconv.Itoa(l.Quantity)
}

// ParseLineItem decodes the storage encoding produced by String.
func ParseLineItem(s string) (LineItem, error) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return LineItem{}, fmt.Errorf("%w: %q", ErrInvalidLineItem, s)
	}
	qty, err := strconv.Atoi(parts[1])
	if err != nil {
		return LineItem{}, fmt.Errorf("%w: %q: %w", ErrInvalidLineItem, s, err)
	}
	li := LineItem{ProductID: parts[0], Quantity: qty}
	if err := li.Validate(); err != nil {
		return LineItem{}, err
	}
	return li, nil
}

func EncodeLineItems(items []LineItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.String()
	}
	return out
}

func DecodeLineItems(raw []string) ([]LineItem, error) {
	out := make([]LineItem, 0, len(raw))
	for _, s := range raw {
		li, err := ParseLineItem(s)
		if err != nil {
			return nil, err
		}
		out = append(out, li)
	}
	return out, nil
}

// MergeLineItems sums quantities of repeated product ids, keeping first-seen order.
func MergeLineItems(items []LineItem) []LineItem {
	if len(items) == 0 {
		return nil
	}
	idx := make(map[string]int, len(items))
	out := make([]LineItem, 0, len(items))
	for _, it := range items {
		if i, ok := idx[it.ProductID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		idx[it.ProductID] = len(out)
		out = append(out, it)
	}
	return out
}
