package order

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound           = errors.New("order not found")
	ErrNotCardOrder       = errors.New("order is not a card order")
	ErrNotAwaitingPayment = errors.New("order is not awaiting payment")
	ErrProvider           = errors.New("payment provider error")
)

// Fields maps a request field path such as "items[1].quantity" to a message.
type Fields map[string]string

type ValidationError struct {
	Fields Fields
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// StockShortageError names the first product that could not cover the
// quantity requested for it.
type StockShortageError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *StockShortageError) Error() string {
	return fmt.Sprintf("Insufficient stock for %s (requested %d, available %d)", e.Name, e.Requested, e.Available)
}
