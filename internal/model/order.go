// Package model defines domain models and data structures.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

// Order represents an incoming order message payload. Required fields are
// pointers so that a missing field is distinguishable from a zero value.
type Order struct {
	OrderID         *string          `json:"order_id"`
	UserID          *string          `json:"user_id"`
	OrderTimestamp  time.Time        `json:"order_timestamp"`
	OrderValue      *decimal.Decimal `json:"order_value"`
	Items           []OrderItem      `json:"items"`
	ShippingAddress string           `json:"shipping_address"`
	PaymentMethod   string           `json:"payment_method"`
}

// OrderItem represents a single line item in an order.
type OrderItem struct {
	ProductID    string          `json:"product_id"`
	Quantity     int64           `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
}

// SchemaError reports a payload that is syntactically valid JSON but violates
// the order schema. Redelivering such a message can never succeed, so callers
// treat it like a business-invalid order instead of leaving it queued.
type SchemaError struct {
	Field  string
	Detail string
}

func (e *SchemaError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("schema violation on field %q: %s", e.Field, e.Detail)
	}

	return "schema violation: " + e.Detail
}

// ParseOrder decodes a queue message body into an Order. It returns
// ErrMalformedPayload for broken JSON and *SchemaError for payloads that
// parse as JSON but do not match the order schema.
func ParseOrder(data []byte) (*Order, error) {
	var order Order
	if err := json.Unmarshal(data, &order); err != nil {
		var (
			syntaxErr *json.SyntaxError
			typeErr   *json.UnmarshalTypeError
			timeErr   *time.ParseError
		)

		switch {
		case errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF):
			return nil, fmt.Errorf("%w: %s", ErrMalformedPayload, err)
		case errors.As(err, &typeErr):
			return nil, &SchemaError{Field: typeErr.Field, Detail: err.Error()}
		case errors.As(err, &timeErr):
			return nil, &SchemaError{Field: "order_timestamp", Detail: err.Error()}
		default:
			return nil, &SchemaError{Detail: err.Error()}
		}
	}

	return &order, nil
}

// OrderIDFromPayload extracts the order_id from a payload whose full parse
// failed, so a schema-violating order can still be archived under its own ID.
// Falls back to "Unknown" when the ID itself is absent or unreadable.
func OrderIDFromPayload(data []byte) string {
	var partial struct {
		OrderID *string `json:"order_id"`
	}

	if err := json.Unmarshal(data, &partial); err != nil || partial.OrderID == nil {
		return "Unknown"
	}

	return *partial.OrderID
}

// ValidationStatus is the verdict of order validation.
type ValidationStatus string

const (
	// StatusValid marks an order that passed validation.
	StatusValid ValidationStatus = "VALID"
	// StatusInvalid marks an order that failed validation.
	StatusInvalid ValidationStatus = "INVALID"
)

// ValidationResult carries the outcome of validating a single order. For a
// valid order it holds the (possibly corrected) order value and the total
// computed from the line items; for an invalid order it holds the reasons.
type ValidationResult struct {
	Status         ValidationStatus
	OrderID        string
	UserID         string
	OrderValue     decimal.Decimal
	OrderTimestamp time.Time
	ComputedTotal  decimal.Decimal
	Corrected      bool
	Errors         []string
}
