package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jnst/order-stats-pipeline/internal/model"
)

func strPtr(s string) *string { return &s }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// sampleOrder has items summing to 99.99.
func sampleOrder() *model.Order {
	return &model.Order{
		OrderID:        strPtr("ORD1234"),
		UserID:         strPtr("U5678"),
		OrderTimestamp: time.Date(2024, 12, 13, 10, 0, 0, 0, time.UTC),
		OrderValue:     decPtr("99.99"),
		Items: []model.OrderItem{
			{ProductID: "P001", Quantity: 2, PricePerUnit: decimal.RequireFromString("20.00")},
			{ProductID: "P002", Quantity: 1, PricePerUnit: decimal.RequireFromString("59.99")},
		},
	}
}

func TestValidateOrder_ValidWithinTolerance(t *testing.T) {
	result := ValidateOrder(sampleOrder(), true)

	assert.Equal(t, model.StatusValid, result.Status)
	assert.Equal(t, "ORD1234", result.OrderID)
	assert.Equal(t, "U5678", result.UserID)
	assert.True(t, result.OrderValue.Equal(decimal.RequireFromString("99.99")))
	assert.True(t, result.ComputedTotal.Equal(decimal.RequireFromString("99.99")))
	assert.False(t, result.Corrected)
	assert.Empty(t, result.Errors)
}

func TestValidateOrder_JustInsideTolerance(t *testing.T) {
	order := sampleOrder()
	order.OrderValue = decPtr("99.98") // off by exactly 0.01

	result := ValidateOrder(order, false)

	assert.Equal(t, model.StatusValid, result.Status)
	assert.True(t, result.OrderValue.Equal(decimal.RequireFromString("99.98")),
		"reported value must be kept when within tolerance")
}

func TestValidateOrder_MissingUserID(t *testing.T) {
	order := sampleOrder()
	order.UserID = nil

	result := ValidateOrder(order, true)

	assert.Equal(t, model.StatusInvalid, result.Status)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "user_id")
}

func TestValidateOrder_EmptyOrderID(t *testing.T) {
	order := sampleOrder()
	order.OrderID = strPtr("")

	result := ValidateOrder(order, true)

	assert.Equal(t, model.StatusInvalid, result.Status)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "order_id")
}

func TestValidateOrder_MissingOrderValue(t *testing.T) {
	order := sampleOrder()
	order.OrderValue = nil

	result := ValidateOrder(order, true)

	assert.Equal(t, model.StatusInvalid, result.Status)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "order_value")
}

func TestValidateOrder_OneErrorPerViolatedField(t *testing.T) {
	result := ValidateOrder(&model.Order{OrderID: strPtr("ORD1")}, true)

	assert.Equal(t, model.StatusInvalid, result.Status)
	assert.Equal(t, "ORD1", result.OrderID)
	assert.Len(t, result.Errors, 2) // user_id and order_value
}

func TestValidateOrder_MissingAllFieldsUsesUnknownID(t *testing.T) {
	result := ValidateOrder(&model.Order{}, true)

	assert.Equal(t, model.StatusInvalid, result.Status)
	assert.Equal(t, "Unknown", result.OrderID)
	assert.Len(t, result.Errors, 3)
}

func TestValidateOrder_CorrectsMismatchedValue(t *testing.T) {
	order := sampleOrder()
	order.OrderValue = decPtr("91.99")

	result := ValidateOrder(order, true)

	assert.Equal(t, model.StatusValid, result.Status)
	assert.True(t, result.OrderValue.Equal(decimal.RequireFromString("99.99")),
		"corrected value must be the computed total")
	assert.True(t, result.Corrected)
}

func TestValidateOrder_RejectsMismatchedValue(t *testing.T) {
	order := sampleOrder()
	order.OrderValue = decPtr("91.99")

	result := ValidateOrder(order, false)

	assert.Equal(t, model.StatusInvalid, result.Status)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "91.99")
	assert.Contains(t, result.Errors[0], "99.99")
}

func TestValidateOrder_AbsentItemFieldsCountAsZero(t *testing.T) {
	order := sampleOrder()
	order.Items = append(order.Items, model.OrderItem{ProductID: "P003"})

	result := ValidateOrder(order, false)

	assert.Equal(t, model.StatusValid, result.Status)
	assert.True(t, result.ComputedTotal.Equal(decimal.RequireFromString("99.99")))
}

func TestValidateOrder_NoItemsComputesZeroTotal(t *testing.T) {
	order := sampleOrder()
	order.Items = nil

	result := ValidateOrder(order, true)

	assert.Equal(t, model.StatusValid, result.Status)
	assert.True(t, result.OrderValue.IsZero(), "value must be corrected down to the empty total")
}
