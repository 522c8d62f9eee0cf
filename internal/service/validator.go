package service

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jnst/order-stats-pipeline/internal/model"
)

// orderValueTolerance is the absolute tolerance when comparing the reported
// order value to the total computed from line items.
var orderValueTolerance = decimal.New(1, -2) // 0.01

// ValidateOrder checks a parsed order and produces a validation verdict.
//
// Required fields (user_id, order_id, order_value) are checked first; any
// violation yields INVALID immediately with one error per violated field.
// Otherwise the reported order value is compared to the sum of
// quantity × price_per_unit over the items, with absent item fields counting
// as zero. On a mismatch beyond tolerance, correctValue decides whether the
// order is accepted with the computed total as its authoritative value or
// rejected.
//
// Deterministic; no side effects beyond logging.
func ValidateOrder(order *model.Order, correctValue bool) *model.ValidationResult {
	var errs []string

	switch {
	case order.UserID == nil:
		errs = append(errs, `missing required field: "user_id"`)
	case strings.TrimSpace(*order.UserID) == "":
		errs = append(errs, `empty required field: "user_id"`)
	}

	switch {
	case order.OrderID == nil:
		errs = append(errs, `missing required field: "order_id"`)
	case strings.TrimSpace(*order.OrderID) == "":
		errs = append(errs, `empty required field: "order_id"`)
	}

	if order.OrderValue == nil {
		errs = append(errs, `missing required field: "order_value"`)
	}

	if len(errs) > 0 {
		orderID := "Unknown"
		if order.OrderID != nil {
			orderID = *order.OrderID
		}

		slog.Error("order validation failed",
			slog.String("order_id", orderID),
			slog.Any("errors", errs),
		)

		return &model.ValidationResult{
			Status:  model.StatusInvalid,
			OrderID: orderID,
			Errors:  errs,
		}
	}

	computedTotal := decimal.Zero
	for _, item := range order.Items {
		computedTotal = computedTotal.Add(item.PricePerUnit.Mul(decimal.NewFromInt(item.Quantity)))
	}

	reportedValue := *order.OrderValue
	corrected := false

	if computedTotal.Sub(reportedValue).Abs().GreaterThan(orderValueTolerance) {
		msg := fmt.Sprintf("order value mismatch: reported $%s, computed $%s",
			reportedValue.StringFixed(2), computedTotal.StringFixed(2))

		if !correctValue {
			slog.Error("rejecting order with mismatched value",
				slog.String("order_id", *order.OrderID),
				slog.String("detail", msg),
			)

			return &model.ValidationResult{
				Status:  model.StatusInvalid,
				OrderID: *order.OrderID,
				Errors:  []string{msg},
			}
		}

		slog.Warn("correcting mismatched order value",
			slog.String("order_id", *order.OrderID),
			slog.String("detail", msg),
		)

		reportedValue = computedTotal
		corrected = true
	}

	return &model.ValidationResult{
		Status:         model.StatusValid,
		OrderID:        *order.OrderID,
		UserID:         *order.UserID,
		OrderValue:     reportedValue,
		OrderTimestamp: order.OrderTimestamp,
		ComputedTotal:  computedTotal,
		Corrected:      corrected,
	}
}
