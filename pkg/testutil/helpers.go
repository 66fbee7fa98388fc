// Package testutil provides common utility functions for testing.
package testutil

import (
	"testing"

	"github.com/iwvelando/bid-estimator/internal/estimate"
	"github.com/shopspring/decimal"
)

// FindRow finds a row by device label in the rendered table.
// Returns a pointer to the row if found, nil otherwise.
func FindRow(rows []estimate.Row, device string) *estimate.Row {
	for i := range rows {
		if rows[i].Device == device {
			return &rows[i]
		}
	}
	return nil
}

// FindItem finds a line item by device key.
func FindItem(items []estimate.LineItem, key string) *estimate.LineItem {
	for i := range items {
		if items[i].DeviceKey == key {
			return &items[i]
		}
	}
	return nil
}

// Dec parses a decimal literal, failing the test on error.
func Dec(t testing.TB, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", value, err)
	}
	return d
}

// AssertAmount fails the test when got is not exactly want.
func AssertAmount(t testing.TB, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(Dec(t, want)) {
		t.Errorf("%s = %s, expected %s", name, got.StringFixed(2), want)
	}
}
