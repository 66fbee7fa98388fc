// Package estimate turns line items and markup parameters into an itemized bid.
package estimate

import (
	"fmt"
	"strconv"

	"github.com/iwvelando/bid-estimator/pkg/constants"
	"github.com/iwvelando/bid-estimator/pkg/money"
	"github.com/shopspring/decimal"
)

// ProfitBasis selects what the profit percentage is applied to.
type ProfitBasis string

const (
	// ProfitOnCostPlusOverhead applies profit to material subtotal plus overhead.
	ProfitOnCostPlusOverhead ProfitBasis = "costPlusOverhead"

	// ProfitOnMaterial applies profit to the material subtotal only.
	ProfitOnMaterial ProfitBasis = "material"
)

// ParseProfitBasis maps a configuration value to a ProfitBasis. Empty selects
// ProfitOnCostPlusOverhead.
func ParseProfitBasis(value string) (ProfitBasis, error) {
	switch ProfitBasis(value) {
	case "", ProfitOnCostPlusOverhead:
		return ProfitOnCostPlusOverhead, nil
	case ProfitOnMaterial:
		return ProfitOnMaterial, nil
	}
	return "", invalid("profitBasis", value, fmt.Sprintf("must be %s or %s", ProfitOnCostPlusOverhead, ProfitOnMaterial))
}

// LineItem is one catalog device with its quantity and unit price.
type LineItem struct {
	DeviceKey string          `json:"deviceKey"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// LineTotal returns quantity * unit price.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Params holds the markup inputs of an estimate.
type Params struct {
	OverheadPct decimal.Decimal
	ProfitPct   decimal.Decimal
	MiscCost    decimal.Decimal
	ProfitBasis ProfitBasis
}

// Estimate is a fully computed bid. Every derived amount is produced by
// Compute from the inputs stored alongside it.
type Estimate struct {
	LineItems   []LineItem
	OverheadPct decimal.Decimal
	ProfitPct   decimal.Decimal
	MiscCost    decimal.Decimal
	ProfitBasis ProfitBasis

	MaterialSubtotal decimal.Decimal
	OverheadAmount   decimal.Decimal
	ProfitAmount     decimal.Decimal
	FinalTotal       decimal.Decimal
}

var maxPct = decimal.NewFromInt(constants.MaxPercentage)

// Compute validates the inputs and derives subtotal, overhead, profit and
// total. It has no side effects; the returned Estimate owns a copy of items.
func Compute(items []LineItem, params Params) (Estimate, error) {
	for i, item := range items {
		if item.Quantity < 0 {
			return Estimate{}, invalid(itemField(i, item, "quantity"), strconv.Itoa(item.Quantity), "must be >= 0")
		}
		if item.UnitPrice.IsNegative() {
			return Estimate{}, invalid(itemField(i, item, "unitPrice"), item.UnitPrice.String(), "must be >= 0")
		}
		if !money.IsCents(item.UnitPrice) {
			return Estimate{}, invalid(itemField(i, item, "unitPrice"), item.UnitPrice.String(), "must be whole cents")
		}
	}
	if err := checkPct("overheadPct", params.OverheadPct); err != nil {
		return Estimate{}, err
	}
	if err := checkPct("profitPct", params.ProfitPct); err != nil {
		return Estimate{}, err
	}
	if params.MiscCost.IsNegative() {
		return Estimate{}, invalid("miscCost", params.MiscCost.String(), "must be >= 0")
	}
	if !money.IsCents(params.MiscCost) {
		return Estimate{}, invalid("miscCost", params.MiscCost.String(), "must be whole cents")
	}
	basis, err := ParseProfitBasis(string(params.ProfitBasis))
	if err != nil {
		return Estimate{}, err
	}

	totals := make([]decimal.Decimal, len(items))
	for i, item := range items {
		totals[i] = item.LineTotal()
	}
	subtotal := money.Sum(totals...)
	overhead := money.ApplyPercentage(subtotal, params.OverheadPct)

	profitBase := subtotal.Add(overhead)
	if basis == ProfitOnMaterial {
		profitBase = subtotal
	}
	profit := money.ApplyPercentage(profitBase, params.ProfitPct)

	return Estimate{
		LineItems:        append([]LineItem(nil), items...),
		OverheadPct:      params.OverheadPct,
		ProfitPct:        params.ProfitPct,
		MiscCost:         params.MiscCost,
		ProfitBasis:      basis,
		MaterialSubtotal: subtotal,
		OverheadAmount:   overhead,
		ProfitAmount:     profit,
		FinalTotal:       money.Sum(subtotal, overhead, profit, params.MiscCost),
	}, nil
}

// Params returns the markup inputs the estimate was computed with.
func (e Estimate) Params() Params {
	return Params{
		OverheadPct: e.OverheadPct,
		ProfitPct:   e.ProfitPct,
		MiscCost:    e.MiscCost,
		ProfitBasis: e.ProfitBasis,
	}
}

// Nonzero returns a copy of the estimate with zero-quantity items dropped.
// Totals are unchanged since those items contribute nothing.
func (e Estimate) Nonzero() Estimate {
	e.LineItems = FilterNonzero(e.LineItems)
	return e
}

// FilterNonzero returns the items with a positive quantity, in their
// original order.
func FilterNonzero(items []LineItem) []LineItem {
	filtered := make([]LineItem, 0, len(items))
	for _, item := range items {
		if item.Quantity > 0 {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

func checkPct(field string, pct decimal.Decimal) error {
	if pct.IsNegative() || pct.GreaterThan(maxPct) {
		return invalid(field, pct.String(), "must be between 0 and 100")
	}
	return nil
}

func itemField(i int, item LineItem, field string) string {
	if item.DeviceKey != "" {
		return fmt.Sprintf("%s[%s]", field, item.DeviceKey)
	}
	return fmt.Sprintf("%s[%d]", field, i)
}
