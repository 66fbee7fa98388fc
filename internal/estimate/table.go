package estimate

import (
	"strconv"

	"github.com/iwvelando/bid-estimator/pkg/money"
	"github.com/shopspring/decimal"
)

// Summary row labels.
const (
	SubtotalLabel = "SUBTOTAL"
	MiscLabel     = "Misc"
	TotalLabel    = "TOTAL BID"
)

// Namer resolves a device key to its display name.
type Namer interface {
	DisplayName(key string) string
}

// Row is one line of the tabular bid breakdown. Summary rows leave Quantity
// and UnitPrice empty.
type Row struct {
	Device    string          `json:"device"`
	Quantity  string          `json:"quantity"`
	UnitPrice string          `json:"unitPrice"`
	Total     decimal.Decimal `json:"total"`
	Summary   bool            `json:"summary"`
}

// ToTable renders one row per line item followed by the summary rows
// SUBTOTAL, Overhead, Profit, an optional Misc row and TOTAL BID.
func ToTable(est Estimate, names Namer) []Row {
	rows := make([]Row, 0, len(est.LineItems)+5)
	for _, item := range est.LineItems {
		name := item.DeviceKey
		if names != nil {
			name = names.DisplayName(item.DeviceKey)
		}
		rows = append(rows, Row{
			Device:    name,
			Quantity:  strconv.Itoa(item.Quantity),
			UnitPrice: money.Fixed(item.UnitPrice),
			Total:     item.LineTotal(),
		})
	}

	rows = append(rows,
		summaryRow(SubtotalLabel, est.MaterialSubtotal),
		summaryRow(OverheadLabel(est.OverheadPct), est.OverheadAmount),
		summaryRow(ProfitLabel(est.ProfitPct), est.ProfitAmount),
	)
	if est.MiscCost.IsPositive() {
		rows = append(rows, summaryRow(MiscLabel, est.MiscCost))
	}
	rows = append(rows, summaryRow(TotalLabel, est.FinalTotal))
	return rows
}

// OverheadLabel returns e.g. "Overhead (10%)".
func OverheadLabel(pct decimal.Decimal) string {
	return "Overhead (" + money.Percent(pct) + "%)"
}

// ProfitLabel returns e.g. "Profit (15%)".
func ProfitLabel(pct decimal.Decimal) string {
	return "Profit (" + money.Percent(pct) + "%)"
}

func summaryRow(label string, total decimal.Decimal) Row {
	return Row{Device: label, Total: total, Summary: true}
}
