// Package output provides utilities for formatting and displaying bid estimates.
package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/iwvelando/bid-estimator/internal/estimate"
	"github.com/iwvelando/bid-estimator/pkg/money"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CsvHeader is the header row of the CSV export.
var CsvHeader = []string{"Device", "Count", "Unit Price", "Total"}

// PrettyFormat writes a human-readable rather than machine-readable table.
func PrettyFormat(w io.Writer, title string, rows []estimate.Row) {
	p := message.NewPrinter(language.English)

	width := len("Device")
	for _, row := range rows {
		if len(row.Device) > width {
			width = len(row.Device)
		}
	}

	if title != "" {
		fmt.Fprintf(w, "--- Bid estimate for %s ---\n", title)
	}
	fmt.Fprintf(w, "%-*s | %8s | %12s | %14s\n", width, "Device", "Count", "Unit Price", "Total")
	fmt.Fprintf(w, "%s | %s | %s | %s\n", strings.Repeat("_", width), strings.Repeat("_", 8), strings.Repeat("_", 12), strings.Repeat("_", 14))
	for _, row := range rows {
		count := row.Quantity
		if n, err := strconv.Atoi(row.Quantity); err == nil {
			count = p.Sprintf("%d", n)
		}
		unitPrice := ""
		if row.UnitPrice != "" {
			if price, err := money.Parse(row.UnitPrice); err == nil {
				unitPrice = money.Currency(price)
			}
		}
		if row.Device == estimate.TotalLabel {
			fmt.Fprintf(w, "%s | %s | %s | %s\n", strings.Repeat("=", width), strings.Repeat("=", 8), strings.Repeat("=", 12), strings.Repeat("=", 14))
		}
		fmt.Fprintf(w, "%-*s | %8s | %12s | %14s\n", width, row.Device, count, unitPrice, money.Currency(row.Total))
	}
}

// CsvFormat writes the rows as comma-separated values.
func CsvFormat(w io.Writer, rows []estimate.Row) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(CsvHeader); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{row.Device, row.Quantity, row.UnitPrice, money.Fixed(row.Total)}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// CsvString returns the CSV export as a string.
func CsvString(rows []estimate.Row) string {
	var buf bytes.Buffer
	// Writes to a bytes.Buffer cannot fail.
	_ = CsvFormat(&buf, rows)
	return buf.String()
}

// TextSummary returns one "- name: qty @ $price = $total" line per nonzero
// item followed by the total bid.
func TextSummary(est estimate.Estimate, names estimate.Namer) string {
	var b strings.Builder
	for _, item := range estimate.FilterNonzero(est.LineItems) {
		name := item.DeviceKey
		if names != nil {
			name = names.DisplayName(item.DeviceKey)
		}
		fmt.Fprintf(&b, "- %s: %d @ %s = %s\n", name, item.Quantity, money.Currency(item.UnitPrice), money.Currency(item.LineTotal()))
	}
	fmt.Fprintf(&b, "%s: %s\n", estimate.TotalLabel, money.Currency(est.FinalTotal))
	return b.String()
}
