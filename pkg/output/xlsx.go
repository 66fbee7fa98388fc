package output

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/iwvelando/bid-estimator/internal/estimate"
	"github.com/xuri/excelize/v2"
)

const defaultSheetName = "Bid"

// XlsxBytes renders the rows into a single-sheet workbook with numeric
// count, price and total cells.
func XlsxBytes(title string, rows []estimate.Row) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(title)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}

	for col, width := range map[string]float64{"A": 36, "B": 10, "C": 14, "D": 16} {
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return nil, fmt.Errorf("set col width %s: %w", col, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#333333"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, fmt.Errorf("create money style: %w", err)
	}
	summaryStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: 4})
	if err != nil {
		return nil, fmt.Errorf("create summary style: %w", err)
	}

	for i, header := range CsvHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("set header %s: %w", cell, err)
		}
	}
	if err := f.SetCellStyle(sheet, "A1", "D1", headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, row := range rows {
		r := strconv.Itoa(i + 2)
		if err := f.SetCellValue(sheet, "A"+r, sanitizeCell(row.Device)); err != nil {
			return nil, err
		}
		if n, err := strconv.Atoi(row.Quantity); err == nil {
			if err := f.SetCellValue(sheet, "B"+r, n); err != nil {
				return nil, err
			}
		}
		if row.UnitPrice != "" {
			if price, err := strconv.ParseFloat(row.UnitPrice, 64); err == nil {
				if err := f.SetCellValue(sheet, "C"+r, price); err != nil {
					return nil, err
				}
			}
		}
		if err := f.SetCellValue(sheet, "D"+r, row.Total.InexactFloat64()); err != nil {
			return nil, err
		}

		style := moneyStyle
		if row.Summary {
			style = summaryStyle
		}
		if err := f.SetCellStyle(sheet, "C"+r, "D"+r, style); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

const maxSheetNameLength = 31

// sheetName trims title to Excel's 31 character limit and drops the
// characters sheet names may not contain.
func sheetName(title string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return -1
		}
		return r
	}, strings.TrimSpace(title))
	if runes := []rune(name); len(runes) > maxSheetNameLength {
		name = string(runes[:maxSheetNameLength])
	}
	if name == "" {
		return defaultSheetName
	}
	return name
}

// sanitizeCell stops spreadsheet apps from evaluating labels as formulas.
func sanitizeCell(value string) string {
	if value != "" && strings.ContainsRune("=+-@", rune(value[0])) {
		return "'" + value
	}
	return value
}
