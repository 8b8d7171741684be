// Package reports renders matcher results as spreadsheets for catalog staff.
package reports

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"storefront-service/internal/matching"
)

const (
	matchesSheet   = "Matches"
	unmatchedSheet = "Unmatched"
)

var matchHeaders = []string{"Product ID", "Product Name", "Product SKU", "External ID", "External Name", "External SKU", "Score", "Matched On"}

var unmatchedHeaders = []string{"Product ID", "Product Name", "Product SKU"}

// BuildMatchReport lays out a matcher result as a two-sheet workbook
func BuildMatchReport(result matching.Result) (*excelize.File, error) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", matchesSheet)
	if _, err := f.NewSheet(unmatchedSheet); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	if err := writeHeader(f, matchesSheet, matchHeaders, headerStyle); err != nil {
		return nil, err
	}
	for i, m := range result.Matches {
		row := []interface{}{
			m.Internal.ID, m.Internal.Name, m.Internal.SKU,
			m.External.ID, m.External.Name, m.External.SKU,
			m.Score, strings.Join(m.Signals, ", "),
		}
		if err := writeRow(f, matchesSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	if err := writeHeader(f, unmatchedSheet, unmatchedHeaders, headerStyle); err != nil {
		return nil, err
	}
	for i, r := range result.Unmatched {
		if err := writeRow(f, unmatchedSheet, i+2, []interface{}{r.ID, r.Name, r.SKU}); err != nil {
			return nil, err
		}
	}

	f.SetCellValue(unmatchedSheet, "E1", "Skipped records")
	f.SetCellValue(unmatchedSheet, "F1", result.Skipped)
	return f, nil
}

// WriteMatchReport saves the workbook to path
func WriteMatchReport(path string, result matching.Result) error {
	f, err := BuildMatchReport(result)
	if err != nil {
		return fmt.Errorf("failed to build match report: %w", err)
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save match report: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, style)

		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, 24)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}
