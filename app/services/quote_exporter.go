// Package services provides external service integrations and technical concerns like exports
package services

import (
	"fmt"
	"strings"

	"github.com/amirphl/Tarazu/app/dto"
	"github.com/amirphl/Tarazu/utils"
	"github.com/xuri/excelize/v2"
)

// QuoteExporter renders a priced listing into a shareable document
type QuoteExporter interface {
	ExportQuote(resp *dto.EvaluateListingResponse) (string, []byte, error)
}

// ExcelQuoteExporter writes one workbook per quote: a summary block on top,
// the per-rule breakdown below it.
type ExcelQuoteExporter struct{}

// NewExcelQuoteExporter creates a new Excel quote exporter
func NewExcelQuoteExporter() QuoteExporter {
	return &ExcelQuoteExporter{}
}

const quoteSheetName = "Quote"

func (e *ExcelQuoteExporter) ExportQuote(resp *dto.EvaluateListingResponse) (string, []byte, error) {
	if resp == nil {
		return "", nil, fmt.Errorf("nothing to export")
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()
	xl.SetSheetName(xl.GetSheetName(0), quoteSheetName)

	rulesetName := "none"
	if resp.RulesetName != nil {
		rulesetName = *resp.RulesetName
	}
	summary := [][]string{
		{"Ruleset", rulesetName},
		{"Selection Mode", resp.SelectionMode},
		{"Currency", resp.Currency},
		{"Base Price", formatAmount(resp.BasePrice)},
		{"Total Adjustment", formatAmount(resp.TotalAdjustment)},
		{"Adjusted Price", formatAmount(resp.AdjustedPrice)},
		{"Rules Evaluated", fmt.Sprintf("%d", resp.RulesEvaluated)},
		{"Rules Matched", fmt.Sprintf("%d", resp.RulesMatched)},
		{"Evaluated At", resp.EvaluatedAt},
	}
	for i, row := range summary {
		cellRef, _ := excelize.CoordinatesToCellName(1, i+1)
		rowCopy := row
		_ = xl.SetSheetRow(quoteSheetName, cellRef, &rowCopy)
	}

	headerRow := len(summary) + 2
	header := []string{"group", "rule", "action_type", "raw_amount", "multipliers", "final_amount", "note"}
	headerRef, _ := excelize.CoordinatesToCellName(1, headerRow)
	_ = xl.SetSheetRow(quoteSheetName, headerRef, &header)

	for ri, entry := range resp.Breakdown {
		note := ""
		if entry.FormulaError != nil {
			note = "formula failed: " + *entry.FormulaError
		}
		record := []string{
			entry.GroupName,
			entry.RuleName,
			entry.ActionType,
			formatAmount(entry.RawAmount),
			formatMultipliers(entry.Multipliers),
			formatAmount(entry.FinalAmount),
			note,
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, headerRow+1+ri)
		_ = xl.SetSheetRow(quoteSheetName, cellRef, &record)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, fmt.Errorf("failed to write quote workbook: %w", err)
	}

	filename := fmt.Sprintf("quote_%s.xlsx", utils.UTCNowFormat("20060102_150405"))
	return filename, buf.Bytes(), nil
}

func formatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func formatMultipliers(multipliers []dto.AppliedMultiplierDTO) string {
	if len(multipliers) == 0 {
		return ""
	}
	parts := make([]string, 0, len(multipliers))
	for _, m := range multipliers {
		parts = append(parts, fmt.Sprintf("%s x%.4f", m.Type, m.Factor))
	}
	return strings.Join(parts, ", ")
}
