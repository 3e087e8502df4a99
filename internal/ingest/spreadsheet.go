package ingest

import (
	"bytes"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/nzila/unionkb/internal/models"
)

// SpreadsheetParser extracts text and structured tables from .xlsx workbooks.
// Each sheet becomes one table with its first row as headers. Extraction is
// best-effort: a corrupt workbook yields an empty result with an error note.
type SpreadsheetParser struct{}

func (p *SpreadsheetParser) Name() string { return "spreadsheet" }

func (p *SpreadsheetParser) CanParse(contentType, filename string) bool {
	return hasContentType(contentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet") ||
		hasExt(filename, ".xlsx")
}

func (p *SpreadsheetParser) Parse(data []byte) (*ParseResult, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return &ParseResult{ErrorNote: "open spreadsheet: " + err.Error()}, nil
	}
	defer f.Close()

	var (
		buf    strings.Builder
		tables []models.Table
	)
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return &ParseResult{ErrorNote: "read sheet " + sheet + ": " + err.Error()}, nil
		}
		if len(rows) == 0 {
			continue
		}
		table := models.Table{Headers: rows[0]}
		if len(rows) > 1 {
			table.Rows = rows[1:]
		}
		tables = append(tables, table)
		for _, row := range rows {
			buf.WriteString(strings.Join(row, "\t"))
			buf.WriteByte('\n')
		}
	}
	return &ParseResult{
		Content: strings.TrimSpace(buf.String()),
		Tables:  tables,
	}, nil
}
