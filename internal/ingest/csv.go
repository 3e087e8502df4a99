package ingest

import (
	"strings"

	"github.com/nzila/unionkb/internal/models"
)

// CSVParser parses comma-separated buffers. The first row is treated as
// headers; fields are split on commas outside double quotes and trimmed.
type CSVParser struct{}

func (p *CSVParser) Name() string { return "csv" }

func (p *CSVParser) CanParse(contentType, filename string) bool {
	return hasContentType(contentType, "text/csv") || hasExt(filename, ".csv")
}

func (p *CSVParser) Parse(data []byte) (*ParseResult, error) {
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	var rows [][]string
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, splitCSVLine(line))
	}
	if len(rows) == 0 {
		return &ParseResult{}, nil
	}

	table := models.Table{Headers: rows[0]}
	if len(rows) > 1 {
		table.Rows = rows[1:]
	}

	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.Join(row, " | "))
	}
	return &ParseResult{
		Content: b.String(),
		Tables:  []models.Table{table},
	}, nil
}

// splitCSVLine splits on commas that are outside double quotes and trims
// each field. Doubled quotes inside a quoted field are unescaped.
func splitCSVLine(line string) []string {
	var (
		fields  []string
		field   strings.Builder
		inQuote bool
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			if inQuote && i+1 < len(line) && line[i+1] == '"' {
				field.WriteByte('"')
				i++
			} else {
				inQuote = !inQuote
			}
		case c == ',' && !inQuote:
			fields = append(fields, strings.TrimSpace(field.String()))
			field.Reset()
		default:
			field.WriteByte(c)
		}
	}
	fields = append(fields, strings.TrimSpace(field.String()))
	return fields
}
