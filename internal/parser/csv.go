package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docseg/internal/pandoc"
)

// csvBatchSize is the number of data rows grouped under one header.
const csvBatchSize = 20

// CSVParser handles CSV files. Data rows are grouped into batches, each
// under a "Rows a-b" header, with one line per row of "column: value" pairs.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*pandoc.Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	title := BaseTitle(filename)
	if len(records) == 0 {
		return newDocument(title, nil), nil
	}

	// First row is headers.
	headers := records[0]
	dataRows := records[1:]

	var blocks []pandoc.Block
	for i := 0; i < len(dataRows); i += csvBatchSize {
		end := min(i+csvBatchSize, len(dataRows))

		// 1-indexed, skip header
		blocks = append(blocks,
			header(2, fmt.Sprintf("Rows %d-%d", i+2, end+1)),
			para("Headers: "+strings.Join(headers, ", ")),
		)

		rows := &pandoc.LineBlock{}
		for _, row := range dataRows[i:end] {
			rows.Lines = append(rows.Lines, words(csvRowText(headers, row)))
		}
		blocks = append(blocks, rows)
	}

	return newDocument(title, blocks), nil
}

func csvRowText(headers, row []string) string {
	var text strings.Builder
	for j, cell := range row {
		if j < len(headers) {
			text.WriteString(headers[j] + ": " + cell)
		} else {
			text.WriteString(cell)
		}
		if j < len(row)-1 {
			text.WriteString(", ")
		}
	}
	return text.String()
}
