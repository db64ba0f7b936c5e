package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/jobtrail/internal/doctree"
)

// CSVParser handles spreadsheet exports (one application or posting per
// row). Each row becomes a section titled by its first cell, with the
// remaining non-empty cells listed as "header: value".
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	tree := &doctree.DocTree{
		Title: strings.TrimSuffix(filename, ".csv"),
	}

	if len(records) == 0 {
		return tree, nil
	}

	// First row is headers.
	headers := records[0]

	for i, row := range records[1:] {
		if len(row) == 0 {
			continue
		}
		title := collapseSpace(row[0])
		if title == "" {
			title = fmt.Sprintf("Row %d", i+2) // 1-indexed, skip header
		}

		var text strings.Builder
		for j := 1; j < len(row); j++ {
			cell := collapseSpace(row[j])
			if cell == "" {
				continue
			}
			if text.Len() > 0 {
				text.WriteString("\n")
			}
			if j < len(headers) && strings.TrimSpace(headers[j]) != "" {
				text.WriteString(strings.TrimSpace(headers[j]) + ": " + cell)
			} else {
				text.WriteString(cell)
			}
		}

		tree.Children = append(tree.Children, &doctree.DocNode{
			Title: title,
			Text:  text.String(),
		})
	}

	return tree, nil
}
