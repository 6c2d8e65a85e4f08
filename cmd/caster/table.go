package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// columnAlignment selects cell justification for one table column.
type columnAlignment int

const (
	alignLeft columnAlignment = iota // default
	alignRight
)

// renderTable lays out rows under headers with rounded borders. Rows shorter
// than the header are padded with blanks so ragged input still lines up.
func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	if len(headers) == 0 {
		return ""
	}

	w := table.NewWriter()
	w.SetStyle(table.StyleRounded)

	head := make(table.Row, len(headers))
	for i, h := range headers {
		head[i] = h
	}
	w.AppendHeader(head)

	for _, row := range rows {
		cells := make(table.Row, len(headers))
		for i := range cells {
			if i < len(row) {
				cells[i] = row[i]
			} else {
				cells[i] = ""
			}
		}
		w.AppendRow(cells)
	}

	var configs []table.ColumnConfig
	for i, align := range aligns {
		if i >= len(headers) || align != alignRight {
			continue
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
		})
	}
	if len(configs) > 0 {
		w.SetColumnConfigs(configs)
	}

	return w.Render()
}
