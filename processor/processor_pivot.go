package processor

import (
	"context"
	"fmt"
	"log"
)

// Pivot reshapes a long table into a wide one: one row per distinct
// category value, one column per (value column x series value) pair labeled
// "<value>: <series>". Categories and series keep first-seen order. A
// duplicated (category, series) pair is a data-integrity problem and fails
// the pivot; it is never aggregated away. Categories a series does not
// offer get nil cells in that series' columns.
func Pivot(t *Table, category, series string, values []string) (*Table, error) {
	catIdx := t.ColumnIndex(category)
	if catIdx < 0 {
		return nil, schemaErrorf("", "pivot category column %q not in table", category)
	}
	serIdx := t.ColumnIndex(series)
	if serIdx < 0 {
		return nil, schemaErrorf("", "pivot series column %q not in table", series)
	}
	valIdx := make([]int, len(values))
	for i, v := range values {
		idx := t.ColumnIndex(v)
		if idx < 0 {
			return nil, schemaErrorf("", "pivot value column %q not in table", v)
		}
		valIdx[i] = idx
	}

	var categories, seriesValues []string
	catSeen := make(map[string]int)
	serSeen := make(map[string]bool)
	type key struct{ cat, ser string }
	cells := make(map[key][]interface{})

	for _, row := range t.Rows {
		cat := CellString(row[catIdx])
		ser := CellString(row[serIdx])
		k := key{cat, ser}
		if _, dup := cells[k]; dup {
			return nil, schemaErrorf("", "duplicate (%s=%q, %s=%q) pair in pivot input", category, cat, series, ser)
		}
		vals := make([]interface{}, len(valIdx))
		for i, idx := range valIdx {
			vals[i] = row[idx]
		}
		cells[k] = vals

		if _, ok := catSeen[cat]; !ok {
			catSeen[cat] = len(categories)
			categories = append(categories, cat)
		}
		if !serSeen[ser] {
			serSeen[ser] = true
			seriesValues = append(seriesValues, ser)
		}
	}

	columns := []string{category}
	for _, v := range values {
		for _, ser := range seriesValues {
			columns = append(columns, fmt.Sprintf("%s: %s", v, ser))
		}
	}

	out := NewTable(columns...)
	for _, cat := range categories {
		row := make([]interface{}, 0, len(columns))
		row = append(row, cat)
		for i := range values {
			for _, ser := range seriesValues {
				if vals, ok := cells[key{cat, ser}]; ok {
					row = append(row, vals[i])
				} else {
					row = append(row, nil)
				}
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// ContractMonthPivot pivots the normalized daily table into one row per
// contract month with one column per (field x metric) pair. By default
// every column other than the category and series columns is a value
// column.
type ContractMonthPivot struct {
	categoryColumn string
	seriesColumn   string
	valueColumns   []string
	processors     []Processor
}

func NewContractMonthPivot(config map[string]interface{}) (*ContractMonthPivot, error) {
	p := &ContractMonthPivot{
		categoryColumn: "month",
		seriesColumn:   "metric_id",
	}
	if category, ok := config["category_column"].(string); ok {
		p.categoryColumn = category
	}
	if series, ok := config["series_column"].(string); ok {
		p.seriesColumn = series
	}
	if values, ok := config["value_columns"].([]interface{}); ok {
		for _, v := range values {
			name, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("invalid value_columns entry: %v", v)
			}
			p.valueColumns = append(p.valueColumns, name)
		}
	}
	return p, nil
}

func (p *ContractMonthPivot) Subscribe(receiver Processor) {
	p.processors = append(p.processors, receiver)
}

func (p *ContractMonthPivot) Process(ctx context.Context, msg Message) error {
	env, err := ExtractEnvelope(msg)
	if err != nil {
		return err
	}

	values := p.valueColumns
	if len(values) == 0 {
		for _, col := range env.Table.Columns {
			if col != p.categoryColumn && col != p.seriesColumn {
				values = append(values, col)
			}
		}
	}

	pivoted, err := Pivot(env.Table, p.categoryColumn, p.seriesColumn, values)
	if err != nil {
		if se, ok := err.(*SchemaError); ok && se.Table == "" {
			se.Table = env.RunID
		}
		return err
	}
	log.Printf("Pivoted capture %s: %d contract months, %d columns", env.RunID, pivoted.NumRows(), len(pivoted.Columns))

	return ForwardToProcessors(ctx, &TableEnvelope{RunID: env.RunID, Source: env.Source, Table: pivoted}, p.processors)
}
