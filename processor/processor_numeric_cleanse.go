package processor

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
)

// Fields whose per-metric pivot columns hold display-formatted numbers.
var defaultNumericFields = []string{"prior_settle", "limit_low", "limit_high"}

// CleanseWarning records one cell that could not be parsed as a number.
// The cell becomes missing and the rest of the column still lands; one
// malformed metric must not block the others.
type CleanseWarning struct {
	Column string `json:"column"`
	Row    int    `json:"row"`
	Value  string `json:"value"`
}

// CleanseNumericColumns converts display-formatted numeric strings in the
// named columns to float64 in place: the "-" missing sentinel becomes nil,
// "+" change markers and thousands separators are stripped, and anything
// that still fails to parse is reported as a warning with the cell set to
// nil.
func CleanseNumericColumns(t *Table, columns []string) ([]CleanseWarning, error) {
	var warnings []CleanseWarning
	for _, col := range columns {
		idx := t.ColumnIndex(col)
		if idx < 0 {
			return warnings, schemaErrorf("", "numeric column %q not in table", col)
		}
		for r, row := range t.Rows {
			switch val := row[idx].(type) {
			case nil:
				continue
			case float64:
				continue
			case string:
				if IsMissing(val) {
					row[idx] = nil
					continue
				}
				cleaned := strings.TrimSpace(val)
				cleaned = strings.TrimPrefix(cleaned, "+")
				cleaned = strings.ReplaceAll(cleaned, ",", "")
				parsed, err := strconv.ParseFloat(cleaned, 64)
				if err != nil {
					warnings = append(warnings, CleanseWarning{Column: col, Row: r, Value: val})
					row[idx] = nil
					continue
				}
				row[idx] = parsed
			default:
				warnings = append(warnings, CleanseWarning{Column: col, Row: r, Value: fmt.Sprintf("%v", val)})
				row[idx] = nil
			}
		}
	}
	return warnings, nil
}

// NumericCleanser converts the settle and limit columns of a pivoted table
// to floating point. By default it cleanses every "<field>: <metric>"
// column whose field part is a known numeric field; an explicit column list
// can be configured instead.
type NumericCleanser struct {
	numericFields []string
	columns       []string
	processors    []Processor
}

func NewNumericCleanser(config map[string]interface{}) (*NumericCleanser, error) {
	c := &NumericCleanser{numericFields: defaultNumericFields}
	if cols, ok := config["columns"].([]interface{}); ok {
		for _, v := range cols {
			name, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("invalid columns entry: %v", v)
			}
			c.columns = append(c.columns, name)
		}
	}
	return c, nil
}

func (c *NumericCleanser) Subscribe(receiver Processor) {
	c.processors = append(c.processors, receiver)
}

func (c *NumericCleanser) Process(ctx context.Context, msg Message) error {
	env, err := ExtractEnvelope(msg)
	if err != nil {
		return err
	}

	columns := c.columns
	if len(columns) == 0 {
		for _, col := range env.Table.Columns {
			field, _, ok := strings.Cut(col, ": ")
			if !ok {
				continue
			}
			for _, numeric := range c.numericFields {
				if field == numeric {
					columns = append(columns, col)
					break
				}
			}
		}
	}

	cleansed := env.Table.Copy()
	warnings, err := CleanseNumericColumns(cleansed, columns)
	if err != nil {
		if se, ok := err.(*SchemaError); ok && se.Table == "" {
			se.Table = env.RunID
		}
		return err
	}
	for _, w := range warnings {
		log.Printf("Warning: capture %s column %q row %d: cannot parse %q as a number, treating as missing",
			env.RunID, w.Column, w.Row, w.Value)
	}

	return ForwardToProcessors(ctx, &TableEnvelope{RunID: env.RunID, Source: env.Source, Table: cleansed}, c.processors)
}
