package consumer

import (
	"fmt"
	"strconv"

	"github.com/withObsrvr/settlement-etl-workflow/processor"
)

// Structural columns of an export-formatted table. Everything else is a
// per-metric value column.
var structuralColumns = map[string]bool{
	"Month":             true,
	"Month Rank":        true,
	"Collected Date":    true,
	"Updated Date":      true,
	"Updated Time":      true,
	"Updated Time Zone": true,
	"Lookup-Key":        true,
}

// metricColumns returns the per-metric value columns of a formatted table,
// in table order.
func metricColumns(t *processor.Table) []string {
	var metrics []string
	for _, col := range t.Columns {
		if !structuralColumns[col] {
			metrics = append(metrics, col)
		}
	}
	return metrics
}

// cellText renders a cell for text output: missing becomes "", floats drop
// trailing zeros.
func cellText(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
