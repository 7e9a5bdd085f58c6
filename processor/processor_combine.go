package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"

	"github.com/pkg/errors"
)

// CombineBatch is the payload the combiner pipeline's source emits: the
// reference column schema plus every daily table to merge, in input order.
type CombineBatch struct {
	TemplateColumns []string     `json:"template_columns"`
	Runs            []CombineRun `json:"runs"`
}

// CombineRun is one named daily table.
type CombineRun struct {
	Name  string `json:"name"`
	Table *Table `json:"table"`
}

// CombineResult is what the combiner forwards downstream: the merged
// series, the names of runs rejected for schema drift, and the context
// side-table for the report.
type CombineResult struct {
	Series   *Table   `json:"series"`
	Rejected []string `json:"rejected"`
	Context  *Table   `json:"context"`
}

// CombineOptions controls combining behavior.
type CombineOptions struct {
	// RepresentativeColumns are the metric columns inspected to decide
	// whether a row is priced yet.
	RepresentativeColumns []string
	// AnyMissing makes a row incomplete when any representative column is
	// missing (the historical behavior); false requires all of them to be
	// missing. Which reading is right is genuinely ambiguous upstream, so
	// it stays a configuration choice.
	AnyMissing bool
	// DedupeColumn, when non-empty, dedupes merged rows on that column
	// keeping the latest run's row in the earliest run's position.
	DedupeColumn string
	// SourceName and DateColumn feed the context side-table.
	SourceName string
	DateColumn string
}

// DefaultCombineOptions mirror the report this pipeline was built for:
// three representative metrics, a row unpriced when any of them is blank,
// dedupe on Lookup-Key keeping the latest run.
func DefaultCombineOptions() CombineOptions {
	return CombineOptions{
		RepresentativeColumns: []string{"WTI", "USGC-ULSD", "USGC-HSFO"},
		AnyMissing:            true,
		DedupeColumn:          "Lookup-Key",
		SourceName:            "CME Group (Prior Settle)",
		DateColumn:            "Collected Date",
	}
}

// TruncateTrailingIncomplete drops the longest run of trailing rows that
// are all incomplete, where incompleteness is judged from the
// representative columns. A complete row anywhere breaks the truncation:
// everything at or before it is kept. A table with rows but no complete
// ones keeps exactly one row, never zero; truncation can shrink a table
// but can never discard it. A table with no rows at all passes through
// empty.
func TruncateTrailingIncomplete(t *Table, representative []string, anyMissing bool) (*Table, error) {
	repIdx := make([]int, len(representative))
	for i, col := range representative {
		idx := t.ColumnIndex(col)
		if idx < 0 {
			return nil, schemaErrorf("", "representative column %q not in table", col)
		}
		repIdx[i] = idx
	}

	incomplete := func(row []interface{}) bool {
		missing := 0
		for _, idx := range repIdx {
			if IsMissing(row[idx]) {
				missing++
			}
		}
		if anyMissing {
			return missing > 0
		}
		return missing == len(repIdx)
	}

	// cut is the index of the first row of the all-incomplete suffix.
	cut := len(t.Rows)
	for i := len(t.Rows) - 1; i >= 0; i-- {
		if !incomplete(t.Rows[i]) {
			break
		}
		cut = i
	}
	if cut == 0 && len(t.Rows) > 0 {
		cut = 1 // degenerate all-incomplete table keeps one row
	}

	out := NewTable(t.Columns...)
	for _, row := range t.Rows[:cut] {
		out.Rows = append(out.Rows, append([]interface{}{}, row...))
	}
	return out, nil
}

// Combine validates every run's column schema against the template
// fingerprint, truncates each accepted run's unpriced tail, concatenates
// the survivors in input order, optionally dedupes, and assembles the
// context summary. Rejected runs are reported by name, never silently
// dropped. Combine always returns a usable result for whatever validated;
// it only errors when the batch itself is unusable (no template, or a
// representative column missing from an accepted run).
func Combine(batch *CombineBatch, opts CombineOptions) (*CombineResult, error) {
	if len(batch.TemplateColumns) == 0 {
		return nil, errors.New("combine batch has no template columns")
	}
	templateFingerprint := SchemaFingerprint(batch.TemplateColumns)

	series := NewTable(batch.TemplateColumns...)
	result := &CombineResult{Series: series, Rejected: []string{}}

	rowOf := make(map[string]int) // dedupe key -> row index in series
	dedupeIdx := -1
	if opts.DedupeColumn != "" {
		dedupeIdx = series.ColumnIndex(opts.DedupeColumn)
	}

	for _, run := range batch.Runs {
		if SchemaFingerprint(run.Table.Columns) != templateFingerprint {
			result.Rejected = append(result.Rejected, run.Name)
			continue
		}

		truncated, err := TruncateTrailingIncomplete(run.Table, opts.RepresentativeColumns, opts.AnyMissing)
		if err != nil {
			return nil, errors.Wrapf(err, "truncating run %s", run.Name)
		}

		for _, row := range truncated.Rows {
			if dedupeIdx >= 0 {
				key := CellString(row[dedupeIdx])
				if prev, seen := rowOf[key]; seen {
					// Later run wins; the row keeps its original position.
					series.Rows[prev] = append([]interface{}{}, row...)
					continue
				}
				rowOf[key] = len(series.Rows)
			}
			series.Rows = append(series.Rows, append([]interface{}{}, row...))
		}
	}

	result.Context = buildContext(series, opts)
	return result, nil
}

// buildContext summarizes source metadata for the report's Context tab:
// the source name and the first and last collection dates present in the
// merged series.
func buildContext(series *Table, opts CombineOptions) *Table {
	context := NewTable("Name", "Value")

	firstDate, lastDate := "", ""
	if idx := series.ColumnIndex(opts.DateColumn); idx >= 0 {
		seen := make(map[string]bool)
		var dates []string
		for _, row := range series.Rows {
			date := CellString(row[idx])
			if date == "" || seen[date] {
				continue
			}
			seen[date] = true
			dates = append(dates, date)
		}
		sort.Strings(dates)
		if len(dates) > 0 {
			firstDate, lastDate = dates[0], dates[len(dates)-1]
		}
	}

	context.AppendRow("Source", opts.SourceName)
	context.AppendRow("First Date in File", firstDate)
	context.AppendRow("Last Date in File", lastDate)
	return context
}

// CrossRunCombiner merges many days' processed tables into one master
// series.
type CrossRunCombiner struct {
	opts       CombineOptions
	processors []Processor
}

func NewCrossRunCombiner(config map[string]interface{}) (*CrossRunCombiner, error) {
	c := &CrossRunCombiner{opts: DefaultCombineOptions()}

	if cols, ok := config["representative_columns"].([]interface{}); ok {
		c.opts.RepresentativeColumns = nil
		for _, v := range cols {
			name, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("invalid representative_columns entry: %v", v)
			}
			c.opts.RepresentativeColumns = append(c.opts.RepresentativeColumns, name)
		}
	}
	if mode, ok := config["incomplete_when"].(string); ok {
		switch mode {
		case "any_missing":
			c.opts.AnyMissing = true
		case "all_missing":
			c.opts.AnyMissing = false
		default:
			return nil, fmt.Errorf("invalid incomplete_when value %q (want any_missing or all_missing)", mode)
		}
	}
	if dedupe, ok := config["dedupe"].(bool); ok && !dedupe {
		c.opts.DedupeColumn = ""
	}
	if column, ok := config["dedupe_column"].(string); ok {
		c.opts.DedupeColumn = column
	}
	if name, ok := config["source_name"].(string); ok {
		c.opts.SourceName = name
	}
	if column, ok := config["date_column"].(string); ok {
		c.opts.DateColumn = column
	}

	return c, nil
}

func (c *CrossRunCombiner) Subscribe(receiver Processor) {
	c.processors = append(c.processors, receiver)
}

func (c *CrossRunCombiner) Process(ctx context.Context, msg Message) error {
	payloadBytes, ok := msg.Payload.([]byte)
	if !ok {
		return fmt.Errorf("expected []byte type for message.Payload, got %T", msg.Payload)
	}

	var batch CombineBatch
	if err := json.Unmarshal(payloadBytes, &batch); err != nil {
		return fmt.Errorf("error unmarshaling combine batch: %w", err)
	}

	result, err := Combine(&batch, c.opts)
	if err != nil {
		return errors.Wrap(err, "combining runs")
	}

	log.Printf("Combined %d runs into %d rows (%d rejected)",
		len(batch.Runs)-len(result.Rejected), result.Series.NumRows(), len(result.Rejected))
	for _, name := range result.Rejected {
		log.Printf("Rejected run %s: column schema does not match template", name)
	}

	return ForwardToProcessors(ctx, result, c.processors)
}
