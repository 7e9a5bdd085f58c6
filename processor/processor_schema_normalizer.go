package processor

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Column-name fragments that mark display-only noise the source pages embed
// in their tables (navigation cells, artifacts of the multi-level header).
var noiseFragments = []string{"unnamed", "options", "charts"}

// Display-only fields dropped after name normalization. They carry no
// settlement information; the pivot only needs prior_settle and the
// timestamp fields.
var defaultDropColumns = []string{
	"last", "change", "open", "high", "low", "volume",
	"estimated_volume", "prior_day_oi", "hi_low_limit",
}

// Columns every raw metric table must carry once names are normalized. A
// capture missing one of these has drifted from the expected page layout.
var defaultRequiredColumns = []string{"metric_id", "month", "prior_settle", "updated"}

// SettlementSchemaNormalizer standardizes one raw capture's column names
// and shape: lower-cased underscore names, noise and display-only columns
// dropped, required columns verified. Optionally splits the hi/low limit
// field into limit_low/limit_high instead of dropping it.
type SettlementSchemaNormalizer struct {
	requiredColumns []string
	dropColumns     []string
	keepLimits      bool
	dropLeadingRows int
	processors      []Processor
}

func NewSettlementSchemaNormalizer(config map[string]interface{}) (*SettlementSchemaNormalizer, error) {
	n := &SettlementSchemaNormalizer{
		requiredColumns: defaultRequiredColumns,
		dropColumns:     defaultDropColumns,
	}

	if keepLimits, ok := config["keep_limits"].(bool); ok {
		n.keepLimits = keepLimits
	}
	if rows, ok := config["drop_leading_rows"].(int); ok {
		n.dropLeadingRows = rows
	}
	if required, ok := config["required_columns"].([]interface{}); ok {
		n.requiredColumns = nil
		for _, col := range required {
			name, ok := col.(string)
			if !ok {
				return nil, fmt.Errorf("invalid required_columns entry: %v", col)
			}
			n.requiredColumns = append(n.requiredColumns, name)
		}
	}
	if extra, ok := config["drop_columns"].([]interface{}); ok {
		for _, col := range extra {
			name, ok := col.(string)
			if !ok {
				return nil, fmt.Errorf("invalid drop_columns entry: %v", col)
			}
			n.dropColumns = append(n.dropColumns, name)
		}
	}

	return n, nil
}

func (n *SettlementSchemaNormalizer) Subscribe(receiver Processor) {
	n.processors = append(n.processors, receiver)
}

func (n *SettlementSchemaNormalizer) Process(ctx context.Context, msg Message) error {
	env, err := ExtractEnvelope(msg)
	if err != nil {
		return err
	}

	normalized, err := n.Normalize(env.Table)
	if err != nil {
		if se, ok := err.(*SchemaError); ok && se.Table == "" {
			se.Table = env.RunID
		}
		return err
	}
	log.Printf("Normalized capture %s: %d rows, %d columns", env.RunID, normalized.NumRows(), len(normalized.Columns))

	return ForwardToProcessors(ctx, &TableEnvelope{RunID: env.RunID, Source: env.Source, Table: normalized}, n.processors)
}

// Normalize applies the normalizer to one raw table and returns a new
// table; the input is not modified.
func (n *SettlementSchemaNormalizer) Normalize(raw *Table) (*Table, error) {
	t := raw.Copy()

	if n.dropLeadingRows > 0 && n.dropLeadingRows <= len(t.Rows) {
		t.Rows = t.Rows[n.dropLeadingRows:]
	}

	for i, col := range t.Columns {
		t.Columns[i] = NormalizeColumnName(col)
	}

	var noise []string
	for _, col := range t.Columns {
		for _, fragment := range noiseFragments {
			if strings.Contains(strings.ToLower(col), fragment) {
				noise = append(noise, col)
				break
			}
		}
	}
	t.DropColumns(noise...)

	if n.keepLimits && t.HasColumn("hi_low_limit") {
		err := ExplodeColumn(t, "hi_low_limit", []string{"limit_high", "limit_low"}, splitLimits)
		if err != nil {
			return nil, err
		}
	}
	t.DropColumns(n.dropColumns...)

	for _, required := range n.requiredColumns {
		if !t.HasColumn(required) {
			return nil, schemaErrorf("", "required column %q missing after normalization (have: %s)",
				required, strings.Join(t.Columns, ", "))
		}
	}
	if !t.HasColumn("collected_timestamp") && !t.HasColumn("collected_date") {
		return nil, schemaErrorf("", "no collected timestamp or date column after normalization")
	}

	return t, nil
}

// NormalizeColumnName lower-cases a raw column name, converts spaces to
// underscores, and collapses " / " style separators.
func NormalizeColumnName(name string) string {
	col := strings.ToLower(strings.TrimSpace(name))
	col = strings.ReplaceAll(col, " ", "_")
	col = strings.ReplaceAll(col, "_/_", "_")
	col = strings.ReplaceAll(col, "/", "_")
	return col
}

func splitLimits(val string) []string {
	parts := strings.SplitN(val, "/", 2)
	if len(parts) != 2 {
		// Arity is validated by ExplodeColumn; surface the short split there.
		return parts
	}
	return []string{strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])}
}
