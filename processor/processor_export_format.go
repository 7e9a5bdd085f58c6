package processor

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Display-name exceptions: labels whose source-page capitalization differs
// from what the report should show.
var defaultLabelExceptions = map[string]string{
	"Wti":           "WTI",
	"Usgc-Ulsd":     "USGC-ULSD",
	"Usgc-Hsfo":     "USGC-HSFO",
	"Gasoline-Rbob": "Gasoline-RBOB",
}

// ExportFormatter relabels columns for presentation. The primary value
// field's per-metric columns become metric-only labels ("prior_settle:
// Brent" -> "Brent"), other pivot columns keep a title-cased field prefix,
// structural snake_case columns become Title Case, and a small exception
// table fixes capitalization the source page gets wrong. Only labels
// change, never values.
type ExportFormatter struct {
	primaryField string
	exceptions   map[string]string
	processors   []Processor
}

func NewExportFormatter(config map[string]interface{}) (*ExportFormatter, error) {
	f := &ExportFormatter{
		primaryField: "prior_settle",
		exceptions:   defaultLabelExceptions,
	}
	if field, ok := config["primary_field"].(string); ok {
		f.primaryField = field
	}
	if raw, ok := config["label_exceptions"].(map[interface{}]interface{}); ok {
		f.exceptions = make(map[string]string, len(raw))
		for k, v := range raw {
			key, kok := k.(string)
			val, vok := v.(string)
			if !kok || !vok {
				return nil, fmt.Errorf("invalid label_exceptions entry: %v: %v", k, v)
			}
			f.exceptions[key] = val
		}
	}
	return f, nil
}

func (f *ExportFormatter) Subscribe(receiver Processor) {
	f.processors = append(f.processors, receiver)
}

func (f *ExportFormatter) Process(ctx context.Context, msg Message) error {
	env, err := ExtractEnvelope(msg)
	if err != nil {
		return err
	}

	formatted := f.Format(env.Table)
	log.Printf("Formatted capture %s for export: %s", env.RunID, strings.Join(formatted.Columns, ", "))

	return ForwardToProcessors(ctx, &TableEnvelope{RunID: env.RunID, Source: env.Source, Table: formatted}, f.processors)
}

// Format returns a relabeled copy of the table; the input is not modified.
func (f *ExportFormatter) Format(in *Table) *Table {
	t := in.Copy()
	for i, col := range t.Columns {
		t.Columns[i] = f.formatLabel(col)
	}
	return t
}

func (f *ExportFormatter) formatLabel(col string) string {
	var label string
	if field, metric, ok := strings.Cut(col, ": "); ok {
		if field == f.primaryField {
			label = metric
		} else {
			label = titleCase(field) + ": " + metric
		}
	} else if col == "Lookup-Key" {
		label = col
	} else {
		label = titleCase(col)
	}

	if fixed, ok := f.exceptions[label]; ok {
		return fixed
	}
	return label
}

// titleCase converts a snake_case column name to a space-separated Title
// Case label.
func titleCase(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
