package processor

import "strings"

// NormalizeAndPivot runs one collection day's raw metric tables through the
// whole daily pipeline — normalize, explode, pivot, coalesce, rank,
// cleanse, format — and returns the day's ranked table plus any numeric
// cleansing warnings. It is the library entry point for callers that do not
// want to assemble a processor chain; the configured pipeline stages wrap
// the same functions.
func NormalizeAndPivot(rawTables []*Table) (*Table, []CleanseWarning, error) {
	normalizer, err := NewSettlementSchemaNormalizer(nil)
	if err != nil {
		return nil, nil, err
	}
	exploder, err := NewLastUpdatedExploder(nil)
	if err != nil {
		return nil, nil, err
	}
	ranker, err := NewContractMonthRanker(nil)
	if err != nil {
		return nil, nil, err
	}
	formatter, err := NewExportFormatter(nil)
	if err != nil {
		return nil, nil, err
	}

	var long *Table
	for _, raw := range rawTables {
		normalized, err := normalizer.Normalize(raw)
		if err != nil {
			return nil, nil, err
		}
		if long == nil {
			long = normalized
			continue
		}
		if err := long.AppendTable(normalized); err != nil {
			return nil, nil, err
		}
	}
	if long == nil {
		return nil, nil, schemaErrorf("", "no raw tables to process")
	}

	exploded, err := exploder.Explode(long)
	if err != nil {
		return nil, nil, err
	}

	var values []string
	for _, col := range exploded.Columns {
		if col != "month" && col != "metric_id" {
			values = append(values, col)
		}
	}
	pivoted, err := Pivot(exploded, "month", "metric_id", values)
	if err != nil {
		return nil, nil, err
	}

	coalesced, err := Coalesce(pivoted, ResolveFieldMappings(pivoted, defaultFieldMappings))
	if err != nil {
		return nil, nil, err
	}

	ranked, err := ranker.Rank(coalesced)
	if err != nil {
		return nil, nil, err
	}

	var numericColumns []string
	for _, col := range ranked.Columns {
		field, _, ok := strings.Cut(col, ": ")
		if !ok {
			continue
		}
		for _, numeric := range defaultNumericFields {
			if field == numeric {
				numericColumns = append(numericColumns, col)
				break
			}
		}
	}
	warnings, err := CleanseNumericColumns(ranked, numericColumns)
	if err != nil {
		return nil, nil, err
	}

	return formatter.Format(ranked), warnings, nil
}
