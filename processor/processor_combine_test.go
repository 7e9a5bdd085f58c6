package processor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var combineColumns = []string{"Month", "WTI", "Brent", "Collected Date", "Lookup-Key"}

func combineRow(t *testing.T, table *Table, month string, wti, brent interface{}, date string, rank int) {
	t.Helper()
	lookup := fmt.Sprintf("%s - %d", date, rank)
	require.NoError(t, table.AppendRow(month, wti, brent, date, lookup))
}

func TestTruncateTrailingIncomplete(t *testing.T) {
	table := NewTable(combineColumns...)
	combineRow(t, table, "DEC 2020", 46.2, 48.9, "2020-12-15", 202012)
	combineRow(t, table, "JAN 2021", 47.0, 50.1, "2020-12-15", 202101)
	combineRow(t, table, "FEB 2021", nil, 51.2, "2020-12-15", 202102)
	combineRow(t, table, "MAR 2021", nil, nil, "2020-12-15", 202103)

	out, err := TruncateTrailingIncomplete(table, []string{"WTI", "Brent"}, true)
	require.NoError(t, err)
	assert.Equal(t, 2, out.NumRows(), "trailing partially-priced rows go with any_missing")
	assert.Equal(t, "JAN 2021", out.Cell(1, "Month"))

	out, err = TruncateTrailingIncomplete(table, []string{"WTI", "Brent"}, false)
	require.NoError(t, err)
	assert.Equal(t, 3, out.NumRows(), "all_missing keeps the partially-priced row")
	assert.Equal(t, "FEB 2021", out.Cell(2, "Month"))
}

func TestTruncateTrailingIncompleteNoTrailingGap(t *testing.T) {
	table := NewTable(combineColumns...)
	combineRow(t, table, "DEC 2020", nil, nil, "2020-12-15", 202012)
	combineRow(t, table, "JAN 2021", 47.0, 50.1, "2020-12-15", 202101)

	out, err := TruncateTrailingIncomplete(table, []string{"WTI", "Brent"}, true)
	require.NoError(t, err)
	assert.Equal(t, 2, out.NumRows(), "an interior gap is not a trailing gap")
}

func TestTruncateTrailingIncompleteAllIncompleteKeepsOneRow(t *testing.T) {
	table := NewTable(combineColumns...)
	combineRow(t, table, "DEC 2020", nil, nil, "2020-12-15", 202012)
	combineRow(t, table, "JAN 2021", nil, nil, "2020-12-15", 202101)

	out, err := TruncateTrailingIncomplete(table, []string{"WTI", "Brent"}, true)
	require.NoError(t, err)
	require.Equal(t, 1, out.NumRows())
	assert.Equal(t, "DEC 2020", out.Cell(0, "Month"))
}

func TestTruncateTrailingIncompleteEmptyTable(t *testing.T) {
	table := NewTable(combineColumns...)

	out, err := TruncateTrailingIncomplete(table, []string{"WTI", "Brent"}, true)
	require.NoError(t, err)
	assert.Equal(t, 0, out.NumRows())
	assert.Equal(t, combineColumns, out.Columns)
}

func TestTruncateTrailingIncompleteMissingRepresentative(t *testing.T) {
	table := NewTable("Month", "WTI")
	_, err := TruncateTrailingIncomplete(table, []string{"USGC-HSFO"}, true)
	require.Error(t, err)
	assert.True(t, IsSchemaError(err))
}

func combineTestOptions() CombineOptions {
	opts := DefaultCombineOptions()
	opts.RepresentativeColumns = []string{"WTI", "Brent"}
	return opts
}

func TestCombineConcatenatesInOrder(t *testing.T) {
	day1 := NewTable(combineColumns...)
	combineRow(t, day1, "DEC 2020", 46.2, 48.9, "2020-12-14", 202012)
	day2 := NewTable(combineColumns...)
	combineRow(t, day2, "DEC 2020", 46.5, 49.2, "2020-12-15", 202012)
	combineRow(t, day2, "JAN 2021", 47.0, 50.1, "2020-12-15", 202101)

	batch := &CombineBatch{
		TemplateColumns: combineColumns,
		Runs: []CombineRun{
			{Name: "2020-12-14 ~ Prior Settle ~ v1.csv", Table: day1},
			{Name: "2020-12-15 ~ Prior Settle ~ v1.csv", Table: day2},
		},
	}

	result, err := Combine(batch, combineTestOptions())
	require.NoError(t, err)
	assert.Empty(t, result.Rejected)
	require.Equal(t, 3, result.Series.NumRows())
	assert.Equal(t, "2020-12-14", result.Series.Cell(0, "Collected Date"))
	assert.Equal(t, "2020-12-15", result.Series.Cell(2, "Collected Date"))
}

func TestCombineHeaderOnlyRunContributesNothing(t *testing.T) {
	// A processed file holding just its header row matches the template
	// schema; it must pass through the batch quietly, not abort it.
	headerOnly := NewTable(combineColumns...)
	day := NewTable(combineColumns...)
	combineRow(t, day, "DEC 2020", 46.2, 48.9, "2020-12-15", 202012)

	batch := &CombineBatch{
		TemplateColumns: combineColumns,
		Runs: []CombineRun{
			{Name: "header-only.csv", Table: headerOnly},
			{Name: "full.csv", Table: day},
		},
	}

	result, err := Combine(batch, combineTestOptions())
	require.NoError(t, err)
	assert.Empty(t, result.Rejected)
	require.Equal(t, 1, result.Series.NumRows())
	assert.Equal(t, "DEC 2020", result.Series.Cell(0, "Month"))
}

func TestCombineRejectsSchemaDrift(t *testing.T) {
	good := NewTable(combineColumns...)
	combineRow(t, good, "DEC 2020", 46.2, 48.9, "2020-12-14", 202012)

	drifted := NewTable("Month", "WTI", "Brent", "Collected Date")
	require.NoError(t, drifted.AppendRow("DEC 2020", 46.5, 49.2, "2020-12-15"))

	batch := &CombineBatch{
		TemplateColumns: combineColumns,
		Runs: []CombineRun{
			{Name: "good.csv", Table: good},
			{Name: "drifted.csv", Table: drifted},
		},
	}

	result, err := Combine(batch, combineTestOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"drifted.csv"}, result.Rejected)
	assert.Equal(t, 1, result.Series.NumRows(), "the drifted run contributes no rows")
}

func TestCombineDedupeKeepsLatestRun(t *testing.T) {
	day1 := NewTable(combineColumns...)
	combineRow(t, day1, "DEC 2020", 46.2, 48.9, "2020-12-15", 202012)
	combineRow(t, day1, "JAN 2021", 47.0, 50.1, "2020-12-15", 202101)

	// a re-capture of the same day with corrected settles
	day1v2 := NewTable(combineColumns...)
	combineRow(t, day1v2, "DEC 2020", 46.4, 49.0, "2020-12-15", 202012)

	batch := &CombineBatch{
		TemplateColumns: combineColumns,
		Runs: []CombineRun{
			{Name: "v1", Table: day1},
			{Name: "v2", Table: day1v2},
		},
	}

	result, err := Combine(batch, combineTestOptions())
	require.NoError(t, err)
	require.Equal(t, 2, result.Series.NumRows())
	assert.Equal(t, 46.4, result.Series.Cell(0, "WTI"), "the later run's row replaces the earlier in place")
	assert.Equal(t, "JAN 2021", result.Series.Cell(1, "Month"))
}

func TestCombineContextTab(t *testing.T) {
	day1 := NewTable(combineColumns...)
	combineRow(t, day1, "DEC 2020", 46.2, 48.9, "2020-12-16", 202012)
	day2 := NewTable(combineColumns...)
	combineRow(t, day2, "DEC 2020", 46.5, 49.2, "2020-12-14", 202012)

	batch := &CombineBatch{
		TemplateColumns: combineColumns,
		Runs: []CombineRun{
			{Name: "a", Table: day1},
			{Name: "b", Table: day2},
		},
	}

	result, err := Combine(batch, combineTestOptions())
	require.NoError(t, err)

	context := result.Context
	require.NotNil(t, context)
	assert.Equal(t, []string{"Name", "Value"}, context.Columns)
	assert.Equal(t, "Source", context.Cell(0, "Name"))
	assert.Equal(t, "CME Group (Prior Settle)", context.Cell(0, "Value"))
	assert.Equal(t, "2020-12-14", context.Cell(1, "Value"), "first date is the minimum across runs")
	assert.Equal(t, "2020-12-16", context.Cell(2, "Value"))
}

func TestCombineEmptyTemplateFails(t *testing.T) {
	_, err := Combine(&CombineBatch{}, combineTestOptions())
	assert.Error(t, err)
}
