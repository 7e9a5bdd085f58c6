package processor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplodeColumn(t *testing.T) {
	table := NewTable("month", "hi_low_limit")
	require.NoError(t, table.AppendRow("DEC 2020", "52.23/45.77"))
	require.NoError(t, table.AppendRow("JAN 2021", "53.10/46.50"))

	err := ExplodeColumn(table, "hi_low_limit", []string{"limit_high", "limit_low"}, func(s string) []string {
		return strings.SplitN(s, "/", 2)
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"month", "limit_high", "limit_low"}, table.Columns)
	assert.Equal(t, "52.23", table.Cell(0, "limit_high"))
	assert.Equal(t, "45.77", table.Cell(0, "limit_low"))
	assert.Equal(t, "46.50", table.Cell(1, "limit_low"))
}

func TestExplodeColumnArityMismatchFailsWholeTable(t *testing.T) {
	table := NewTable("month", "hi_low_limit")
	require.NoError(t, table.AppendRow("DEC 2020", "52.23/45.77"))
	require.NoError(t, table.AppendRow("JAN 2021", "no limit published"))

	err := ExplodeColumn(table, "hi_low_limit", []string{"limit_high", "limit_low"}, func(s string) []string {
		return strings.Split(s, "/")
	})
	require.Error(t, err)
	assert.True(t, IsSchemaError(err))

	// the table is left untouched on failure
	assert.Equal(t, []string{"month", "hi_low_limit"}, table.Columns)
	assert.Equal(t, "no limit published", table.Cell(1, "hi_low_limit"))
}

func TestExplodeColumnValidation(t *testing.T) {
	split := func(s string) []string { return []string{s} }

	table := NewTable("month", "taken")

	err := ExplodeColumn(table, "absent", []string{"x"}, split)
	assert.True(t, IsSchemaError(err))

	err = ExplodeColumn(table, "month", nil, split)
	assert.True(t, IsSchemaError(err))

	err = ExplodeColumn(table, "month", []string{"taken"}, split)
	assert.True(t, IsSchemaError(err))
}

func TestExplodeColumnDestMayReuseSourceName(t *testing.T) {
	table := NewTable("updated")
	require.NoError(t, table.AppendRow("a b"))

	err := ExplodeColumn(table, "updated", []string{"updated", "extra"}, strings.Fields)
	require.NoError(t, err)
	assert.Equal(t, []string{"updated", "extra"}, table.Columns)
	assert.Equal(t, "a", table.Cell(0, "updated"))
	assert.Equal(t, "b", table.Cell(0, "extra"))
}
