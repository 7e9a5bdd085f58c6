package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLastUpdatedExploderExplode(t *testing.T) {
	exploder, err := NewLastUpdatedExploder(nil)
	require.NoError(t, err)

	table := NewTable("metric_id", "month", "prior_settle", "updated", "collected_timestamp")
	require.NoError(t, table.AppendRow("Brent", "DEC 2020", "48.90", "14:15:00 EST Tuesday 15 Dec 2020", "2020-12-15 14:45:10"))
	require.NoError(t, table.AppendRow("Brent", "JAN 2021", "50.10", "-", "2020-12-15 14:45:10"))

	out, err := exploder.Explode(table)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"metric_id", "month", "prior_settle",
		"last_updated_date", "last_updated_time_local", "last_updated_time_zone",
		"collected_date",
	}, out.Columns)

	assert.Equal(t, "2020-12-15", out.Cell(0, "last_updated_date"))
	assert.Equal(t, "02:15 PM", out.Cell(0, "last_updated_time_local"))
	assert.Equal(t, "EST", out.Cell(0, "last_updated_time_zone"))
	assert.Equal(t, "2020-12-15", out.Cell(0, "collected_date"))

	// unparseable updated strings get placeholders, not failures
	assert.Equal(t, "_", out.Cell(1, "last_updated_date"))
	assert.Equal(t, "-", out.Cell(1, "last_updated_time_local"))

	// input untouched
	assert.Contains(t, table.Columns, "updated")
}

func TestLastUpdatedExploderKeepsExistingCollectedDate(t *testing.T) {
	exploder, err := NewLastUpdatedExploder(nil)
	require.NoError(t, err)

	table := NewTable("month", "updated", "collected_timestamp", "collected_date")
	require.NoError(t, table.AppendRow("DEC 2020", "-", "2020-12-15 14:45:10", "2020-12-14"))

	out, err := exploder.Explode(table)
	require.NoError(t, err)

	assert.False(t, out.HasColumn("collected_timestamp"))
	assert.Equal(t, "2020-12-14", out.Cell(0, "collected_date"), "a pre-derived date is authoritative")
}

func TestLastUpdatedExploderMissingUpdatedColumn(t *testing.T) {
	exploder, err := NewLastUpdatedExploder(nil)
	require.NoError(t, err)

	table := NewTable("month", "collected_timestamp")
	_, err = exploder.Explode(table)
	require.Error(t, err)
	assert.True(t, IsSchemaError(err))
}
