package consumer

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/withObsrvr/settlement-etl-workflow/processor"
)

func envelopeMessage(t *testing.T, env *processor.TableEnvelope) processor.Message {
	t.Helper()
	payload, err := json.Marshal(env)
	require.NoError(t, err)
	return processor.Message{Payload: payload}
}

func processedDayTable(t *testing.T) *processor.Table {
	t.Helper()
	table := processor.NewTable("Month", "Brent", "WTI", "Collected Date", "Lookup-Key")
	require.NoError(t, table.AppendRow("DEC 2020", 48.9, 46.2, "2020-12-15", "2020-12-15 - 202012"))
	require.NoError(t, table.AppendRow("JAN 2021", 50.1, nil, "2020-12-15", "2020-12-15 - 202101"))
	return table
}

func TestSaveToCSVRequiresDirPath(t *testing.T) {
	_, err := NewSaveToCSV(map[string]interface{}{})
	assert.Error(t, err)
}

func TestSaveToCSVWritesVersionedFile(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewSaveToCSV(map[string]interface{}{"dir_path": dir})
	require.NoError(t, err)

	msg := envelopeMessage(t, &processor.TableEnvelope{RunID: "2020-12-15", Table: processedDayTable(t)})
	require.NoError(t, sink.Process(context.Background(), msg))

	path := filepath.Join(dir, "2020-12-15 ~ Prior Settle ~ v1.csv")
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, []string{"Month", "Brent", "WTI", "Collected Date", "Lookup-Key"}, records[0])
	assert.Equal(t, []string{"DEC 2020", "48.9", "46.2", "2020-12-15", "2020-12-15 - 202012"}, records[1])
	assert.Equal(t, "", records[2][2], "missing cells render empty")
}

func TestSaveToCSVRerunBumpsVersion(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewSaveToCSV(map[string]interface{}{"dir_path": dir})
	require.NoError(t, err)

	msg := envelopeMessage(t, &processor.TableEnvelope{RunID: "2020-12-15", Table: processedDayTable(t)})
	require.NoError(t, sink.Process(context.Background(), msg))
	require.NoError(t, sink.Process(context.Background(), msg))

	_, err = os.Stat(filepath.Join(dir, "2020-12-15 ~ Prior Settle ~ v1.csv"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "2020-12-15 ~ Prior Settle ~ v2.csv"))
	assert.NoError(t, err, "a rerun on the same day writes a new version, never clobbers")
}
