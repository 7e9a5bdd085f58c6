package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	etlProcessor "github.com/withObsrvr/settlement-etl-workflow/processor"
)

// collectorProcessor records every envelope it receives.
type collectorProcessor struct {
	envelopes []*etlProcessor.TableEnvelope
}

func (c *collectorProcessor) Subscribe(etlProcessor.Processor) {}

func (c *collectorProcessor) Process(ctx context.Context, msg etlProcessor.Message) error {
	env, err := etlProcessor.ExtractEnvelope(msg)
	if err != nil {
		return err
	}
	c.envelopes = append(c.envelopes, env)
	return nil
}

func writeCaptureCSV(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

const captureCSV = "Metric ID,Month,Prior Settle\nBrent,DEC 2020,48.90\n"

func TestFSCaptureSourceAdapterRequiresCapturesDir(t *testing.T) {
	_, err := NewFSCaptureSourceAdapter(map[string]interface{}{})
	assert.Error(t, err)
}

func TestFSCaptureSourceAdapterEmitsLatestVersionPerDate(t *testing.T) {
	dir := t.TempDir()
	writeCaptureCSV(t, dir, "2020-12-14 ~ Prior Settle ~ v1.csv", captureCSV)
	writeCaptureCSV(t, dir, "2020-12-15 ~ Prior Settle ~ v1.csv", "stale")
	writeCaptureCSV(t, dir, "2020-12-15 ~ Prior Settle ~ v2.csv",
		"Metric ID,Month,Prior Settle\nBrent,DEC 2020,49.10\n")

	adapter, err := NewFSCaptureSourceAdapter(map[string]interface{}{"captures_dir": dir})
	require.NoError(t, err)

	collector := &collectorProcessor{}
	adapter.Subscribe(collector)
	require.NoError(t, adapter.Run(context.Background()))

	require.Len(t, collector.envelopes, 2)
	assert.Equal(t, "2020-12-14", collector.envelopes[0].RunID)
	assert.Equal(t, "2020-12-15", collector.envelopes[1].RunID)
	assert.Equal(t, "2020-12-15 ~ Prior Settle ~ v2.csv", collector.envelopes[1].Source)
	assert.Equal(t, "49.10", collector.envelopes[1].Table.Cell(0, "Prior Settle"))
}

func TestFSCaptureSourceAdapterOnlyLatest(t *testing.T) {
	dir := t.TempDir()
	writeCaptureCSV(t, dir, "2020-12-14 ~ Prior Settle ~ v1.csv", captureCSV)
	writeCaptureCSV(t, dir, "2020-12-15 ~ Prior Settle ~ v1.csv", captureCSV)

	adapter, err := NewFSCaptureSourceAdapter(map[string]interface{}{
		"captures_dir": dir,
		"only_latest":  true,
	})
	require.NoError(t, err)

	collector := &collectorProcessor{}
	adapter.Subscribe(collector)
	require.NoError(t, adapter.Run(context.Background()))

	require.Len(t, collector.envelopes, 1)
	assert.Equal(t, "2020-12-15", collector.envelopes[0].RunID)
}

func TestFSCaptureSourceAdapterSkipsBadCaptures(t *testing.T) {
	dir := t.TempDir()
	writeCaptureCSV(t, dir, "2020-12-14 ~ Prior Settle ~ v1.csv", "")
	writeCaptureCSV(t, dir, "2020-12-15 ~ Prior Settle ~ v1.csv", captureCSV)

	adapter, err := NewFSCaptureSourceAdapter(map[string]interface{}{"captures_dir": dir})
	require.NoError(t, err)

	collector := &collectorProcessor{}
	adapter.Subscribe(collector)
	require.NoError(t, adapter.Run(context.Background()), "an unreadable capture is skipped, not fatal")

	require.Len(t, collector.envelopes, 1)
	assert.Equal(t, "2020-12-15", collector.envelopes[0].RunID)
}

func TestFSCaptureSourceAdapterEmptyDirFails(t *testing.T) {
	adapter, err := NewFSCaptureSourceAdapter(map[string]interface{}{"captures_dir": t.TempDir()})
	require.NoError(t, err)
	assert.Error(t, adapter.Run(context.Background()))
}
