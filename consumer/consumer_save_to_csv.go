package consumer

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/withObsrvr/settlement-etl-workflow/processor"
	"github.com/withObsrvr/settlement-etl-workflow/utils"
)

// SaveToCSV writes each day's processed table to a versioned CSV file in
// the output directory, named "<date> ~ <base name> ~ v<N>.csv" so reruns
// within a day never clobber an earlier output.
type SaveToCSV struct {
	dirPath    string
	baseName   string
	processors []processor.Processor
}

func NewSaveToCSV(config map[string]interface{}) (*SaveToCSV, error) {
	dirPath, ok := config["dir_path"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid configuration: missing 'dir_path'")
	}
	baseName, ok := config["base_name"].(string)
	if !ok {
		baseName = "Prior Settle"
	}

	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &SaveToCSV{dirPath: dirPath, baseName: baseName}, nil
}

func (c *SaveToCSV) Subscribe(proc processor.Processor) {
	c.processors = append(c.processors, proc)
}

func (c *SaveToCSV) Process(ctx context.Context, msg processor.Message) error {
	env, err := processor.ExtractEnvelope(msg)
	if err != nil {
		return err
	}

	version, err := utils.NextCaptureVersion(c.dirPath, env.RunID, c.baseName)
	if err != nil {
		return fmt.Errorf("failed to pick output version: %w", err)
	}
	path := filepath.Join(c.dirPath, utils.CaptureFileName(env.RunID, c.baseName, version, "csv"))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(env.Table.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	record := make([]string, len(env.Table.Columns))
	for _, row := range env.Table.Rows {
		for i, cell := range row {
			record[i] = cellText(cell)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}

	log.Printf("Wrote %d rows to %s", env.Table.NumRows(), path)
	return nil
}
