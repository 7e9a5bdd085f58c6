package main

import (
	"context"
	"log"

	"github.com/pkg/errors"
	etlProcessor "github.com/withObsrvr/settlement-etl-workflow/processor"
	"github.com/withObsrvr/settlement-etl-workflow/utils"
)

// FSCaptureSourceAdapter feeds the daily pipeline from a directory of raw
// capture CSVs written by the scrape job, named
// "<date> ~ <name> ~ v<N>.csv". Only the highest version per date is used.
// A capture that fails processing is logged and skipped; the rest of the
// batch still runs.
type FSCaptureSourceAdapter struct {
	config     FSCaptureConfig
	processors []etlProcessor.Processor
}

type FSCaptureConfig struct {
	CapturesDir string
	OnlyLatest  bool
}

func NewFSCaptureSourceAdapter(config map[string]interface{}) (SourceAdapter, error) {
	var fsConfig FSCaptureConfig

	if capturesDir, ok := config["captures_dir"].(string); ok {
		fsConfig.CapturesDir = capturesDir
	} else {
		return nil, errors.New("captures_dir must be specified")
	}

	// only_latest restricts the run to the most recent capture date, for
	// the daily incremental job; the default replays every date found.
	if onlyLatest, ok := config["only_latest"].(bool); ok {
		fsConfig.OnlyLatest = onlyLatest
	}

	return &FSCaptureSourceAdapter{config: fsConfig}, nil
}

func (adapter *FSCaptureSourceAdapter) Subscribe(proc etlProcessor.Processor) {
	adapter.processors = append(adapter.processors, proc)
}

func (adapter *FSCaptureSourceAdapter) Run(ctx context.Context) error {
	captures, err := utils.LatestCapturePerDate(adapter.config.CapturesDir, "csv")
	if err != nil {
		return errors.Wrap(err, "scanning captures directory")
	}
	if len(captures) == 0 {
		return errors.Errorf("no capture files found in %s", adapter.config.CapturesDir)
	}
	if adapter.config.OnlyLatest {
		captures = captures[len(captures)-1:]
	}

	log.Printf("Processing %d captures from %s", len(captures), adapter.config.CapturesDir)

	processed, failed := 0, 0
	for _, capture := range captures {
		if err := ctx.Err(); err != nil {
			return err
		}

		table, err := readCSVTable(capture.Path)
		if err != nil {
			log.Printf("Error reading capture %s: %v", capture.Name, err)
			failed++
			continue
		}

		env := &etlProcessor.TableEnvelope{
			RunID:  capture.Date,
			Source: capture.Name,
			Table:  table,
		}
		if err := etlProcessor.ForwardToProcessors(ctx, env, adapter.processors); err != nil {
			// One bad capture must not stop the batch.
			log.Printf("Error processing capture %s: %v", capture.Name, err)
			failed++
			continue
		}
		processed++
	}

	log.Printf("Capture processing complete: %d processed, %d failed", processed, failed)
	return nil
}
