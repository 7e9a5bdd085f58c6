package main

import (
	"context"
	"log"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	etlProcessor "github.com/withObsrvr/settlement-etl-workflow/processor"
	"github.com/withObsrvr/settlement-etl-workflow/utils"
)

// ProcessedDirectorySourceAdapter feeds the combine pipeline: it loads
// every processed daily table from a directory plus the reference column
// template, and emits one batch message with all of them in date order.
// Schema validation happens downstream in the combiner, which reports
// rejects by name; this adapter only reads files.
type ProcessedDirectorySourceAdapter struct {
	config     ProcessedDirectoryConfig
	processors []etlProcessor.Processor
}

type ProcessedDirectoryConfig struct {
	ProcessedDir string
	TemplatePath string
	ExcludeWord  string
}

func NewProcessedDirectorySourceAdapter(config map[string]interface{}) (SourceAdapter, error) {
	var pdConfig ProcessedDirectoryConfig

	if processedDir, ok := config["processed_dir"].(string); ok {
		pdConfig.ProcessedDir = processedDir
	} else {
		return nil, errors.New("processed_dir must be specified")
	}
	if templatePath, ok := config["template_path"].(string); ok {
		pdConfig.TemplatePath = templatePath
	} else {
		return nil, errors.New("template_path must be specified")
	}

	// Combined outputs live in the same directory; skip anything whose name
	// contains the exclude word.
	pdConfig.ExcludeWord = "combined"
	if excludeWord, ok := config["exclude_word"].(string); ok {
		pdConfig.ExcludeWord = excludeWord
	}

	return &ProcessedDirectorySourceAdapter{config: pdConfig}, nil
}

func (adapter *ProcessedDirectorySourceAdapter) Subscribe(proc etlProcessor.Processor) {
	adapter.processors = append(adapter.processors, proc)
}

func (adapter *ProcessedDirectorySourceAdapter) Run(ctx context.Context) error {
	templateColumns, err := adapter.loadTemplateColumns()
	if err != nil {
		return errors.Wrap(err, "loading reference template")
	}

	captures, err := utils.LatestCapturePerDate(adapter.config.ProcessedDir, "csv")
	if err != nil {
		return errors.Wrap(err, "scanning processed directory")
	}

	batch := etlProcessor.CombineBatch{TemplateColumns: templateColumns}
	for _, capture := range captures {
		if err := ctx.Err(); err != nil {
			return err
		}
		if adapter.config.ExcludeWord != "" &&
			strings.Contains(strings.ToLower(capture.Name), adapter.config.ExcludeWord) {
			continue
		}

		table, err := readCSVTable(capture.Path)
		if err != nil {
			log.Printf("Error reading processed table %s: %v", capture.Name, err)
			continue
		}
		batch.Runs = append(batch.Runs, etlProcessor.CombineRun{
			Name:  strings.TrimSuffix(capture.Name, filepath.Ext(capture.Name)),
			Table: table,
		})
	}

	if len(batch.Runs) == 0 {
		return errors.Errorf("no processed tables found in %s", adapter.config.ProcessedDir)
	}
	log.Printf("Loaded %d processed tables for combining", len(batch.Runs))

	return etlProcessor.ForwardToProcessors(ctx, &batch, adapter.processors)
}

func (adapter *ProcessedDirectorySourceAdapter) loadTemplateColumns() ([]string, error) {
	ext := strings.ToLower(filepath.Ext(adapter.config.TemplatePath))
	if ext == ".xlsx" {
		return utils.ReadHeaderRow(adapter.config.TemplatePath)
	}
	table, err := readCSVTable(adapter.config.TemplatePath)
	if err != nil {
		return nil, err
	}
	return table.Columns, nil
}
