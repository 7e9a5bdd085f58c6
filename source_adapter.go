package main

import (
	"context"
	"encoding/csv"
	"os"

	"github.com/pkg/errors"
	etlProcessor "github.com/withObsrvr/settlement-etl-workflow/processor"
)

type SourceAdapter interface {
	Run(context.Context) error
	Subscribe(etlProcessor.Processor)
}

type SourceConfig struct {
	Type   string                 `yaml:"type"`
	Config map[string]interface{} `yaml:"config"`
}

// readCSVTable loads a CSV file into a table: first record is the column
// header, every cell is a string.
func readCSVTable(path string) (*etlProcessor.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	if len(records) == 0 {
		return nil, errors.Errorf("file %s is empty", path)
	}

	table := etlProcessor.NewTable(records[0]...)
	for _, record := range records[1:] {
		cells := make([]interface{}, len(record))
		for i, v := range record {
			cells[i] = v
		}
		if err := table.AppendRow(cells...); err != nil {
			return nil, errors.Wrapf(err, "loading %s", path)
		}
	}
	return table, nil
}
