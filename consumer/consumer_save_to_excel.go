package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/withObsrvr/settlement-etl-workflow/processor"
	"github.com/withObsrvr/settlement-etl-workflow/utils"
)

// SaveToExcel writes a combined series to a workbook with the merged data
// on one sheet and the source/date summary on a Context sheet.
type SaveToExcel struct {
	filePath   string
	dataSheet  string
	processors []processor.Processor
}

func NewSaveToExcel(config map[string]interface{}) (*SaveToExcel, error) {
	filePath, ok := config["file_path"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid configuration: missing 'file_path'")
	}
	dataSheet, ok := config["data_sheet"].(string)
	if !ok {
		dataSheet = "Combined_Vertical"
	}

	return &SaveToExcel{filePath: filePath, dataSheet: dataSheet}, nil
}

func (c *SaveToExcel) Subscribe(proc processor.Processor) {
	c.processors = append(c.processors, proc)
}

func (c *SaveToExcel) Process(ctx context.Context, msg processor.Message) error {
	payloadBytes, ok := msg.Payload.([]byte)
	if !ok {
		return fmt.Errorf("expected []byte type for message.Payload, got %T", msg.Payload)
	}

	var result processor.CombineResult
	if err := json.Unmarshal(payloadBytes, &result); err != nil {
		return fmt.Errorf("error unmarshaling combine result: %w", err)
	}
	if result.Series == nil {
		return fmt.Errorf("combine result has no series table")
	}

	writer := utils.NewExcelWriter(c.filePath)
	defer writer.Close()

	if err := writer.WriteSheet(c.dataSheet, result.Series.Columns, result.Series.Rows); err != nil {
		return fmt.Errorf("failed to write %s sheet: %w", c.dataSheet, err)
	}
	if result.Context != nil {
		if err := writer.WriteSheet("Context", result.Context.Columns, result.Context.Rows); err != nil {
			return fmt.Errorf("failed to write Context sheet: %w", err)
		}
	}
	if err := writer.Save(); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	log.Printf("Wrote combined series (%d rows, %d rejected runs) to %s",
		result.Series.NumRows(), len(result.Rejected), c.filePath)
	return nil
}
