package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/withObsrvr/settlement-etl-workflow/processor"
)

// StdoutSink prints each payload it receives as a line of JSON: a daily
// table envelope or a combine result, depending on where it is wired.
// Useful for checking what a pipeline emits without touching the real
// outputs.
type StdoutSink struct{}

func NewStdoutSink() *StdoutSink {
	return &StdoutSink{}
}

func (s *StdoutSink) Process(ctx context.Context, msg processor.Message) error {
	var output []byte
	switch payload := msg.Payload.(type) {
	case []byte:
		output = payload
	default:
		var err error
		output, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("StdoutSink: error marshaling payload: %w", err)
		}
	}

	_, err := os.Stdout.Write(append(output, '\n'))
	return err
}

// Subscribe is a no-op; StdoutSink is a terminal stage.
func (s *StdoutSink) Subscribe(proc processor.Processor) {
}
