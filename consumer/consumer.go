package consumer

import (
	"context"

	"github.com/withObsrvr/settlement-etl-workflow/processor"
)

// Consumer is a terminal pipeline stage; it implements the same interface
// as a processor so chains can end anywhere.
type Consumer interface {
	Process(context.Context, processor.Message) error
	Subscribe(processor.Processor)
}

type ConsumerConfig struct {
	Type   string                 `yaml:"type"`
	Config map[string]interface{} `yaml:"config"`
}
