package processor

import (
	"context"
	"encoding/json"
	"fmt"
)

// Processor defines the interface for processing messages.
type Processor interface {
	Process(context.Context, Message) error
	Subscribe(Processor)
}

type ProcessorConfig struct {
	Type   string                 `yaml:"type"`
	Config map[string]interface{} `yaml:"config"`
}

// Message encapsulates the payload to be processed with optional metadata.
type Message struct {
	Payload  interface{}            `json:"payload"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// TableEnvelope is the payload exchanged by the daily pipeline stages: one
// collection run's table plus enough metadata to trace it back to the
// capture it came from.
type TableEnvelope struct {
	RunID  string `json:"run_id"`           // collection date of the capture
	Source string `json:"source,omitempty"` // file the capture was read from
	Table  *Table `json:"table"`
}

// ExtractEnvelope decodes a TableEnvelope from a message's JSON payload.
func ExtractEnvelope(msg Message) (*TableEnvelope, error) {
	payloadBytes, ok := msg.Payload.([]byte)
	if !ok {
		return nil, fmt.Errorf("expected []byte type for message.Payload, got %T", msg.Payload)
	}

	var env TableEnvelope
	if err := json.Unmarshal(payloadBytes, &env); err != nil {
		return nil, fmt.Errorf("error unmarshaling table envelope: %w", err)
	}
	if env.Table == nil {
		return nil, fmt.Errorf("table envelope for run %s has no table", env.RunID)
	}
	return &env, nil
}

// ForwardToProcessors marshals the payload and forwards it to all downstream processors
func ForwardToProcessors(ctx context.Context, payload interface{}, processors []Processor) error {
	jsonBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshaling payload: %w", err)
	}

	for _, processor := range processors {
		if err := processor.Process(ctx, Message{Payload: jsonBytes}); err != nil {
			return fmt.Errorf("error in processor chain: %w", err)
		}
	}

	return nil
}
