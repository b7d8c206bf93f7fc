package outputs

import (
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
)

// ApplyFilter runs a jq expression over report rows before they reach the
// file providers. The rows are round-tripped through JSON so the filter sees
// plain maps regardless of the row struct type. A filter producing a single
// array replaces the row set; multiple outputs are collected into one slice.
func ApplyFilter(rows any, expression string) (any, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("failed to parse filter expression: %w", err)
	}

	encoded, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rows for filtering: %w", err)
	}

	var input any
	if err := json.Unmarshal(encoded, &input); err != nil {
		return nil, fmt.Errorf("failed to decode rows for filtering: %w", err)
	}

	var outputs []any
	iter := query.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			if haltErr, ok := err.(*gojq.HaltError); ok && haltErr.Value() == nil {
				break
			}
			return nil, fmt.Errorf("filter evaluation failed: %w", err)
		}
		outputs = append(outputs, v)
	}

	if len(outputs) == 1 {
		return outputs[0], nil
	}
	return outputs, nil
}
