package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/sdfsched/internal/ir"
	"github.com/roach88/sdfsched/internal/schedule"
)

// marshalResult converts a result to canonical JSON TEXT for storage.
// A nil result (failed run) is stored as the empty string.
func marshalResult(res *schedule.Result) (string, error) {
	if res == nil {
		return "", nil
	}
	data, err := ir.CanonicalJSON(res)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(data), nil
}

// unmarshalResult parses canonical JSON TEXT back into a result.
func unmarshalResult(data string) (*schedule.Result, error) {
	if data == "" {
		return nil, nil
	}
	var res schedule.Result
	if err := json.Unmarshal([]byte(data), &res); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &res, nil
}
