package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"

	"github.com/broady/tyrest/tyrestgen/ir"
)

// Query runs a jq expression over the JSON form of api and returns every
// value it emits, e.g. ".endpoints[] | .handler".
func Query(ctx context.Context, api *ir.API, expression string) ([]any, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("sink: parse query: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("sink: compile query: %w", err)
	}

	data, err := json.Marshal(api)
	if err != nil {
		return nil, fmt.Errorf("sink: encode model: %w", err)
	}
	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("sink: decode model: %w", err)
	}

	results := []any{}
	iter := code.RunWithContext(ctx, input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, fmt.Errorf("sink: evaluate query: %w", err)
		}
		results = append(results, v)
	}
	return results, nil
}
