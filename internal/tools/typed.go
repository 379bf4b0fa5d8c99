package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Args is implemented by tool argument structs.
type Args interface {
	Validate() error
}

var reflector = &jsonschema.Reflector{
	DoNotReference: true,
	ExpandedStruct: true,
}

// Schema returns the JSON schema for the argument type A.
func Schema[A any]() json.RawMessage {
	var zero A
	s := reflector.Reflect(&zero)
	s.Version = ""
	s.ID = ""
	out, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("tools: failed to marshal schema: %v", err))
	}
	return out
}

// Typed adapts fn into an ExecutorFunc. Arguments are decoded strictly and
// validated before fn runs.
func Typed[A any, PA interface {
	*A
	Args
}, R any](fn func(ctx context.Context, args A) (R, error)) ExecutorFunc {
	return func(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
		var args A
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&args); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
		if err := PA(&args).Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
		result, err := fn(ctx, args)
		if err != nil {
			return nil, err
		}
		return json.Marshal(result)
	}
}
