package gateway

import (
	"context"
	"encoding/json"
	"errors"

	"battlelog/internal/backend"
)

// Dispatcher runs a command in-process. *backend.Handler implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, command string, raw json.RawMessage) (interface{}, error)
}

// LocalTransport invokes commands on an in-process backend. Parameters and
// results still pass through JSON so callers see exactly what the HTTP
// transport would give them.
type LocalTransport struct {
	backend Dispatcher
}

// NewLocalTransport creates a transport over d.
func NewLocalTransport(d Dispatcher) *LocalTransport {
	return &LocalTransport{backend: d}
}

// Invoke implements Invoker.
func (t *LocalTransport) Invoke(ctx context.Context, command string, params interface{}) (json.RawMessage, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, &GatewayError{Command: command, Code: CodeEncoding, Message: "failed to encode params", Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, transportError(command, "call abandoned", err)
	}

	result, err := t.backend.Dispatch(ctx, command, raw)
	if err != nil {
		var cerr *backend.CommandError
		if errors.As(err, &cerr) {
			return nil, &GatewayError{Command: command, Code: cerr.Code, Message: cerr.Message, Err: err}
		}
		return nil, transportError(command, "dispatch failed", err)
	}

	out, err := json.Marshal(result)
	if err != nil {
		return nil, &GatewayError{Command: command, Code: CodeEncoding, Message: "failed to encode result", Err: err}
	}
	return out, nil
}
