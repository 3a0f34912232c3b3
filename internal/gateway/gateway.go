// Package gateway is the typed client side of the battlelog command set.
//
// A command is a name plus a parameter object; its result is decoded and
// validated against the expected Go type before it reaches the caller, so
// application code never sees a malformed response. Transports (in-process
// or HTTP) implement Invoker.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
)

// Invoker sends one command and returns its raw JSON result.
// Implementations return *GatewayError on failure.
type Invoker interface {
	Invoke(ctx context.Context, command string, params interface{}) (json.RawMessage, error)
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(ctx context.Context, command string, params interface{}) (json.RawMessage, error)

// Invoke calls f.
func (f InvokerFunc) Invoke(ctx context.Context, command string, params interface{}) (json.RawMessage, error) {
	return f(ctx, command, params)
}

// Command is a named backend operation with parameter type P and result type R.
type Command[P, R any] struct {
	Name string
}

// Call invokes the command and returns its validated result.
func (c Command[P, R]) Call(ctx context.Context, inv Invoker, params P) (R, error) {
	var zero R

	raw, err := inv.Invoke(ctx, c.Name, params)
	if err != nil {
		return zero, err
	}

	var out R
	if err := decodeResult(raw, &out); err != nil {
		return zero, &SchemaValidationError{Command: c.Name, Err: err}
	}
	if err := validateResult(out); err != nil {
		return zero, &SchemaValidationError{Command: c.Name, Err: err}
	}
	return out, nil
}

// nullable is implemented by result types that accept a JSON null.
type nullable interface {
	acceptsNull()
}

// Null is the result of commands that must answer with JSON null.
type Null struct{}

func (Null) acceptsNull() {}

// UnmarshalJSON accepts only null.
func (*Null) UnmarshalJSON(data []byte) error {
	if !isNull(data) {
		return fmt.Errorf("expected null, got %s", truncate(data))
	}
	return nil
}

// Ignored is the result of commands whose answer is not inspected.
type Ignored struct{}

func (Ignored) acceptsNull() {}

// UnmarshalJSON accepts any value.
func (*Ignored) UnmarshalJSON([]byte) error { return nil }

var errUnexpectedNull = errors.New("unexpected null result")

func decodeResult(raw json.RawMessage, out interface{}) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("null")
	}
	if isNull(raw) {
		if _, ok := reflect.ValueOf(out).Elem().Interface().(nullable); !ok {
			return errUnexpectedNull
		}
	}
	return json.Unmarshal(raw, out)
}

var validate = validator.New()

// validateResult applies validator tags to struct results and to every
// element of slice results. Strings, alone or in a slice, must be non-empty.
func validateResult(v interface{}) error {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Struct:
		return validate.Struct(v)
	case reflect.String:
		return validate.Var(v, "required")
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil
		}
		for i := 0; i < rv.Len(); i++ {
			if err := validateResult(rv.Index(i).Interface()); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
	}
	return nil
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

func truncate(data []byte) string {
	const max = 64
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}
