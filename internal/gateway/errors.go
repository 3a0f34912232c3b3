package gateway

import "fmt"

// Codes used for failures that never reached a backend.
const (
	CodeTransport = -32000 // request could not be delivered or answered
	CodeEncoding  = -32001 // parameters could not be encoded
)

// GatewayError is a failed command call: either the transport failed or the
// backend answered with an error payload.
type GatewayError struct {
	Command string
	Code    int
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s failed (code %d): %s", e.Command, e.Code, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// SchemaValidationError means a command succeeded but its result did not
// have the expected shape.
type SchemaValidationError struct {
	Command string
	Err     error
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("%s returned an unexpected result: %v", e.Command, e.Err)
}

func (e *SchemaValidationError) Unwrap() error {
	return e.Err
}
