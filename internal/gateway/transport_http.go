package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"battlelog/internal/logging"
)

// InvokePath is the endpoint every command is POSTed to.
const InvokePath = "/invoke"

// Request is the wire envelope of one command call.
type Request struct {
	ID      int64           `json:"id"`
	Command string          `json:"command"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is the wire envelope of one command answer. Exactly one of
// Result and Error is meaningful.
type Response struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ErrorObject    `json:"error,omitempty"`
}

// ErrorObject is a command failure on the wire.
type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// HTTPTransport invokes commands on a remote `battlelog serve` instance.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
	nextID  atomic.Int64
}

// NewHTTPTransport creates a transport for the server at baseURL.
func NewHTTPTransport(baseURL string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Invoke implements Invoker.
func (t *HTTPTransport) Invoke(ctx context.Context, command string, params interface{}) (json.RawMessage, error) {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, &GatewayError{Command: command, Code: CodeEncoding, Message: "failed to encode params", Err: err}
	}

	req := Request{
		ID:      t.nextID.Add(1),
		Command: command,
		Params:  rawParams,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &GatewayError{Command: command, Code: CodeEncoding, Message: "failed to encode request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+InvokePath, bytes.NewReader(body))
	if err != nil {
		return nil, transportError(command, "failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, transportError(command, "request failed", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, transportError(command, "failed to read response", err)
	}

	var resp Response
	if err := json.Unmarshal(respBody, &resp); err != nil {
		if httpResp.StatusCode >= 400 {
			return nil, &GatewayError{
				Command: command,
				Code:    CodeTransport,
				Message: fmt.Sprintf("server returned status %d: %s", httpResp.StatusCode, truncate(respBody)),
			}
		}
		return nil, transportError(command, "failed to decode response", err)
	}

	if resp.Error != nil {
		return nil, &GatewayError{Command: command, Code: resp.Error.Code, Message: resp.Error.Message}
	}
	if httpResp.StatusCode >= 400 {
		return nil, &GatewayError{
			Command: command,
			Code:    CodeTransport,
			Message: fmt.Sprintf("server returned status %d", httpResp.StatusCode),
		}
	}
	if resp.ID != req.ID {
		return nil, &GatewayError{
			Command: command,
			Code:    CodeTransport,
			Message: fmt.Sprintf("response id %d does not match request id %d", resp.ID, req.ID),
		}
	}

	logging.GatewayDebug("HTTP %s -> %d bytes", command, len(resp.Result))
	return resp.Result, nil
}

// Ping checks that the server answers its health endpoint.
func (t *HTTPTransport) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway at %s unreachable: %w", t.baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gateway at %s returned status %d", t.baseURL, resp.StatusCode)
	}
	return nil
}

func transportError(command, msg string, err error) *GatewayError {
	return &GatewayError{Command: command, Code: CodeTransport, Message: fmt.Sprintf("%s: %v", msg, err), Err: err}
}
