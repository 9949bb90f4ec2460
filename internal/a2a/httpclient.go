package a2a

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
)

var _ Client = (*HTTPClient)(nil)

// DefaultTimeout is the per-request limit used unless WithTimeout says
// otherwise.
const DefaultTimeout = 2 * time.Minute

const (
	maxResponseBytes = 8 << 20
	maxErrorBytes    = 4096
)

// HTTPClient talks to stage agents: JSON-RPC calls go as POSTs to the
// agent endpoint, and the card is fetched with a plain GET.
type HTTPClient struct {
	http   *http.Client
	nextID atomic.Int64
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout overrides DefaultTimeout. Zero means no limit, leaving the
// caller's context in charge.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) { c.http.Timeout = d }
}

// WithHTTPClient swaps in hc, e.g. an httptest server's client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) { c.http = hc }
}

func NewHTTPClient(opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{http: &http.Client{Timeout: DefaultTimeout}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendMessage submits a stage request. Agents answer once the task is
// terminal unless the request asks for a non-blocking send.
func (c *HTTPClient) SendMessage(ctx context.Context, endpoint string, req SendMessageRequest) (*Task, error) {
	return invoke[Task](ctx, c, endpoint, MethodSendMessage, req)
}

// GetTask polls a task the agent is still working on.
func (c *HTTPClient) GetTask(ctx context.Context, endpoint string, req GetTaskRequest) (*Task, error) {
	return invoke[Task](ctx, c, endpoint, MethodGetTask, req)
}

// CancelTask asks the agent to stop a task. Terminal tasks come back as an
// RPCError carrying ErrCodeTaskNotCancelable.
func (c *HTTPClient) CancelTask(ctx context.Context, endpoint string, req CancelTaskRequest) (*Task, error) {
	return invoke[Task](ctx, c, endpoint, MethodCancelTask, req)
}

// DiscoverAgent reads the card an agent publishes at AgentCardPath.
func (c *HTTPClient) DiscoverAgent(ctx context.Context, baseURL string) (*AgentCard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+AgentCardPath, nil)
	if err != nil {
		return nil, fmt.Errorf("a2a: discover agent: %w", err)
	}
	raw, err := c.exchange(req)
	if err != nil {
		return nil, fmt.Errorf("a2a: discover agent: %w", err)
	}

	var card AgentCard
	if err := json.Unmarshal(raw, &card); err != nil {
		return nil, fmt.Errorf("a2a: decode agent card: %w", err)
	}
	return &card, nil
}

// invoke runs one JSON-RPC round trip and decodes the result as T.
func invoke[T any](ctx context.Context, c *HTTPClient, endpoint, method string, params any) (*T, error) {
	rpcReq, err := newRPCRequest(c.nextID.Add(1), method, params)
	if err != nil {
		return nil, fmt.Errorf("a2a: %s: %w", method, err)
	}
	body, err := json.Marshal(rpcReq)
	if err != nil {
		return nil, fmt.Errorf("a2a: %s: marshal request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("a2a: %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.exchange(req)
	if err != nil {
		return nil, fmt.Errorf("a2a: %s: %w", method, err)
	}

	var resp JSONRPCResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("a2a: %s: decode response: %w", method, err)
	}
	if e := resp.Error; e != nil {
		return nil, &RPCError{Method: method, Code: e.Code, Message: e.Message, Data: e.Data}
	}

	out := new(T)
	if len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return nil, fmt.Errorf("a2a: %s: decode result: %w", method, err)
		}
	}
	return out, nil
}

func newRPCRequest(id int64, method string, params any) (JSONRPCRequest, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return JSONRPCRequest{}, fmt.Errorf("marshal params: %w", err)
	}
	return JSONRPCRequest{JSONRPC: JSONRPCVersion, ID: id, Method: method, Params: raw}, nil
}

// exchange sends req and returns the body of a 200 response. Any other
// status becomes an error quoting the start of the body.
func (c *HTTPClient) exchange(req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return raw, nil
}
