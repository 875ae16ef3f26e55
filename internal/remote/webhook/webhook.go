// Package webhook implements the remote mirror over a user-supplied HTTP
// endpoint, typically a spreadsheet-backed web app. The contract is
// fixed: GET returns a JSON transaction array or {"error": string}; POST
// receives the full array and its response body is not inspected.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"tally/internal/core"
	"tally/internal/remote"
)

// The endpoint deployment cannot stream; a megabyte bounds any sane
// ledger while keeping a misbehaving server from ballooning memory.
const maxResponseBytes = 1 << 20

type Client struct {
	url        string
	httpClient *http.Client
}

func New(url string) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewWithHTTPClient is used by tests to substitute the transport.
func NewWithHTTPClient(url string, httpClient *http.Client) *Client {
	return &Client{url: url, httpClient: httpClient}
}

var _ remote.Mirror = (*Client)(nil)

// Fetch reads the full remote transaction list. Every failure mode maps
// to a distinct remote.ErrorKind: transport, status, body parse, script
// error, schema.
func (c *Client) Fetch(ctx context.Context) ([]core.Transaction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, &remote.Error{Kind: remote.KindNetwork, Detail: "build request", Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &remote.Error{Kind: remote.KindNetwork, Detail: "fetch from endpoint", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &remote.Error{
			Kind:   remote.KindHTTPStatus,
			Detail: fmt.Sprintf("endpoint returned status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &remote.Error{Kind: remote.KindNetwork, Detail: "read response body", Err: err}
	}

	// The endpoint may answer with an HTML error page instead of JSON
	// when misdeployed; that is a body error, not a schema error.
	var probe any
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, &remote.Error{Kind: remote.KindBadBody, Detail: "response is not valid JSON", Err: err}
	}
	if obj, ok := probe.(map[string]any); ok {
		if msg, ok := obj["error"].(string); ok {
			return nil, &remote.Error{Kind: remote.KindScriptError, Detail: msg}
		}
	}

	list, err := core.DecodeTransactions(body)
	if err != nil {
		var de *core.DecodeError
		if errors.As(err, &de) {
			return nil, &remote.Error{Kind: remote.KindBadSchema, Detail: "transaction data is malformed", Err: de}
		}
		return nil, &remote.Error{Kind: remote.KindBadSchema, Detail: "response is not a transaction array", Err: err}
	}

	slog.DebugContext(ctx, "Fetched transactions from endpoint", "count", len(list))
	return list, nil
}

// Save posts the full list. The content type is text/plain because the
// endpoint deployment cannot answer preflighted requests; its response
// body is not machine-readable, so completion of the request is success.
func (c *Client) Save(ctx context.Context, list []core.Transaction) error {
	body, err := core.EncodeTransactions(list)
	if err != nil {
		return &remote.Error{Kind: remote.KindBadSchema, Detail: "encode transactions", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return &remote.Error{Kind: remote.KindNetwork, Detail: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &remote.Error{Kind: remote.KindNetwork, Detail: "send to endpoint", Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	slog.DebugContext(ctx, "Posted transactions to endpoint", "count", len(list))
	return nil
}
