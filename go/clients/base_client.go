package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mcdev12/auctionhouse/go/internal/apperr"
	"github.com/shopspring/decimal"
)

type BaseClient struct {
	baseURL string
	client  *http.Client
	headers map[string]string
}

func NewBaseClient(baseURL string) *BaseClient {
	return &BaseClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		headers: make(map[string]string),
	}
}

func (c *BaseClient) BaseURL() string {
	return c.baseURL
}

func (c *BaseClient) SetHeader(key, value string) {
	c.headers[key] = value
}

func (c *BaseClient) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

// HTTPClient exposes the underlying client so RPC clients can share it.
func (c *BaseClient) HTTPClient() *http.Client {
	return c.client
}

// StatusError is a non-2xx response. It unwraps to the error kind the
// server reported, so callers can use errors.Is with the apperr sentinels.
type StatusError struct {
	StatusCode int
	Kind       string
	Message    string
	Body       []byte

	cause error
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API returned status code: %d (%s): %s", e.StatusCode, e.Kind, e.Message)
	}
	return fmt.Sprintf("API returned status code: %d, response: %s", e.StatusCode, string(e.Body))
}

func (e *StatusError) Unwrap() error {
	return e.cause
}

func newStatusError(resp *http.Response, body []byte) *StatusError {
	var parsed struct {
		Error      string           `json:"error"`
		Kind       string           `json:"kind"`
		CurrentBid *decimal.Decimal `json:"currentBid"`
	}
	_ = json.Unmarshal(body, &parsed)

	kind := resp.Header.Get(apperr.KindHeader)
	if kind == "" {
		kind = parsed.Kind
	}
	e := &StatusError{
		StatusCode: resp.StatusCode,
		Kind:       kind,
		Message:    parsed.Error,
		Body:       body,
		cause:      apperr.FromKind(kind),
	}
	if kind == "bid_too_low" && parsed.CurrentBid != nil {
		e.cause = apperr.NewBidTooLow(*parsed.CurrentBid)
	}
	if e.cause == nil && resp.StatusCode == http.StatusNotFound {
		e.cause = apperr.ErrNotFound
	}
	return e
}

// MakeRequest sends one request. Transport failures wrap
// apperr.ErrNetworkFailure; non-2xx responses return a *StatusError.
func (c *BaseClient) MakeRequest(ctx context.Context, method, endpoint string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w: %w", apperr.ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w: %w", apperr.ErrNetworkFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newStatusError(resp, responseBody)
	}
	return responseBody, nil
}

func (c *BaseClient) Get(ctx context.Context, endpoint string) ([]byte, error) {
	return c.MakeRequest(ctx, http.MethodGet, endpoint, nil)
}

func (c *BaseClient) Post(ctx context.Context, endpoint string, body io.Reader) ([]byte, error) {
	return c.MakeRequest(ctx, http.MethodPost, endpoint, body)
}

func (c *BaseClient) Patch(ctx context.Context, endpoint string, body io.Reader) ([]byte, error) {
	return c.MakeRequest(ctx, http.MethodPatch, endpoint, body)
}

func (c *BaseClient) Put(ctx context.Context, endpoint string, body io.Reader) ([]byte, error) {
	return c.MakeRequest(ctx, http.MethodPut, endpoint, body)
}

func (c *BaseClient) Delete(ctx context.Context, endpoint string) ([]byte, error) {
	return c.MakeRequest(ctx, http.MethodDelete, endpoint, nil)
}
