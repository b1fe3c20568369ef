// Package client provides the HTTP client for the clausewatch admin CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/devphilip/clausewatch/pkg/models"
)

// Client is the clausewatch API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client for the given server URL.
func New(serverURL string, timeout time.Duration) (*Client, error) {
	if serverURL == "" {
		return nil, fmt.Errorf("server URL is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(serverURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// RequestOptions describes one API request.
type RequestOptions struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// APIError represents an error response from the API.
type APIError struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	ErrorType  string `json:"error_type,omitempty"`
	StatusCode int    `json:"-"`
}

func (e *APIError) Error() string {
	if e.ErrorType != "" {
		return fmt.Sprintf("%s: %s", e.ErrorType, e.Message)
	}
	return e.Message
}

// Do performs an HTTP request against the API.
func (c *Client) Do(ctx context.Context, opts RequestOptions) (*http.Response, error) {
	reqURL, err := url.Parse(c.baseURL + opts.Path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if opts.Query != nil {
		reqURL.RawQuery = opts.Query.Encode()
	}

	var body io.Reader
	if opts.Body != nil {
		data, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, reqURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "clausewatch-cli/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// DoJSON performs a request and decodes the JSON response.
func (c *Client) DoJSON(ctx context.Context, opts RequestOptions, result any) error {
	resp, err := c.Do(ctx, opts)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr APIError
		if err := json.Unmarshal(respBody, &apiErr); err != nil {
			return &APIError{
				Status:     "error",
				Message:    string(respBody),
				StatusCode: resp.StatusCode,
			}
		}
		apiErr.StatusCode = resp.StatusCode
		return &apiErr
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// --- API Methods ---

type dueAlertsResponse struct {
	Status string          `json:"status"`
	Data   []*models.Alert `json:"data"`
}

// ListDueAlerts returns the alerts the next dispatch run would pick up.
func (c *Client) ListDueAlerts(ctx context.Context, limit int) ([]*models.Alert, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", fmt.Sprintf("%d", limit))
	}
	var resp dueAlertsResponse
	err := c.DoJSON(ctx, RequestOptions{
		Method: http.MethodGet,
		Path:   "/api/v1/alerts/due",
		Query:  query,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

type dispatchResponse struct {
	Status string `json:"status"`
	Data   struct {
		Sent int `json:"sent"`
	} `json:"data"`
}

// DispatchNow triggers one dispatch run and returns the delivered count.
func (c *Client) DispatchNow(ctx context.Context) (int, error) {
	var resp dispatchResponse
	err := c.DoJSON(ctx, RequestOptions{
		Method: http.MethodPost,
		Path:   "/api/v1/alerts/dispatch",
		Body:   struct{}{},
	}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.Data.Sent, nil
}

type contractAlertsResponse struct {
	Status string          `json:"status"`
	Data   []*models.Alert `json:"data"`
}

// ListContractAlerts returns alerts for one contract.
func (c *Client) ListContractAlerts(ctx context.Context, contractID string, status string) ([]*models.Alert, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	var resp contractAlertsResponse
	err := c.DoJSON(ctx, RequestOptions{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("/api/v1/contracts/%s/alerts", url.PathEscape(contractID)),
		Query:  query,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Meta describes a running server.
type Meta struct {
	Version            string `json:"version"`
	AlertsEnabled      bool   `json:"alerts_enabled"`
	DispatchInterval   string `json:"dispatch_interval"`
	SeverityThreshold  int    `json:"severity_threshold"`
	DispatchBatchLimit int    `json:"dispatch_batch_limit"`
}

type metaResponse struct {
	Status string `json:"status"`
	Data   Meta   `json:"data"`
}

// GetMeta returns server metadata.
func (c *Client) GetMeta(ctx context.Context) (*Meta, error) {
	var resp metaResponse
	err := c.DoJSON(ctx, RequestOptions{
		Method: http.MethodGet,
		Path:   "/api/v1/meta",
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}
