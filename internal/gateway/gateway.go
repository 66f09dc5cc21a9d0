// Package gateway provides the typed HTTP client for the fraud detection API.
package gateway

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

	"github.com/google/go-querystring/query"
	"github.com/rs/zerolog"

	apperrors "fraud-monitor/internal/errors"
	"fraud-monitor/internal/logging"
	"fraud-monitor/internal/models"
)

// Gateway defines the request/response contract of the remote API.
// Implementations surface every failure as an error matching
// errors.ErrRequestFailed and never retry or cache.
type Gateway interface {
	CreateTransaction(ctx context.Context, txn models.TransactionCreate) (*models.Transaction, error)
	ListTransactions(ctx context.Context, offset, limit int) ([]models.Transaction, error)
	ListUserTransactions(ctx context.Context, userID string, offset, limit int) ([]models.Transaction, error)
	GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error)
	ListAlerts(ctx context.Context, offset, limit int, status models.AlertStatus) ([]models.Alert, error)
	GetAlert(ctx context.Context, alertID int64) (*models.Alert, error)
	UpdateAlertStatus(ctx context.Context, alertID int64, status models.AlertStatus) error
	GetSummary(ctx context.Context) (*models.Summary, error)
}

// Config configures the HTTP client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Headers map[string]string
	Logger  zerolog.Logger
}

// Client implements Gateway over HTTP/JSON.
type Client struct {
	baseURL *url.URL
	headers map[string]string
	client  *http.Client
	timeout time.Duration
	logger  zerolog.Logger
}

type listParams struct {
	Skip   int    `url:"skip"`
	Limit  int    `url:"limit"`
	UserID string `url:"user_id,omitempty"`
	Status string `url:"status,omitempty"`
}

type statusParams struct {
	Status string `url:"status"`
}

// NewClient creates an API client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("api base URL is empty")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing api base URL: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: base,
		headers: cfg.Headers,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		logger:  logging.WithComponent(cfg.Logger, "gateway"),
	}, nil
}

// BaseURL returns the API base address.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// CreateTransaction submits a transaction and returns the scored record.
func (c *Client) CreateTransaction(ctx context.Context, txn models.TransactionCreate) (*models.Transaction, error) {
	var out models.Transaction
	if err := c.do(ctx, "create_transaction", http.MethodPost, "/api/transactions", nil, txn, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTransactions returns a newest-first page of transactions.
func (c *Client) ListTransactions(ctx context.Context, offset, limit int) ([]models.Transaction, error) {
	return c.listTransactions(ctx, listParams{Skip: offset, Limit: limit})
}

// ListUserTransactions returns a newest-first page of one user's transactions.
func (c *Client) ListUserTransactions(ctx context.Context, userID string, offset, limit int) ([]models.Transaction, error) {
	return c.listTransactions(ctx, listParams{Skip: offset, Limit: limit, UserID: userID})
}

func (c *Client) listTransactions(ctx context.Context, p listParams) ([]models.Transaction, error) {
	params, err := query.Values(p)
	if err != nil {
		return nil, apperrors.NewRequestError("list_transactions", "/api/transactions", 0, err)
	}
	var out []models.Transaction
	if err := c.do(ctx, "list_transactions", http.MethodGet, "/api/transactions", params, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTransaction looks a transaction up by its client-chosen key.
func (c *Client) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	var out models.Transaction
	path := "/api/transactions/" + url.PathEscape(transactionID)
	if err := c.do(ctx, "get_transaction", http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAlerts returns a newest-first page of alerts. An empty status lists all.
func (c *Client) ListAlerts(ctx context.Context, offset, limit int, status models.AlertStatus) ([]models.Alert, error) {
	params, err := query.Values(listParams{Skip: offset, Limit: limit, Status: string(status)})
	if err != nil {
		return nil, apperrors.NewRequestError("list_alerts", "/api/fraud-alerts", 0, err)
	}
	var out []models.Alert
	if err := c.do(ctx, "list_alerts", http.MethodGet, "/api/fraud-alerts", params, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetAlert returns one alert by ID.
func (c *Client) GetAlert(ctx context.Context, alertID int64) (*models.Alert, error) {
	var out models.Alert
	path := fmt.Sprintf("/api/fraud-alerts/%d", alertID)
	if err := c.do(ctx, "get_alert", http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAlertStatus persists a review outcome for an alert.
func (c *Client) UpdateAlertStatus(ctx context.Context, alertID int64, status models.AlertStatus) error {
	path := fmt.Sprintf("/api/fraud-alerts/%d", alertID)
	params, err := query.Values(statusParams{Status: string(status)})
	if err != nil {
		return apperrors.NewRequestError("update_alert_status", path, 0, err)
	}
	return c.do(ctx, "update_alert_status", http.MethodPatch, path, params, nil, nil)
}

// GetSummary returns the aggregate statistics.
func (c *Client) GetSummary(ctx context.Context) (*models.Summary, error) {
	var out models.Summary
	if err := c.do(ctx, "get_summary", http.MethodGet, "/api/transactions/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do issues one request. path is already escaped. The call is logged
// through the context's logger when one is attached.
func (c *Client) do(ctx context.Context, op, method, path string, params url.Values, body, out interface{}) (err error) {
	logger := logging.WithOperation(logging.FromContext(ctx, c.logger), op)
	start := time.Now()
	defer func() {
		logging.LogAPICall(logger, method, path, time.Since(start), err)
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := *c.baseURL
	u.RawPath = c.baseURL.EscapedPath() + path
	if u.Path, err = url.PathUnescape(u.RawPath); err != nil {
		return apperrors.NewRequestError(op, path, 0, fmt.Errorf("invalid path: %w", err))
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return apperrors.NewRequestError(op, path, 0, fmt.Errorf("marshal request: %w", err))
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return apperrors.NewRequestError(op, path, 0, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.NewRequestError(op, path, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperrors.NewRequestError(op, path, resp.StatusCode, fmt.Errorf("%s: %s", resp.Status, errorDetail(detail)))
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewRequestError(op, path, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// errorDetail extracts the API's {"detail": ...} message when present.
func errorDetail(body []byte) string {
	var payload struct {
		Detail interface{} `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != nil {
		return fmt.Sprint(payload.Detail)
	}
	return strings.TrimSpace(string(body))
}

var _ Gateway = (*Client)(nil)
