package dremio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ui-iids/dremio-mcp-client/internal/catalog"
)

// maxErrorBodySize caps how much of an error response body is read.
const maxErrorBodySize = 4096

// Client talks to the Dremio REST API (v3) and implements
// catalog.Backend. It is safe for concurrent use.
type Client struct {
	baseURL    string
	authHeader string
	hc         *http.Client
}

// NewClient creates a Client from a resolved, validated Config.
func NewClient(cfg Config) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		authHeader: cfg.Scheme + " " + cfg.Token,
		hc: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: cfg.Timeout,
			},
		},
	}
}

// listPayload is the envelope Dremio wraps listing endpoints in. The root
// endpoint uses "data" while the children endpoint answers with "children";
// some deployments mix the two, so both keys are decoded.
type listPayload struct {
	Data     []catalog.RawEntry `json:"data"`
	Children []catalog.RawEntry `json:"children"`
}

// Roots implements catalog.Backend.
func (c *Client) Roots(ctx context.Context) ([]catalog.RawEntry, error) {
	var payload listPayload
	if err := c.get(ctx, "/api/v3/catalog", &payload); err != nil {
		return nil, fmt.Errorf("listing catalog roots: %w", err)
	}
	if payload.Data != nil {
		return payload.Data, nil
	}
	return payload.Children, nil
}

// Entity implements catalog.Backend.
func (c *Client) Entity(ctx context.Context, id string) (catalog.RawEntry, error) {
	var entry catalog.RawEntry
	if err := c.get(ctx, "/api/v3/catalog/"+url.PathEscape(id), &entry); err != nil {
		return nil, fmt.Errorf("fetching entity %s: %w", id, err)
	}
	return entry, nil
}

// Children implements catalog.Backend.
func (c *Client) Children(ctx context.Context, id string) ([]catalog.RawEntry, error) {
	var payload listPayload
	if err := c.get(ctx, "/api/v3/catalog/"+url.PathEscape(id)+"/children", &payload); err != nil {
		return nil, fmt.Errorf("listing children of %s: %w", id, err)
	}
	if payload.Children != nil {
		return payload.Children, nil
	}
	return payload.Data, nil
}

// SubmitSQL implements catalog.Backend.
func (c *Client) SubmitSQL(ctx context.Context, sql string, sqlContext []string) (string, error) {
	body := map[string]any{"sql": sql}
	if len(sqlContext) > 0 {
		body["context"] = sqlContext
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.send(ctx, http.MethodPost, "/api/v3/sql", body, &out); err != nil {
		return "", fmt.Errorf("submitting sql: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("submitting sql: backend returned no job id")
	}
	return out.ID, nil
}

// jobPayload tolerates both jobState and state field names.
type jobPayload struct {
	ID           string `json:"id"`
	JobState     string `json:"jobState"`
	State        string `json:"state"`
	ErrorMessage string `json:"errorMessage"`
	RowCount     int64  `json:"rowCount"`
}

// Job implements catalog.Backend.
func (c *Client) Job(ctx context.Context, id string) (catalog.Job, error) {
	var payload jobPayload
	if err := c.get(ctx, "/api/v3/job/"+url.PathEscape(id), &payload); err != nil {
		return catalog.Job{}, fmt.Errorf("fetching job %s: %w", id, err)
	}
	state := payload.JobState
	if state == "" {
		state = payload.State
	}
	if payload.ID == "" {
		payload.ID = id
	}
	return catalog.Job{
		ID:           payload.ID,
		State:        catalog.JobState(strings.ToUpper(state)),
		ErrorMessage: payload.ErrorMessage,
		RowCount:     payload.RowCount,
	}, nil
}

// JobResults implements catalog.Backend.
func (c *Client) JobResults(ctx context.Context, id string, offset, limit int) (catalog.ResultPage, error) {
	path := fmt.Sprintf("/api/v3/job/%s/results?offset=%d&limit=%d", url.PathEscape(id), offset, limit)
	var payload struct {
		RowCount int              `json:"rowCount"`
		Schema   []catalog.Column `json:"schema"`
		Rows     []map[string]any `json:"rows"`
	}
	if err := c.get(ctx, path, &payload); err != nil {
		return catalog.ResultPage{}, fmt.Errorf("fetching results of job %s: %w", id, err)
	}
	return catalog.ResultPage{
		RowCount: payload.RowCount,
		Columns:  payload.Schema,
		Rows:     payload.Rows,
	}, nil
}

// CreateEntity implements catalog.Backend.
func (c *Client) CreateEntity(ctx context.Context, body catalog.RawEntry) (catalog.RawEntry, error) {
	var created catalog.RawEntry
	if err := c.send(ctx, http.MethodPost, "/api/v3/catalog", body, &created); err != nil {
		return nil, fmt.Errorf("creating entity: %w", err)
	}
	return created, nil
}

// UpdateEntity implements catalog.Backend.
func (c *Client) UpdateEntity(ctx context.Context, id, _ string, body catalog.RawEntry) (catalog.RawEntry, error) {
	var updated catalog.RawEntry
	if err := c.send(ctx, http.MethodPut, "/api/v3/catalog/"+url.PathEscape(id), body, &updated); err != nil {
		return nil, fmt.Errorf("updating entity %s: %w", id, err)
	}
	return updated, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, method, path, payload, out)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusError maps HTTP error status codes to sentinel errors.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	msg := strings.TrimSpace(string(body))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: HTTP 404: %s", catalog.ErrNotFound, msg)
	case resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("%w: HTTP 400: %s", catalog.ErrValidation, msg)
	default:
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, msg)
	}
}
