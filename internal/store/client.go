// Package store talks to the managed backend's REST surface (PostgREST
// conventions) for application records and their history.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/jobtrail/internal/applications"
)

const (
	applicationsTable = "applications"
	eventsTable       = "application_events"
)

// Client communicates with the backend REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	Method     string
	Table      string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Table, e.StatusCode, e.Body)
}

var _ applications.Repository = (*Client)(nil)

func eq(v string) string { return "eq." + v }

// InsertApplication stores a new row and returns the stored representation.
func (c *Client) InsertApplication(ctx context.Context, app *applications.Application) (*applications.Application, error) {
	var rows []applications.Application
	if err := c.do(ctx, http.MethodPost, applicationsTable, nil, app, "return=representation", &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert %s: empty representation", applicationsTable)
	}
	return &rows[0], nil
}

// GetApplication fetches one row scoped to the user.
func (c *Client) GetApplication(ctx context.Context, userID, id string) (*applications.Application, error) {
	q := url.Values{
		"id":      {eq(id)},
		"user_id": {eq(userID)},
		"limit":   {"1"},
	}
	return c.getOne(ctx, q)
}

// FindByContentHash returns the user's row imported from identical content.
func (c *Client) FindByContentHash(ctx context.Context, userID, hash string) (*applications.Application, error) {
	q := url.Values{
		"user_id":      {eq(userID)},
		"content_hash": {eq(hash)},
		"limit":        {"1"},
	}
	return c.getOne(ctx, q)
}

func (c *Client) getOne(ctx context.Context, q url.Values) (*applications.Application, error) {
	var rows []applications.Application
	if err := c.do(ctx, http.MethodGet, applicationsTable, q, nil, "", &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, applications.ErrNotFound
	}
	return &rows[0], nil
}

// ListApplications returns the user's rows, newest first.
func (c *Client) ListApplications(ctx context.Context, userID string, filter applications.ListFilter) ([]applications.Application, error) {
	q := url.Values{
		"user_id": {eq(userID)},
		"order":   {"created_at.desc"},
	}
	if filter.Status != "" {
		q.Set("status", eq(string(filter.Status)))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}

	var rows []applications.Application
	if err := c.do(ctx, http.MethodGet, applicationsTable, q, nil, "", &rows); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []applications.Application{}
	}
	return rows, nil
}

// UpdateApplication replaces the mutable columns of an existing row.
func (c *Client) UpdateApplication(ctx context.Context, app *applications.Application) (*applications.Application, error) {
	q := url.Values{
		"id":      {eq(app.ID)},
		"user_id": {eq(app.UserID)},
	}
	var rows []applications.Application
	if err := c.do(ctx, http.MethodPatch, applicationsTable, q, app, "return=representation", &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, applications.ErrNotFound
	}
	return &rows[0], nil
}

// DeleteApplication removes a row; deleting a missing row is ErrNotFound.
func (c *Client) DeleteApplication(ctx context.Context, userID, id string) error {
	q := url.Values{
		"id":      {eq(id)},
		"user_id": {eq(userID)},
	}
	var rows []applications.Application
	if err := c.do(ctx, http.MethodDelete, applicationsTable, q, nil, "return=representation", &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return applications.ErrNotFound
	}
	return nil
}

// InsertEvent appends a history row.
func (c *Client) InsertEvent(ctx context.Context, ev *applications.Event) error {
	return c.do(ctx, http.MethodPost, eventsTable, nil, ev, "return=minimal", nil)
}

// ListEvents returns history rows for one application, newest first.
func (c *Client) ListEvents(ctx context.Context, userID, applicationID string, limit int) ([]applications.Event, error) {
	q := url.Values{
		"user_id":        {eq(userID)},
		"application_id": {eq(applicationID)},
		"order":          {"created_at.desc"},
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var rows []applications.Event
	if err := c.do(ctx, http.MethodGet, eventsTable, q, nil, "", &rows); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []applications.Event{}
	}
	return rows, nil
}

// do sends one request. A 404 is ErrNotFound; any other non-2xx status is
// a *StatusError.
func (c *Client) do(ctx context.Context, method, table string, q url.Values, body any, prefer string, out any) error {
	u := c.baseURL + "/rest/v1/" + table
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", table, err)
		}
		reqBody = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("apikey", c.apiKey)
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		httpReq.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s: %w", strings.ToLower(method), table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return applications.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{
			Method:     method,
			Table:      table,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", table, err)
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
