package dhis

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
)

// Client is a thin REST client for the tracker web API. All calls block the
// worker thread for the duration of the round trip.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
}

func NewClient(baseURL, username, password string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// SystemInfo fetches the target system version used to resolve
// version-specific script sources and transformers.
func (c *Client) SystemInfo(ctx context.Context) (*SystemInfo, error) {
	var info SystemInfo
	if err := c.do(ctx, http.MethodGet, "/api/system/info", nil, &info); err != nil {
		return nil, err
	}
	if info.Version == "" {
		return nil, fmt.Errorf("system info has no version")
	}
	return &info, nil
}

// CreateTrackedEntity posts a new tracked entity instance and returns its
// assigned identifier.
func (c *Client) CreateTrackedEntity(ctx context.Context, te *TrackedEntity) (string, error) {
	return c.importOne(ctx, http.MethodPost, "/api/trackedEntityInstances", te)
}

// UpdateTrackedEntity updates an existing tracked entity instance.
func (c *Client) UpdateTrackedEntity(ctx context.Context, te *TrackedEntity) error {
	if te.ID == "" {
		return fmt.Errorf("tracked entity has no id")
	}
	_, err := c.importOne(ctx, http.MethodPut, "/api/trackedEntityInstances/"+te.ID, te)
	return err
}

// CreateEnrollment enrolls a tracked entity into a program.
func (c *Client) CreateEnrollment(ctx context.Context, en *Enrollment) (string, error) {
	return c.importOne(ctx, http.MethodPost, "/api/enrollments", en)
}

// CreateEvent posts a new program stage event.
func (c *Client) CreateEvent(ctx context.Context, ev *Event) (string, error) {
	return c.importOne(ctx, http.MethodPost, "/api/events", ev)
}

// GetEvent fetches the current state of one event.
func (c *Client) GetEvent(ctx context.Context, id string) (*Event, error) {
	if id == "" {
		return nil, fmt.Errorf("event id is empty")
	}
	var ev Event
	if err := c.do(ctx, http.MethodGet, "/api/events/"+id, nil, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// UpdateEvent updates an existing event.
func (c *Client) UpdateEvent(ctx context.Context, ev *Event) error {
	if ev.ID == "" {
		return fmt.Errorf("event has no id")
	}
	_, err := c.importOne(ctx, http.MethodPut, "/api/events/"+ev.ID, ev)
	return err
}

// EventsUpdatedSince lists events modified strictly after the given instant,
// ascending by last-updated, capped at limit. It backs the sync poller.
func (c *Client) EventsUpdatedSince(ctx context.Context, since time.Time, limit int) ([]Event, error) {
	q := url.Values{}
	q.Set("lastUpdatedStartDate", since.UTC().Format("2006-01-02T15:04:05.000"))
	q.Set("order", "lastUpdated:asc")
	q.Set("pageSize", strconv.Itoa(limit))
	q.Set("ouMode", "ACCESSIBLE")
	q.Set("includeDeleted", "true")

	var page struct {
		Events []Event `json:"events"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/events?"+q.Encode(), nil, &page); err != nil {
		return nil, err
	}
	return page.Events, nil
}

// importOne issues a write and interprets the returned import summaries.
func (c *Client) importOne(ctx context.Context, method, path string, payload interface{}) (string, error) {
	var envelope struct {
		Response *ImportSummaries `json:"response"`
		// Older server lines return the summaries at the top level.
		ImportSummaries
	}
	if err := c.do(ctx, method, path, payload, &envelope); err != nil {
		return "", err
	}

	summaries := envelope.Response
	if summaries == nil {
		summaries = &envelope.ImportSummaries
	}
	if err := summaries.Verify(); err != nil {
		return "", err
	}
	return summaries.FirstReference(), nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%s %s: %w", method, path, ErrConflict)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &StatusError{Code: resp.StatusCode, Body: string(raw)}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
