// Package store implements the REST client for the hosted data service.
// All persistence, filtering and row identity is owned by that service;
// this package only speaks its PostgREST contract: GET a table as a JSON
// array, PATCH a single row by id filter and read back the updated
// representation.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrRowGone is returned when an update matched zero rows, i.e. the row
// was deleted remotely between the local lookup and the PATCH.
var ErrRowGone = errors.New("row no longer exists")

// Client talks to one Supabase project over its REST endpoint.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds a client for the given project URL and anon key.
// The timeout applies per request; zero falls back to 10 seconds.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL exposes the configured project URL (the realtime subscriber
// derives its websocket address from it).
func (c *Client) BaseURL() string { return c.baseURL }

// APIKey exposes the configured anon key.
func (c *Client) APIKey() string { return c.apiKey }

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// decodeRows parses a PostgREST JSON array keeping numbers as json.Number.
func decodeRows(r io.Reader) ([]Row, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var rows []Row
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return rows, nil
}

// Select fetches every row of a table.
func (c *Client) Select(ctx context.Context, table string) ([]Row, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+"/rest/v1/"+table, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", table, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", table, res.StatusCode)
	}
	return decodeRows(res.Body)
}

// SelectByID fetches a single row via an id filter. The second return
// value reports whether the row exists.
func (c *Client) SelectByID(ctx context.Context, table string, id int64) (Row, bool, error) {
	url := fmt.Sprintf("%s/rest/v1/%s?id=eq.%d", c.baseURL, table, id)
	req, err := c.newRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("fetch %s id=%d: %w", table, id, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, false, fmt.Errorf("fetch %s id=%d: unexpected status %d", table, id, res.StatusCode)
	}
	rows, err := decodeRows(res.Body)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0], true, nil
}

// Update PATCHes the given columns of one row and returns the updated
// representation the store echoes back (Prefer: return=representation).
// An empty representation means the id filter matched nothing, which is
// reported as ErrRowGone.
func (c *Client) Update(ctx context.Context, table string, id int64, patch map[string]any) (Row, error) {
	body, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("encode patch: %w", err)
	}
	url := fmt.Sprintf("%s/rest/v1/%s?id=eq.%d", c.baseURL, table, id)
	req, err := c.newRequest(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Prefer", "return=representation")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("update %s id=%d: %w", table, id, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("update %s id=%d: unexpected status %d", table, id, res.StatusCode)
	}
	rows, err := decodeRows(res.Body)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrRowGone
	}
	return rows[0], nil
}
