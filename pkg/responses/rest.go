package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RESTStore inserts rows through a PostgREST endpoint such as Supabase:
// POST {base}/rest/v1/{table} authenticated with the service key.
type RESTStore struct {
	endpoint string
	key      string
	schema   Schema
	client   *http.Client
}

// NewRESTStore builds a store for the project at baseURL.
func NewRESTStore(baseURL, key string, schema Schema, client *http.Client) (*RESTStore, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("responses: rest URL is required")
	}
	if key == "" {
		return nil, errors.New("responses: rest key is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("responses: rest URL: %w", err)
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &RESTStore{
		endpoint: baseURL + "/rest/v1/" + schema.Table,
		key:      key,
		schema:   schema,
		client:   client,
	}, nil
}

// Endpoint returns the insert URL.
func (s *RESTStore) Endpoint() string { return s.endpoint }

func (s *RESTStore) Insert(ctx context.Context, row Row) error {
	if err := s.schema.Conform(row); err != nil {
		return err
	}
	body, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("responses: encode row: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("responses: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("Prefer", "return=minimal")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("responses: insert: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("responses: insert: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (s *RESTStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
