package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// envelope is the server's success body. Count and Preview are only sent by
// the generate endpoint.
type envelope[T any] struct {
	Success bool       `json:"success"`
	Data    T          `json:"data"`
	Count   int        `json:"count"`
	Preview []Question `json:"preview"`
}

// httpError is a non-2xx response; Message is the body's message field.
type httpError struct {
	StatusCode int
	Message    string
}

func (e *httpError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("status %d", e.StatusCode)
}

type apiClient struct {
	baseURL string
	http    *http.Client
	reads   singleflight.Group
}

func newAPIClient(baseURL string, hc *http.Client) *apiClient {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &apiClient{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// get performs a GET. Identical concurrent reads (same token and path) share
// one round trip; each caller decodes its own copy of the body. The shared
// request ignores any single caller's cancellation and is bounded by the
// HTTP client timeout; each caller still stops waiting when its own ctx ends.
func (c *apiClient) get(ctx context.Context, token, path string, out interface{}) error {
	ch := c.reads.DoChan(token+" "+path, func() (interface{}, error) {
		return c.roundTrip(context.WithoutCancel(ctx), http.MethodGet, token, path, nil)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return decodeBody(res.Val.([]byte), out)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// send performs a mutation; these are never coalesced.
func (c *apiClient) send(ctx context.Context, method, token, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	raw, err := c.roundTrip(ctx, method, token, path, payload)
	if err != nil {
		return err
	}
	return decodeBody(raw, out)
}

func (c *apiClient) roundTrip(ctx context.Context, method, token, path string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &msg)
		return nil, &httpError{StatusCode: resp.StatusCode, Message: msg.Message}
	}
	return raw, nil
}

func decodeBody(raw []byte, out interface{}) error {
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
