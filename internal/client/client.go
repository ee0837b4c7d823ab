// Package client is a thin HTTP client for a running recall daemon.
// Producer-side commands go through it so every write passes the single
// engine instance owned by the server, instead of opening the database
// from a second process.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/lazypower/recall/internal/engine"
)

const (
	defaultServerURL = "http://127.0.0.1:37878"
	// Observe can wait on remote embedding; outlive the server's own
	// 60s budget before giving up.
	httpTimeout = 90 * time.Second
)

// Client talks to the recall server.
type Client struct {
	http    *http.Client
	baseURL string
}

// New creates a client for the given base URL. An empty URL falls back
// to the RECALL_URL env var, then to http://127.0.0.1:37878.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("RECALL_URL")
	}
	if baseURL == "" {
		baseURL = defaultServerURL
	}
	return &Client{
		http:    &http.Client{Timeout: httpTimeout},
		baseURL: baseURL,
	}
}

// ObserveResponse mirrors the POST /api/observe reply.
type ObserveResponse struct {
	ConceptIDs []string `json:"concept_ids"`
	Created    int      `json:"created"`
	Edges      int      `json:"edges"`
	Notified   int      `json:"notified"`
}

// Observe reports one exposure to a batch of concepts.
func (c *Client) Observe(concepts []string, signals engine.Signals) (*ObserveResponse, error) {
	body, err := json.Marshal(map[string]any{
		"concepts": concepts,
		"signals":  signals,
	})
	if err != nil {
		return nil, err
	}
	data, err := c.post("/api/observe", body)
	if err != nil {
		return nil, err
	}
	var resp ObserveResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode observe response: %w", err)
	}
	return &resp, nil
}

// ReviewResponse mirrors the POST /api/reviews/{id} reply.
type ReviewResponse struct {
	ConceptID    string  `json:"concept_id"`
	Label        string  `json:"label"`
	Quality      int     `json:"quality"`
	Algorithm    string  `json:"algorithm"`
	IntervalDays int     `json:"interval_days"`
	NextReviewAt int64   `json:"next_review_at"`
	Retention    float64 `json:"retention_estimate"`
}

// Review grades a recall attempt for one concept. Algorithm may be
// empty to use the server's default.
func (c *Client) Review(conceptID string, quality int, algorithm string) (*ReviewResponse, error) {
	body, err := json.Marshal(map[string]any{
		"quality":   quality,
		"algorithm": algorithm,
	})
	if err != nil {
		return nil, err
	}
	data, err := c.post("/api/reviews/"+conceptID, body)
	if err != nil {
		return nil, err
	}
	var resp ReviewResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode review response: %w", err)
	}
	return &resp, nil
}

// Healthy checks if the server is reachable.
func (c *Client) Healthy() bool {
	resp, err := c.http.Get(c.baseURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// post sends a JSON POST and returns the response body.
func (c *Client) post(path string, body []byte) ([]byte, error) {
	resp, err := c.http.Post(c.baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		return data, fmt.Errorf("POST %s: status %d: %s", path, resp.StatusCode, data)
	}
	return data, nil
}
