package persistence

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

	"newsletter/api/internal/newsletter"
)

// Client talks to a remote Persistence API (GET/POST /api/newsletter) and
// satisfies Backend.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) SaveNewsletter(ctx context.Context, doc newsletter.Document) (newsletter.Document, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return newsletter.Document{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/newsletter", bytes.NewReader(body))
	if err != nil {
		return newsletter.Document{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return newsletter.Document{}, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return newsletter.Document{}, fmt.Errorf("persistence API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	var saved newsletter.Document
	if err := json.NewDecoder(resp.Body).Decode(&saved); err != nil {
		return newsletter.Document{}, fmt.Errorf("decode response: %w", err)
	}
	saved.Normalize()
	return saved, nil
}

func (c *Client) GetNewsletter(ctx context.Context, id string) (*newsletter.Document, error) {
	endpoint := c.baseURL + "/api/newsletter?id=" + url.QueryEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("persistence API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	// the API answers "null" for unknown ids
	var doc *newsletter.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if doc == nil {
		return nil, nil
	}
	doc.Normalize()
	return doc, nil
}
