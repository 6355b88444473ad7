package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"RingsideSync/internal/ports"
)

// Client pulls externally computed source reliability scores.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.ReliabilityFeed = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// FetchReliability returns the {source: score} document served by the endpoint.
func (c *Client) FetchReliability(ctx context.Context) (map[string]float64, error) {
	if c.http == nil || c.endpoint == "" {
		return map[string]float64{}, nil
	}

	var scores map[string]float64
	if err := c.get(ctx, &scores); err != nil {
		return nil, err
	}
	if scores == nil {
		scores = map[string]float64{}
	}
	return scores, nil
}

func (c *Client) get(ctx context.Context, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return fmt.Errorf("unexpected status %s, close body: %v", resp.Status, closeErr)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return nil
}
