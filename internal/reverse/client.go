package reverse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Match is one candidate post returned by the similarity provider.
type Match struct {
	PostID int64   `json:"post_id"`
	Score  float64 `json:"score"`
}

// Result is the provider's answer for one lookup: an optional exact match
// plus similar candidates ordered by descending score.
type Result struct {
	Exact   *Match  `json:"exact_match"`
	Similar []Match `json:"similar_matches"`
}

// Searcher is the similarity-lookup contract this backend consumes. The
// algorithm behind it is the provider's business.
type Searcher interface {
	Lookup(ctx context.Context, imageURL string) (Result, error)
}

// Client talks to the reverse-search provider over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Lookup submits an image URL for similarity search.
func (c *Client) Lookup(ctx context.Context, imageURL string) (Result, error) {
	payload, err := json.Marshal(map[string]string{"url": imageURL})
	if err != nil {
		return Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/lookup", c.baseURL), bytes.NewReader(payload))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return Result{}, fmt.Errorf("reverse: provider returned status %d", resp.StatusCode)
	}
	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("reverse: decode response: %w", err)
	}
	return result, nil
}

var _ Searcher = (*Client)(nil)
