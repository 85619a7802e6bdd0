package favorites

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// HTTPClient implements APIClient against the favorites endpoints.
// GETs retry once since they are side-effect free; mutations do not retry.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPClient creates a client for the API at baseURL using the given
// bearer token.
func NewHTTPClient(baseURL, token string, client *http.Client) *HTTPClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		client:  client,
	}
}

// AddFavorite issues POST /api/favorites.
func (c *HTTPClient) AddFavorite(ctx context.Context, propertyID string) error {
	body, _ := json.Marshal(map[string]string{"propertyId": propertyID})
	return c.do(ctx, http.MethodPost, "/api/favorites", body, false, nil)
}

// RemoveFavorite issues DELETE /api/favorites/:id.
func (c *HTTPClient) RemoveFavorite(ctx context.Context, propertyID string) error {
	return c.do(ctx, http.MethodDelete, "/api/favorites/"+url.PathEscape(propertyID), nil, false, nil)
}

// SyncFavorites issues POST /api/favorites/sync with the whole batch.
func (c *HTTPClient) SyncFavorites(ctx context.Context, propertyIDs []string) error {
	if propertyIDs == nil {
		propertyIDs = []string{}
	}
	body, _ := json.Marshal(map[string][]string{"favoriteIds": propertyIDs})
	return c.do(ctx, http.MethodPost, "/api/favorites/sync", body, false, nil)
}

// ListFavorites issues GET /api/favorites.
func (c *HTTPClient) ListFavorites(ctx context.Context) ([]string, error) {
	var resp struct {
		Favorites []string `json:"favorites"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/favorites", nil, true, &resp); err != nil {
		return nil, err
	}
	return resp.Favorites, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body []byte, retryOnce bool, out any) error {
	attempts := 1
	if retryOnce {
		attempts = 2
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode >= 400 {
			return fmt.Errorf("%s %s: server returned %d", method, path, resp.StatusCode)
		}

		if out != nil {
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil
	}
	return fmt.Errorf("%s %s: %w", method, path, lastErr)
}
