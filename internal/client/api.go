// Package client provides an HTTP client for the fitness server API
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

	"batfit/internal/service"
	"batfit/pkg/fitness/core"
	"batfit/pkg/fitness/factory"
)

// APIClient represents a client for the fitness server API
type APIClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewAPIClient creates a new API client. addr may be a bare host:port.
func NewAPIClient(addr string) *APIClient {
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	return &APIClient{
		BaseURL: strings.TrimRight(addr, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// LoadCache uploads a dataset
func (c *APIClient) LoadCache(ctx context.Context, vectors []float32, chromoLen, dim int) (*service.LoadResult, error) {
	req := map[string]interface{}{
		"vectors":    vectors,
		"chromo_len": chromoLen,
		"dim":        dim,
	}

	var result service.LoadResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/cache", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// EvaluateBatch scores packed chromosomes
func (c *APIClient) EvaluateBatch(ctx context.Context, chunks []uint32, chromoLen, dim, numBats int) (*core.BatchResult, error) {
	req := map[string]interface{}{
		"chromosomes": chunks,
		"chromo_len":  chromoLen,
		"dim":         dim,
		"num_bats":    numBats,
	}

	var result core.BatchResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/evaluate", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetCacheInfo describes the server's dataset
func (c *APIClient) GetCacheInfo(ctx context.Context) (*core.CacheInfo, error) {
	var result core.CacheInfo
	if err := c.do(ctx, http.MethodGet, "/api/v1/cache", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetHealth calls the health endpoint
func (c *APIClient) GetHealth(ctx context.Context) (*service.Health, error) {
	var result service.Health
	if err := c.do(ctx, http.MethodGet, "/api/v1/health", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetMetrics returns the service counters
func (c *APIClient) GetMetrics(ctx context.Context) (*service.Snapshot, error) {
	var result service.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/v1/metrics", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetMethods returns the server's method detection report
func (c *APIClient) GetMethods(ctx context.Context) (*factory.DetectionReport, error) {
	var result factory.DetectionReport
	if err := c.do(ctx, http.MethodGet, "/api/v1/methods", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// do sends a request and decodes a JSON response into out
func (c *APIClient) do(ctx context.Context, method, endpoint string, data, out interface{}) error {
	var body io.Reader
	if data != nil {
		buf, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	// Read response body first to provide better error messages
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Error string `json:"error"`
			Code  int    `json:"code"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			if errResp.Code != 0 {
				return &core.FitnessError{
					Code:    errResp.Code,
					Message: fmt.Sprintf("server error (%d)", resp.StatusCode),
					Details: errResp.Error,
				}
			}
			return fmt.Errorf("server error (%d): %s", resp.StatusCode, errResp.Error)
		}
		// Truncate response for error message (avoid huge HTML dumps)
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, preview(respBody, 200))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "json") {
		return fmt.Errorf("unexpected content type %q (expected JSON): %s", contentType, preview(respBody, 100))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode JSON response: %w (response: %s)", err, preview(respBody, 100))
	}
	return nil
}

func preview(body []byte, n int) string {
	s := string(body)
	if len(s) > n {
		s = s[:n] + "..."
	}
	return s
}
