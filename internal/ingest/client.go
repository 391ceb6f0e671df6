package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ExtractionClient asks the external extraction worker to process an uploaded
// exam document. Results come back asynchronously through the callback queue.
type ExtractionClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

type ExtractionClientConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewExtractionClient(cfg ExtractionClientConfig) *ExtractionClient {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &ExtractionClient{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		client:  client,
	}
}

type ExtractionRequest struct {
	UploadID    string `json:"upload_id"`
	FileLocator string `json:"file_locator"`
	TestSetID   *int64 `json:"test_set_id,omitempty"`
	PartType    string `json:"part_type,omitempty"`
}

func (c *ExtractionClient) RequestExtraction(ctx context.Context, in ExtractionRequest) error {
	if c.baseURL == "" {
		return fmt.Errorf("extraction service url is not configured")
	}

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal extraction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/extractions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build extraction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("call extraction service: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("extraction service status %d", resp.StatusCode)
	}
	return nil
}
