package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/askdocs/docqa-api/internal/models"
	"github.com/askdocs/docqa-api/pkg/config"
)

// Client talks to the external RAG processing engine. It is constructed
// once at process start and shared; the embedded http.Client reuses
// connections across calls.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	queryTimeout  time.Duration
	uploadTimeout time.Duration
	deleteTimeout time.Duration
}

// UploadResponse is the engine's reply to a direct document upload.
type UploadResponse struct {
	Success         bool   `json:"success"`
	DocumentID      string `json:"document_id"`
	Message         string `json:"message"`
	ChunksProcessed int    `json:"chunks_processed"`
}

type askRequest struct {
	Question   string `json:"question"`
	DocumentID string `json:"document_id"`
}

// NewClient builds an engine client from configuration.
func NewClient(cfg config.EngineConfig) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("engine base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid engine base URL: %w", err)
	}
	return &Client{
		baseURL:       base,
		httpClient:    &http.Client{},
		queryTimeout:  cfg.QueryTimeout,
		uploadTimeout: cfg.UploadTimeout,
		deleteTimeout: cfg.DeleteTimeout,
	}, nil
}

// Ask sends a question against an ingested document and returns the
// engine's answer payload. The call is bounded by the query timeout.
func (c *Client) Ask(ctx context.Context, externalID, question string) (*models.QueryResponse, error) {
	body, err := json.Marshal(askRequest{Question: question, DocumentID: externalID})
	if err != nil {
		return nil, fmt.Errorf("encode ask request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ask", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build ask request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine ask: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("engine ask: %w", err)
	}

	var answer models.QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return nil, fmt.Errorf("decode ask response: %w", err)
	}
	return &answer, nil
}

// Upload streams a staged file to the engine's multipart upload endpoint.
// Processing-heavy, so it runs under the longer upload timeout.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (*UploadResponse, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("copy upload content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", body)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine upload: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("engine upload: %w", err)
	}

	var uploaded UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return &uploaded, nil
}

// Delete removes an ingested document from the engine.
func (c *Client) Delete(ctx context.Context, externalID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.deleteTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/documents/"+url.PathEscape(externalID), nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("engine delete: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("engine delete: %w", err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
}
