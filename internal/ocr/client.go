// Package ocr calls the external document-extraction service. The service
// receives a scanned certificate and returns a flat key/value record
// (document_number, issue_date, expiry_date, issuing_authority, ...).
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Client talks to the OCR endpoint over HTTP.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// NewClient creates a Client for the given endpoint. Returns nil when the
// endpoint is empty so callers can treat OCR as an optional feature.
func NewClient(endpoint, apiKey string) *Client {
	if endpoint == "" {
		return nil
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 60 * time.Second},
	}
}

// extractResponse is the service's wire format.
type extractResponse struct {
	Fields map[string]string `json:"fields"`
	Error  string            `json:"error,omitempty"`
}

// Extract uploads the scan and returns the extracted fields. docType hints
// which template the service should apply; it may be empty.
func (c *Client) Extract(ctx context.Context, file io.Reader, filename, docType string) (map[string]string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("ocr: build form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("ocr: read file: %w", err)
	}
	if docType != "" {
		if err := mw.WriteField("type", docType); err != nil {
			return nil, fmt.Errorf("ocr: build form: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("ocr: build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/extract", &body)
	if err != nil {
		return nil, fmt.Errorf("ocr: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	// Correlation ID ties our logs to the service's.
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ocr: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("ocr: request %s returned %d", requestID, resp.StatusCode)
		return nil, fmt.Errorf("ocr: service returned %d", resp.StatusCode)
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("ocr: decode response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("ocr: %s", out.Error)
	}
	if out.Fields == nil {
		out.Fields = map[string]string{}
	}
	return out.Fields, nil
}
