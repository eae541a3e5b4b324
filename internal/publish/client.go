// Package publish creates customer download pages through the studio site's API.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"photodesk/internal/services"
)

const (
	createPath = "/api/auto-create"
	userAgent  = "photodesk/1.0"
)

// Request describes one download page.
type Request struct {
	CustomerName string
	// ShootDate is already in YYYY-MM-DD form.
	ShootDate string
	// Type is "original" or "retouched".
	Type string
	// URL is the signed archive URL.
	URL string
}

// Response is the API's reply.
type Response struct {
	DownloadURL string `json:"downloadUrl"`
}

type createBody struct {
	CustomerName string `json:"customerName"`
	ShootDate    string `json:"shootDate"`
	Type         string `json:"type"`
	OriginalURL  string `json:"originalUrl"`
	RetouchedURL string `json:"retouchedUrl"`
	VideoURL     string `json:"videoUrl"`
	CalendarURL  string `json:"calendarUrl"`
}

// Client calls the page API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient returns a client with the given request timeout (30s when zero).
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		http:    &http.Client{Timeout: timeout},
	}
}

// Create posts the page request. Only a 200 reply with a non-empty
// downloadUrl counts as success.
func (c *Client) Create(ctx context.Context, req Request) (Response, error) {
	body := createBody{
		CustomerName: req.CustomerName,
		ShootDate:    req.ShootDate,
		Type:         req.Type,
	}
	if req.Type == "retouched" {
		body.RetouchedURL = req.URL
	} else {
		body.OriginalURL = req.URL
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("encode publish request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+createPath, bytes.NewReader(payload))
	if err != nil {
		return Response{}, services.Wrap(services.ErrConfiguration, "publish", "build request", c.baseURL, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		marker := services.ErrTransient
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			marker = services.ErrTimeout
		}
		return Response{}, services.Wrap(marker, "publish", "create page", req.CustomerName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		marker := services.ErrExternalService
		if resp.StatusCode >= 500 {
			marker = services.ErrTransient
		}
		return Response{}, services.Wrap(marker, "publish", "create page",
			fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
	}

	var out Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return Response{}, services.Wrap(services.ErrExternalService, "publish", "decode response", "", err)
	}
	out.DownloadURL = strings.TrimSpace(out.DownloadURL)
	if out.DownloadURL == "" {
		return Response{}, services.Wrap(services.ErrExternalService, "publish", "decode response", "empty downloadUrl", nil)
	}
	return out, nil
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
