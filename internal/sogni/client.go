// Package sogni implements a client for the Sogni image-generation API:
// authenticate once, list the model catalog, submit projects and poll them
// to completion. Generated image URLs are transient provider URLs; callers
// that need durability must re-upload the bytes elsewhere.
package sogni

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/JacLaoky/SogniPet-miniapp/internal/apperr"
	"github.com/JacLaoky/SogniPet-miniapp/pkg/logger"
)

const (
	// NegativePrompt is the fixed quality guard attached to every project.
	NegativePrompt = "malformation, bad anatomy, bad hands, cropped, low quality"

	defaultPollInterval = 2 * time.Second
)

// Credentials authenticate against the provider.
type Credentials struct {
	AppID    string
	Username string
	Password string
}

// ProjectParams describes a single generation job.
type ProjectParams struct {
	ModelID        string  `json:"modelId"`
	PositivePrompt string  `json:"positivePrompt"`
	NegativePrompt string  `json:"negativePrompt"`
	StylePrompt    string  `json:"stylePrompt"`
	TokenType      string  `json:"tokenType"`
	Steps          int     `json:"steps"`
	Guidance       float64 `json:"guidance"`
	NumberOfImages int     `json:"numberOfImages"`
}

// Client talks to the Sogni REST API. Build it through Provider so login
// happens exactly once per process.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	token        string
	models       []Model
	pollInterval time.Duration
	log          *logger.Logger
}

// NewClient constructs an unauthenticated client. Login must be called
// before any other operation.
func NewClient(httpClient *http.Client, baseURL string, log *logger.Logger) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("sogni API URL required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = logger.NewDefault("sogni")
	}
	return &Client{
		httpClient:   httpClient,
		baseURL:      baseURL,
		pollInterval: defaultPollInterval,
		log:          log,
	}, nil
}

// Login authenticates and blocks until the provider's model catalog is
// available, mirroring the handle contract: a returned client is ready to
// submit projects immediately.
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	var resp struct {
		Token string `json:"token"`
	}
	payload := map[string]string{
		"appId":    creds.AppID,
		"username": creds.Username,
		"password": creds.Password,
	}
	if err := c.do(ctx, http.MethodPost, "/v1/account/login", payload, &resp); err != nil {
		return fmt.Errorf("sogni login: %w", err)
	}
	if resp.Token == "" {
		return fmt.Errorf("sogni login: empty token in response")
	}
	c.token = resp.Token

	models, err := c.fetchModels(ctx)
	if err != nil {
		return fmt.Errorf("sogni models: %w", err)
	}
	c.models = models
	c.log.Infof("sogni client ready, %d models available", len(models))
	return nil
}

// Models returns the catalog captured at login.
func (c *Client) Models() []Model {
	return c.models
}

func (c *Client) fetchModels(ctx context.Context) ([]Model, error) {
	var resp struct {
		Models []Model `json:"models"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/models", nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Models) == 0 {
		return nil, fmt.Errorf("provider reported no available models")
	}
	return resp.Models, nil
}

// CreateProject submits a generation job and returns its id.
func (c *Client) CreateProject(ctx context.Context, params ProjectParams) (string, error) {
	var resp struct {
		ProjectID string `json:"projectId"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/projects", params, &resp); err != nil {
		return "", apperr.Upstream(err, "Failed to generate image")
	}
	if resp.ProjectID == "" {
		return "", apperr.UpstreamDetail("Failed to generate image", "provider returned no project id")
	}
	return resp.ProjectID, nil
}

// WaitForCompletion polls the project until the provider signals done or
// failed. The wait is bounded by ctx; the provider itself sets no limit.
func (c *Client) WaitForCompletion(ctx context.Context, projectID string) ([]string, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		var resp struct {
			Status    string   `json:"status"`
			ImageURLs []string `json:"imageUrls"`
			Error     string   `json:"error"`
		}
		if err := c.do(ctx, http.MethodGet, "/v1/projects/"+projectID, nil, &resp); err != nil {
			return nil, apperr.Upstream(err, "Failed to generate image")
		}

		switch resp.Status {
		case "completed":
			return resp.ImageURLs, nil
		case "failed":
			return nil, apperr.UpstreamDetail("Failed to generate image", resp.Error)
		}

		select {
		case <-ctx.Done():
			return nil, apperr.Upstream(ctx.Err(), "Failed to generate image")
		case <-ticker.C:
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, target interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("sogni API status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
