// Package pinning implements the Pinata client: pin raw files and JSON
// documents, and resolve ipfs:// URIs through an HTTP gateway.
package pinning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/JacLaoky/SogniPet-miniapp/internal/apperr"
	"github.com/JacLaoky/SogniPet-miniapp/pkg/logger"
)

const ipfsScheme = "ipfs://"

// Metadata is the ERC-721 metadata document pinned per generation.
type Metadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// Client talks to the Pinata pinning API.
type Client struct {
	httpClient *http.Client
	apiURL     string
	gatewayURL string
	jwt        string
	log        *logger.Logger
}

// Config holds client settings.
type Config struct {
	APIURL     string
	GatewayURL string
	JWT        string
	Timeout    time.Duration
}

// NewClient constructs a Pinata client. The JWT is not validated here;
// callers gate on configuration before invoking uploads.
func NewClient(cfg Config, httpClient *http.Client, log *logger.Logger) (*Client, error) {
	apiURL := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if apiURL == "" {
		return nil, fmt.Errorf("pinata API URL required")
	}
	gateway := strings.TrimSpace(cfg.GatewayURL)
	if gateway == "" {
		return nil, fmt.Errorf("pinata gateway URL required")
	}
	if !strings.HasSuffix(gateway, "/") {
		gateway += "/"
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if log == nil {
		log = logger.NewDefault("pinning")
	}
	return &Client{
		httpClient: httpClient,
		apiURL:     apiURL,
		gatewayURL: gateway,
		jwt:        cfg.JWT,
		log:        log,
	}, nil
}

// PinFile uploads raw bytes and returns the resulting content hash.
func (c *Client) PinFile(ctx context.Context, filename string, content io.Reader) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create multipart: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", fmt.Errorf("copy file content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalize multipart: %w", err)
	}

	return c.pin(ctx, "/pinning/pinFileToIPFS", writer.FormDataContentType(), &buf, "Pinata image upload failed")
}

// PinJSON uploads a JSON document and returns the resulting content hash.
func (c *Client) PinJSON(ctx context.Context, v interface{}) (string, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	return c.pin(ctx, "/pinning/pinJSONToIPFS", "application/json", bytes.NewReader(encoded), "Pinata JSON upload failed")
}

func (c *Client) pin(ctx context.Context, path, contentType string, body io.Reader, failMsg string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.jwt)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperr.Upstream(err, "%s", failMsg)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		// Pinata error bodies carry the useful message under error.details.
		detail := gjson.GetBytes(respBody, "error.details").String()
		if detail == "" {
			detail = resp.Status
		}
		return "", apperr.UpstreamDetail(failMsg, detail)
	}

	hash := gjson.GetBytes(respBody, "IpfsHash").String()
	if hash == "" {
		return "", apperr.UpstreamDetail(failMsg, "response missing IpfsHash")
	}
	return hash, nil
}

// URI builds an ipfs:// URI from a content hash.
func URI(hash string) string {
	return ipfsScheme + hash
}

// GatewayURL rewrites an ipfs:// URI to its HTTP gateway form. A URI
// without the ipfs scheme is an error rather than a silent no-op, so a
// provider-side scheme change cannot slip through as a broken link.
func (c *Client) GatewayURL(uri string) (string, error) {
	if !strings.HasPrefix(uri, ipfsScheme) {
		return "", fmt.Errorf("not an ipfs URI: %q", uri)
	}
	return c.gatewayURL + strings.TrimPrefix(uri, ipfsScheme), nil
}

// FetchJSON retrieves a JSON document from an HTTP URL.
func (c *Client) FetchJSON(ctx context.Context, url string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// FetchBytes downloads a resource, typically a freshly generated image that
// still lives on the provider's transient storage.
func (c *Client) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Upstream(err, "Failed to fetch image from Sogni URL")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.UpstreamDetail("Failed to fetch image from Sogni URL", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Upstream(err, "Failed to fetch image from Sogni URL")
	}
	return data, nil
}
