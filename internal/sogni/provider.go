package sogni

import (
	"context"
	"net/http"
	"sync"

	"github.com/JacLaoky/SogniPet-miniapp/internal/apperr"
	"github.com/JacLaoky/SogniPet-miniapp/pkg/logger"
)

// Provider hands out the process-wide generation client. Initialization is
// exclusive: concurrent first callers block on one login and observe the
// same outcome. A failed login is not cached, so the next request retries
// instead of pinning the process to a dead handle.
type Provider struct {
	apiURL     string
	creds      Credentials
	httpClient *http.Client
	log        *logger.Logger

	mu     sync.Mutex
	client *Client
}

// NewProvider configures lazy client construction. Nothing touches the
// network until the first Client call.
func NewProvider(apiURL string, creds Credentials, httpClient *http.Client, log *logger.Logger) *Provider {
	if log == nil {
		log = logger.NewDefault("sogni-provider")
	}
	return &Provider{
		apiURL:     apiURL,
		creds:      creds,
		httpClient: httpClient,
		log:        log,
	}
}

// Client returns the shared authenticated client, logging in on first use.
func (p *Provider) Client(ctx context.Context) (*Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}

	if p.creds.AppID == "" || p.creds.Username == "" || p.creds.Password == "" {
		return nil, apperr.Configuration("Sogni credentials are not set")
	}

	p.log.Info("initializing Sogni client")
	client, err := NewClient(p.httpClient, p.apiURL, p.log)
	if err != nil {
		return nil, apperr.Configuration("%s", err.Error())
	}
	if err := client.Login(ctx, p.creds); err != nil {
		return nil, apperr.Upstream(err, "Failed to initialize Sogni client")
	}

	p.client = client
	return p.client, nil
}
