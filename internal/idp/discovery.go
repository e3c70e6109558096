package idp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/mkessler/auth-front/internal/config"
	"github.com/mkessler/auth-front/internal/ioutil"
	"github.com/mkessler/auth-front/internal/log"
)

// discoveryCacheTTL bounds how long a fetched discovery document is reused
// before it is re-fetched.
const discoveryCacheTTL = 5 * time.Minute

// Document is an OIDC provider's discovery document. Issuer and the
// userinfo endpoint are optional; the three endpoint fields below are what
// the login flow needs.
type Document struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	JWKSURI               string `json:"jwks_uri"`
}

// Factory builds relying-party clients from provider configuration,
// caching discovery documents per metadata URL.
type Factory struct {
	httpClient *http.Client

	mu    sync.Mutex
	cache map[string]cachedDocument
}

type cachedDocument struct {
	doc     Document
	fetched time.Time
}

func NewFactory() *Factory {
	return &Factory{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      make(map[string]cachedDocument),
	}
}

// Client builds a relying-party client for the given provider, fetching its
// discovery document if no fresh cached copy exists.
func (f *Factory) Client(ctx context.Context, cfg config.ProviderConfig, redirectURI string) (*Client, error) {
	doc, err := f.discover(ctx, cfg.ServerMetadataURL)
	if err != nil {
		return nil, err
	}
	return newClient(cfg, doc, redirectURI, f.httpClient), nil
}

func (f *Factory) discover(ctx context.Context, metadataURL string) (Document, error) {
	f.mu.Lock()
	cached, ok := f.cache[metadataURL]
	f.mu.Unlock()
	if ok && time.Since(cached.fetched) < discoveryCacheTTL {
		return cached.doc, nil
	}

	doc, err := f.fetchDiscovery(ctx, metadataURL)
	if err != nil {
		return Document{}, err
	}

	f.mu.Lock()
	f.cache[metadataURL] = cachedDocument{doc: doc, fetched: time.Now()}
	f.mu.Unlock()

	log.LogDebugWithFields("idp", "Fetched discovery document", map[string]any{
		"metadata_url":   metadataURL,
		"authorize_url":  doc.AuthorizationEndpoint,
		"token_endpoint": doc.TokenEndpoint,
	})
	return doc, nil
}

func (f *Factory) fetchDiscovery(ctx context.Context, metadataURL string) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataURL, nil)
	if err != nil {
		return Document{}, &DiscoveryError{URL: metadataURL, Err: err}
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Document{}, &DiscoveryError{URL: metadataURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Document{}, &DiscoveryError{
			URL: metadataURL,
			Err: fmt.Errorf("discovery endpoint returned status %d: %s", resp.StatusCode, ioutil.ReadLimited(resp.Body, 1024)),
		}
	}

	var doc Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return Document{}, &DiscoveryError{URL: metadataURL, Err: fmt.Errorf("failed to decode discovery document: %w", err)}
	}

	if doc.AuthorizationEndpoint == "" {
		return Document{}, &DiscoveryError{URL: metadataURL, Err: fmt.Errorf("discovery document missing %q", "authorization_endpoint")}
	}
	if doc.TokenEndpoint == "" {
		return Document{}, &DiscoveryError{URL: metadataURL, Err: fmt.Errorf("discovery document missing %q", "token_endpoint")}
	}

	return doc, nil
}
