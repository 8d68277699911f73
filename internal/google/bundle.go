package google

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teemow/apkship/internal/logging"
)

// maxBundleSize bounds the credential bundle download.
const maxBundleSize = 1 << 20

// BundleFetcher obtains the Credential Bundle, the OAuth client descriptor
// ({"installed": {...}} or {"web": {...}}) needed to start consent.
type BundleFetcher struct {
	url        string
	path       string
	httpClient *http.Client
	logger     logging.Logger
}

// NewBundleFetcher creates a fetcher that downloads from url and stores the
// bundle at path. A nil httpClient uses a client with a 30s timeout.
func NewBundleFetcher(url, path string, httpClient *http.Client, logger logging.Logger) *BundleFetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &BundleFetcher{
		url:        url,
		path:       path,
		httpClient: httpClient,
		logger:     logging.OrDefault(logger),
	}
}

// Fetch downloads the bundle and writes it to the local bundle path. Any
// network or validation error is returned as-is; there are no retries.
func (f *BundleFetcher) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create credentials request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download credentials: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to download credentials: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBundleSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials response: %w", err)
	}

	if _, err := ParseBundle(data, nil); err != nil {
		return nil, err
	}

	if err := writePrivateFile(f.path, data); err != nil {
		return nil, fmt.Errorf("failed to write credentials: %w", err)
	}

	f.logger.Info("credentials downloaded", logging.Path(f.path))
	return data, nil
}

// Load returns the local bundle when it exists and parses, otherwise it
// fetches a fresh one.
func (f *BundleFetcher) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err == nil {
		if _, perr := ParseBundle(data, nil); perr == nil {
			return data, nil
		}
		f.logger.Warn("local credentials are invalid, downloading again", logging.Path(f.path))
	}
	return f.Fetch(ctx)
}

// ParseBundle converts bundle JSON into an OAuth2 config for the given scopes.
func ParseBundle(data []byte, scopes []string) (*oauth2.Config, error) {
	conf, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials bundle: %w", err)
	}
	if conf.ClientID == "" {
		return nil, fmt.Errorf("invalid credentials bundle: missing client_id")
	}
	return conf, nil
}
