package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"librenms-netbox-sync/internal/config"
)

// ErrManifestUnavailable is returned when a manifest could not be downloaded
// within the configured number of attempts.
var ErrManifestUnavailable = errors.New("device-type manifest unavailable")

// TreeResponse represents a GitHub git-trees listing.
type TreeResponse struct {
	SHA       string     `json:"sha"`
	Tree      []TreeItem `json:"tree"`
	Truncated bool       `json:"truncated"`
}

// TreeItem is one path in a git-trees listing.
type TreeItem struct {
	Path string `json:"path"`
	Type string `json:"type"` // "blob" or "tree"
}

// Source is an anonymous client for the catalog repository.
type Source struct {
	treeURL    string
	rawBaseURL string
	retry      config.RetryConfig
	httpClient *resty.Client
	logger     zerolog.Logger
}

// NewSource creates a catalog client. Each listing and download is attempted
// up to cfg.Attempts times with no wait between attempts.
func NewSource(cfg *config.CatalogConfig, logger zerolog.Logger) *Source {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	retry := cfg.Retry()

	rawBase := cfg.RawBaseURL
	if !strings.HasSuffix(rawBase, "/") {
		rawBase += "/"
	}

	httpClient := resty.New().
		SetTimeout(timeout).
		SetRetryCount(retry.MaxRetries).
		SetRetryWaitTime(retry.BaseDelay).
		SetRetryMaxWaitTime(retry.BaseDelay).
		AddRetryCondition(retryCondition)

	return &Source{
		treeURL:    cfg.TreeURL,
		rawBaseURL: rawBase,
		retry:      retry,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "catalog-source").Logger(),
	}
}

// retryCondition retries transport failures and any non-200 status. A body
// that arrives with 200 is never retried, so parse failures surface at once.
func retryCondition(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp != nil && resp.StatusCode() != http.StatusOK
}

// attempts is the number of tries the client makes per request.
func (s *Source) attempts() int {
	return s.retry.MaxRetries + 1
}

// ListPaths returns every blob path in the repository listing.
func (s *Source) ListPaths(ctx context.Context) ([]string, error) {
	var result TreeResponse
	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetHeader("Accept", "application/vnd.github+json").
		SetResult(&result).
		Get(s.treeURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog after %d attempts: %w", s.attempts(), err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("failed to list catalog after %d attempts: status %d", s.attempts(), resp.StatusCode())
	}

	if result.Truncated {
		s.logger.Warn().Int("paths", len(result.Tree)).Msg("catalog listing was truncated")
	}
	paths := make([]string, 0, len(result.Tree))
	for _, item := range result.Tree {
		if item.Type == "" || item.Type == "blob" {
			paths = append(paths, item.Path)
		}
	}
	return paths, nil
}

// FetchManifest downloads and parses the manifest at path. Transport errors and
// non-200 responses are retried; a manifest that downloads but does not parse
// is returned as ErrMalformedManifest without further attempts.
func (s *Source) FetchManifest(ctx context.Context, path string) (*Manifest, error) {
	target := s.rawBaseURL + escapePath(path)
	s.logger.Debug().Str("url", target).Msg("downloading manifest")

	resp, err := s.httpClient.R().SetContext(ctx).Get(target)
	if err == nil && resp.StatusCode() != http.StatusOK {
		err = fmt.Errorf("status %d", resp.StatusCode())
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("url", target).Int("attempts", s.attempts()).Msg("manifest download failed")
		return nil, fmt.Errorf("%w: %s after %d attempts: %v", ErrManifestUnavailable, path, s.attempts(), err)
	}

	m, err := ParseManifest(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// escapePath escapes each segment of a repository path for use in a URL.
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
