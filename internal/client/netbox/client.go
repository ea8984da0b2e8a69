// Package netbox provides a client for the NetBox API.
package netbox

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"librenms-netbox-sync/internal/config"
)

// API is the generic read/write surface used for every NetBox resource.
type API interface {
	// Get lists objects of resource matching the given query filters.
	Get(ctx context.Context, resource string, filters map[string]string) (*ListResponse, error)
	// Create posts payload to resource and returns the created object.
	Create(ctx context.Context, resource string, payload interface{}) (*Object, error)
	// Patch partially updates the object with the given id.
	Patch(ctx context.Context, resource string, id int64, payload interface{}) (*Object, error)
}

// Client is a client for the NetBox REST API.
type Client struct {
	endpoint   string         // NetBox base URL
	timeout    time.Duration  // Request timeout
	httpClient *resty.Client  // HTTP client
	logger     zerolog.Logger // Logger
}

var _ API = (*Client)(nil)

// NewClient creates a new NetBox API client.
func NewClient(cfg *config.NetBoxConfig, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.Endpoint+"/api").
		SetTimeout(timeout).
		SetHeader("Authorization", "Token "+cfg.Token).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		endpoint:   cfg.Endpoint,
		timeout:    timeout,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "netbox-client").Logger(),
	}
}

// Get lists objects of resource matching filters.
func (c *Client) Get(ctx context.Context, resource string, filters map[string]string) (*ListResponse, error) {
	var result ListResponse

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(filters).
		SetResult(&result).
		Get(resource)
	if err != nil {
		c.logger.Error().Err(err).Str("resource", resource).Msg("NetBox request failed")
		return nil, fmt.Errorf("failed to query %s: %w", resource, err)
	}

	if !resp.IsSuccess() {
		return nil, c.apiError(resp, "GET", resource)
	}

	c.logger.Debug().
		Str("resource", resource).
		Interface("filters", filters).
		Int("count", result.Count).
		Msg("queried NetBox")

	return &result, nil
}

// Create posts payload to resource.
func (c *Client) Create(ctx context.Context, resource string, payload interface{}) (*Object, error) {
	var result Object

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&result).
		Post(resource)
	if err != nil {
		c.logger.Error().Err(err).Str("resource", resource).Msg("NetBox request failed")
		return nil, fmt.Errorf("failed to create %s: %w", resource, err)
	}

	if !resp.IsSuccess() {
		c.logger.Error().
			Str("resource", resource).
			Interface("payload", payload).
			Int("status_code", resp.StatusCode()).
			Str("body", string(resp.Body())).
			Msg("NetBox rejected create")
		return nil, c.apiError(resp, "POST", resource)
	}

	c.logger.Debug().Str("resource", resource).Int64("id", result.ID).Msg("created NetBox object")
	return &result, nil
}

// Patch partially updates object id of resource.
func (c *Client) Patch(ctx context.Context, resource string, id int64, payload interface{}) (*Object, error) {
	var result Object
	path := resource + strconv.FormatInt(id, 10) + "/"

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&result).
		Patch(path)
	if err != nil {
		c.logger.Error().Err(err).Str("resource", path).Msg("NetBox request failed")
		return nil, fmt.Errorf("failed to patch %s: %w", path, err)
	}

	if !resp.IsSuccess() {
		return nil, c.apiError(resp, "PATCH", path)
	}

	c.logger.Debug().Str("resource", path).Msg("patched NetBox object")
	return &result, nil
}

func (c *Client) apiError(resp *resty.Response, method, resource string) *APIError {
	c.logger.Debug().
		Str("method", method).
		Str("resource", resource).
		Int("status_code", resp.StatusCode()).
		Msg("NetBox API returned error status")
	return &APIError{
		StatusCode: resp.StatusCode(),
		Method:     method,
		Resource:   resource,
		Body:       string(resp.Body()),
	}
}
