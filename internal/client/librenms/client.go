// Package librenms provides a client for the LibreNMS API.
package librenms

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"librenms-netbox-sync/internal/config"
	"librenms-netbox-sync/internal/model"
)

// APIError is returned when LibreNMS answers with a non-200 status or an error payload.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("LibreNMS API returned status %d: %s", e.StatusCode, e.Message)
}

// Client is a read-only client for the LibreNMS API.
type Client struct {
	endpoint   string         // LibreNMS base URL
	timeout    time.Duration  // Request timeout
	httpClient *resty.Client  // HTTP client
	logger     zerolog.Logger // Logger
}

// NewClient creates a new LibreNMS API client.
func NewClient(cfg *config.LibreNMSConfig, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(timeout).
		SetHeader("X-Auth-Token", cfg.Token).
		SetHeader("Accept", "application/json")

	return &Client{
		endpoint:   cfg.Endpoint,
		timeout:    timeout,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "librenms-client").Logger(),
	}
}

// statusCarrier is implemented by every response type through the embedded envelope.
type statusCarrier interface {
	status() envelope
}

// get performs a GET request and checks both the HTTP status and the LibreNMS status field.
func (c *Client) get(ctx context.Context, path string, params map[string]string, result statusCarrier) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(result).
		Get(path)
	if err != nil {
		c.logger.Error().Err(err).Str("path", path).Msg("LibreNMS request failed")
		return fmt.Errorf("failed to fetch %s: %w", path, err)
	}

	if resp.StatusCode() != http.StatusOK {
		c.logger.Error().
			Int("status_code", resp.StatusCode()).
			Str("path", path).
			Str("body", string(resp.Body())).
			Msg("LibreNMS API returned non-200 status")
		return &APIError{StatusCode: resp.StatusCode(), Message: string(resp.Body())}
	}

	if env := result.status(); env.Status == "error" {
		c.logger.Error().Str("path", path).Str("api_error", env.Message).Msg("LibreNMS API returned error")
		return &APIError{StatusCode: resp.StatusCode(), Message: env.Message}
	}

	return nil
}

func (e *envelope) status() envelope { return *e }

// ListDevices retrieves every device known to LibreNMS.
func (c *Client) ListDevices(ctx context.Context) ([]*model.SourceDevice, error) {
	c.logger.Debug().Msg("fetching devices from LibreNMS")

	var result DevicesResponse
	if err := c.get(ctx, "/api/v0/devices", nil, &result); err != nil {
		return nil, err
	}

	c.logger.Info().Int("count", len(result.Devices)).Msg("fetched devices successfully")
	return result.Devices, nil
}

// ListPorts retrieves the ports of a single device.
func (c *Client) ListPorts(ctx context.Context, deviceID int64) ([]model.SourcePort, error) {
	var result PortsResponse
	path := "/api/v0/devices/" + strconv.FormatInt(deviceID, 10) + "/ports"
	if err := c.get(ctx, path, map[string]string{"columns": portColumns}, &result); err != nil {
		return nil, err
	}

	ports := make([]model.SourcePort, 0, len(result.Ports))
	for i := range result.Ports {
		ports = append(ports, result.Ports[i].ToSourcePort())
	}

	c.logger.Debug().Int64("device_id", deviceID).Int("count", len(ports)).Msg("fetched ports")
	return ports, nil
}

// ListIPBindings retrieves the IP addresses of a single device and binds each
// one to the name of the port it was seen on.
func (c *Client) ListIPBindings(ctx context.Context, deviceID int64, ports []model.SourcePort) ([]model.SourceIPBinding, error) {
	var result AddressesResponse
	path := "/api/v0/devices/" + strconv.FormatInt(deviceID, 10) + "/ip"
	if err := c.get(ctx, path, nil, &result); err != nil {
		return nil, err
	}

	bindings := ToBindings(result.Addresses, ports)
	c.logger.Debug().Int64("device_id", deviceID).Int("count", len(bindings)).Msg("fetched ip addresses")
	return bindings, nil
}
