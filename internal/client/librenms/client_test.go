package librenms

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librenms-netbox-sync/internal/config"
	"librenms-netbox-sync/internal/model"
)

// setupTestServer creates a test server and LibreNMS client for testing.
func setupTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.LibreNMSConfig{
		Endpoint: server.URL,
		Token:    "test-token",
		Timeout:  5 * time.Second,
	}
	return NewClient(cfg, zerolog.Nop())
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestNewClient_DefaultTimeout(t *testing.T) {
	client := NewClient(&config.LibreNMSConfig{Endpoint: "http://localhost", Token: "x"}, zerolog.Nop())
	assert.Equal(t, 60*time.Second, client.timeout)
	assert.NotNil(t, client.httpClient)
}

func TestListDevices_Success(t *testing.T) {
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v0/devices", r.URL.Path)
		assert.Equal(t, "test-token", r.Header.Get("X-Auth-Token"))
		writeJSON(w, http.StatusOK, `{
			"status": "ok",
			"count": 2,
			"devices": [
				{"device_id": 9, "hostname": "nas1", "os": "dsm", "hardware": "DS420+", "serial": "S1", "location": "Rack 4", "ip": "10.0.0.75"},
				{"device_id": 10, "hostname": null, "sysName": "sw1", "os": "ios", "hardware": null}
			]
		}`)
	})

	devices, err := client.ListDevices(context.Background())

	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, int64(9), devices[0].DeviceID)
	assert.Equal(t, "nas1", devices[0].Name())
	assert.Equal(t, "DS420+", devices[0].Hardware)
	assert.Equal(t, "Rack 4", devices[0].Location)
	assert.Equal(t, "10.0.0.75", devices[0].PrimaryIP)
	assert.Equal(t, "sw1", devices[1].Name())
}

func TestListDevices_ErrorStatus(t *testing.T) {
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"status": "error", "message": "Unauthenticated."}`)
	})

	_, err := client.ListDevices(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestListDevices_ErrorPayload(t *testing.T) {
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"status": "error", "message": "database unavailable"}`)
	})

	_, err := client.ListDevices(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "database unavailable")
}

func TestListPorts_Success(t *testing.T) {
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v0/devices/9/ports", r.URL.Path)
		assert.Equal(t, portColumns, r.URL.Query().Get("columns"))
		writeJSON(w, http.StatusOK, `{
			"status": "ok",
			"ports": [
				{"port_id": 101, "ifName": "eth0", "ifDescr": "eth0", "ifAlias": "uplink", "ifSpeed": 1000000000,
				 "ifAdminStatus": "up", "ifOperStatus": "up", "ifPhysAddress": "00:11:32:aa:bb:cc", "ifMtu": 1500},
				{"port_id": 102, "ifName": "", "ifDescr": "bond0", "ifOperStatus": "down"}
			]
		}`)
	})

	ports, err := client.ListPorts(context.Background(), 9)

	require.NoError(t, err)
	require.Len(t, ports, 2)
	assert.Equal(t, model.SourcePort{
		PortID: 101, Name: "eth0", Description: "uplink", Speed: 1000000000,
		AdminStatus: "up", OperStatus: "up", PhysAddress: "00:11:32:aa:bb:cc", MTU: 1500,
	}, ports[0])
	assert.Equal(t, "bond0", ports[1].Name)
	assert.Empty(t, ports[1].Description)
	assert.False(t, ports[1].Enabled())
}

func TestListIPBindings_Success(t *testing.T) {
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v0/devices/9/ip", r.URL.Path)
		writeJSON(w, http.StatusOK, `{
			"status": "ok",
			"addresses": [
				{"port_id": 101, "ipv4_address": "10.0.0.75", "ipv4_prefixlen": 24},
				{"port_id": 101, "ipv6_address": "fe80:0000:0000:0000:0211:32ff:feaa:bbcc", "ipv6_compressed": "fe80::211:32ff:feaa:bbcc", "ipv6_prefixlen": 64},
				{"port_id": 999, "ipv4_address": "192.0.2.1"},
				{"port_id": 101}
			]
		}`)
	})

	ports := []model.SourcePort{{PortID: 101, Name: "eth0"}}
	bindings, err := client.ListIPBindings(context.Background(), 9, ports)

	require.NoError(t, err)
	require.Len(t, bindings, 3)
	assert.Equal(t, model.SourceIPBinding{InterfaceName: "eth0", Address: "10.0.0.75/24", Status: "active"}, bindings[0])
	assert.Equal(t, "fe80::211:32ff:feaa:bbcc/64", bindings[1].Address)
	assert.Equal(t, "", bindings[2].InterfaceName)
	assert.Equal(t, "192.0.2.1", bindings[2].Address)
}

func TestListPorts_ConnectionFailure(t *testing.T) {
	client := NewClient(&config.LibreNMSConfig{
		Endpoint: "http://127.0.0.1:1",
		Token:    "x",
		Timeout:  500 * time.Millisecond,
	}, zerolog.Nop())

	_, err := client.ListPorts(context.Background(), 1)
	assert.Error(t, err)
}
