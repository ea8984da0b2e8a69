// Package netbox provides a client for the NetBox API.
package netbox

import "fmt"

// NetBox resources used by the sync tool, relative to /api/.
const (
	ResourceManufacturers = "dcim/manufacturers/"
	ResourceDeviceTypes   = "dcim/device-types/"
	ResourceSites         = "dcim/sites/"
	ResourceDeviceRoles   = "dcim/device-roles/"
	ResourcePlatforms     = "dcim/platforms/"
	ResourceDevices       = "dcim/devices/"
	ResourceInterfaces    = "dcim/interfaces/"
	ResourceIPAddresses   = "ipam/ip-addresses/"
)

// ListResponse represents a paginated NetBox list response.
type ListResponse struct {
	Count   int      `json:"count"`
	Next    *string  `json:"next"`
	Results []Object `json:"results"`
}

// First returns the first result, or nil when the list is empty.
func (r *ListResponse) First() *Object {
	if r == nil || r.Count == 0 || len(r.Results) == 0 {
		return nil
	}
	return &r.Results[0]
}

// Object is the subset of NetBox object fields the sync tool reads back.
// A zero ID means the object was not actually written (dry run).
type Object struct {
	ID           int64                  `json:"id"`
	Name         string                 `json:"name,omitempty"`
	Slug         string                 `json:"slug,omitempty"`
	Model        string                 `json:"model,omitempty"`
	Address      string                 `json:"address,omitempty"`
	PrimaryIP4   *NestedObject          `json:"primary_ip4,omitempty"`
	PrimaryIP6   *NestedObject          `json:"primary_ip6,omitempty"`
	CustomFields map[string]interface{} `json:"custom_fields,omitempty"`
}

// NestedObject is a brief representation of a related object.
type NestedObject struct {
	ID      int64  `json:"id"`
	Display string `json:"display,omitempty"`
	Address string `json:"address,omitempty"`
}

// APIError is returned when NetBox answers a request with a non-2xx status.
type APIError struct {
	StatusCode int
	Method     string
	Resource   string
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("NetBox %s %s returned status %d: %s", e.Method, e.Resource, e.StatusCode, e.Body)
}

// IsConflict reports whether the error looks like a uniqueness violation.
// NetBox reports duplicate slugs and names as 400 validation errors.
func (e *APIError) IsConflict() bool {
	return e.StatusCode == 400 || e.StatusCode == 409
}
