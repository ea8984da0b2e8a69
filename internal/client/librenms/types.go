// Package librenms provides a client for the LibreNMS API.
package librenms

import (
	"fmt"
	"strings"

	"librenms-netbox-sync/internal/model"
)

// portColumns are the port fields requested from the ports endpoint.
const portColumns = "port_id,ifName,ifDescr,ifAlias,ifSpeed,ifAdminStatus,ifOperStatus,ifPhysAddress,ifMtu"

// envelope carries the status fields common to every LibreNMS response.
type envelope struct {
	Status  string `json:"status"`  // "ok" or "error"
	Message string `json:"message"` // Error description when status is "error"
}

// DevicesResponse represents the response from /api/v0/devices.
type DevicesResponse struct {
	envelope
	Count   int                   `json:"count"`
	Devices []*model.SourceDevice `json:"devices"`
}

// PortsResponse represents the response from /api/v0/devices/:id/ports.
type PortsResponse struct {
	envelope
	Ports []PortData `json:"ports"`
}

// PortData is a raw port row as returned by LibreNMS.
type PortData struct {
	PortID        int64  `json:"port_id"`
	IfName        string `json:"ifName"`
	IfDescr       string `json:"ifDescr"`
	IfAlias       string `json:"ifAlias"`
	IfSpeed       int64  `json:"ifSpeed"`
	IfAdminStatus string `json:"ifAdminStatus"`
	IfOperStatus  string `json:"ifOperStatus"`
	IfPhysAddress string `json:"ifPhysAddress"`
	IfMtu         int    `json:"ifMtu"`
}

// ToSourcePort converts raw port data to the internal SourcePort model.
// The name falls back to ifDescr when ifName is empty.
func (p *PortData) ToSourcePort() model.SourcePort {
	name := strings.TrimSpace(p.IfName)
	if name == "" {
		name = strings.TrimSpace(p.IfDescr)
	}

	description := strings.TrimSpace(p.IfAlias)
	if description == "" && p.IfDescr != name {
		description = strings.TrimSpace(p.IfDescr)
	}

	return model.SourcePort{
		PortID:      p.PortID,
		Name:        name,
		Description: description,
		Speed:       p.IfSpeed,
		AdminStatus: p.IfAdminStatus,
		OperStatus:  p.IfOperStatus,
		PhysAddress: strings.TrimSpace(p.IfPhysAddress),
		MTU:         p.IfMtu,
	}
}

// AddressesResponse represents the response from /api/v0/devices/:id/ip.
type AddressesResponse struct {
	envelope
	Addresses []AddressData `json:"addresses"`
}

// AddressData is one IPv4 or IPv6 address row. Only one address family is populated.
type AddressData struct {
	PortID        int64  `json:"port_id"`
	IPv4Address   string `json:"ipv4_address"`
	IPv4PrefixLen int    `json:"ipv4_prefixlen"`
	IPv6Address   string `json:"ipv6_address"`
	IPv6Compact   string `json:"ipv6_compressed"`
	IPv6PrefixLen int    `json:"ipv6_prefixlen"`
}

// Address returns the address in CIDR form when a prefix length is known,
// or the bare address otherwise. Returns "" for empty rows.
func (a *AddressData) Address() string {
	addr, prefix := strings.TrimSpace(a.IPv4Address), a.IPv4PrefixLen
	if addr == "" {
		addr, prefix = strings.TrimSpace(a.IPv6Compact), a.IPv6PrefixLen
		if addr == "" {
			addr = strings.TrimSpace(a.IPv6Address)
		}
	}
	if addr == "" {
		return ""
	}
	if prefix > 0 && !strings.Contains(addr, "/") {
		return fmt.Sprintf("%s/%d", addr, prefix)
	}
	return addr
}

// ToBindings converts address rows to IP bindings. Interface names are resolved
// through the device's ports; rows whose port is unknown carry an empty name.
func ToBindings(addresses []AddressData, ports []model.SourcePort) []model.SourceIPBinding {
	names := make(map[int64]string, len(ports))
	for _, p := range ports {
		names[p.PortID] = p.Name
	}

	bindings := make([]model.SourceIPBinding, 0, len(addresses))
	for i := range addresses {
		addr := addresses[i].Address()
		if addr == "" {
			continue
		}
		bindings = append(bindings, model.SourceIPBinding{
			InterfaceName: names[addresses[i].PortID],
			Address:       addr,
			Status:        "active",
		})
	}
	return bindings
}
