// Package model provides data models for the sync tool.
package model

import (
	"strconv"
	"strings"
)

// GenericVendor is the vendor slug used when a device carries no vendor hint.
const GenericVendor = "generic"

// SourceDevice is a device record as reported by LibreNMS.
type SourceDevice struct {
	DeviceID  int64  `json:"device_id"` // Natural key shared with NetBox (custom field librenms_id)
	Hostname  string `json:"hostname"`
	SysName   string `json:"sysName"`
	Vendor    string `json:"vendor"`
	OS        string `json:"os"`
	Hardware  string `json:"hardware"`
	Model     string `json:"model"`
	Type      string `json:"type"`
	Serial    string `json:"serial"`
	AssetTag  string `json:"asset_tag"`
	Notes     string `json:"notes"`
	Location  string `json:"location"`
	Purpose   string `json:"purpose"`
	PrimaryIP string `json:"ip"`
}

// Valid reports whether the record has both a device id and a usable name.
func (d *SourceDevice) Valid() bool {
	return d != nil && d.DeviceID != 0 && d.Name() != ""
}

// Name returns the display name, preferring hostname over sysName.
func (d *SourceDevice) Name() string {
	if h := strings.TrimSpace(d.Hostname); h != "" {
		return h
	}
	return strings.TrimSpace(d.SysName)
}

// SourceID returns the device id as stored in the NetBox custom field.
func (d *SourceDevice) SourceID() string {
	return strconv.FormatInt(d.DeviceID, 10)
}

// VendorHint returns the raw vendor text, falling back to the OS name and then "generic".
func (d *SourceDevice) VendorHint() string {
	for _, v := range []string{d.Vendor, d.OS} {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return GenericVendor
}

// ModelHint returns the raw model text from hardware, model or type, in that order.
func (d *SourceDevice) ModelHint() string {
	for _, v := range []string{d.Hardware, d.Model, d.Type} {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// SourcePort is a network port reported by LibreNMS for one device.
type SourcePort struct {
	PortID      int64
	Name        string // ifName (falls back to ifDescr)
	Description string // ifAlias (falls back to ifDescr when it differs from Name)
	Speed       int64  // bits per second
	AdminStatus string
	OperStatus  string
	PhysAddress string
	MTU         int
}

// Enabled reports whether the port is operationally up.
func (p SourcePort) Enabled() bool {
	return strings.EqualFold(strings.TrimSpace(p.OperStatus), "up")
}

// SourceIPBinding is an address LibreNMS has seen on one of a device's ports.
type SourceIPBinding struct {
	InterfaceName string
	Address       string // Address as reported, with or without prefix length
	Status        string
}
