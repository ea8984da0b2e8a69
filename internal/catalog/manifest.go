package catalog

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrMalformedManifest is returned when a manifest cannot be parsed or
// identifies no device type.
var ErrMalformedManifest = errors.New("malformed device-type manifest")

// InterfaceTemplate is an interface declared by a device-type manifest.
type InterfaceTemplate struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	MgmtOnly bool   `yaml:"mgmt_only,omitempty"`
}

// Manifest is a device-type definition from the catalog repository.
type Manifest struct {
	Manufacturer string              `yaml:"manufacturer"`
	Model        string              `yaml:"model"`
	Slug         string              `yaml:"slug"`
	PartNumber   string              `yaml:"part_number,omitempty"`
	UHeight      *float64            `yaml:"u_height,omitempty"`
	IsFullDepth  *bool               `yaml:"is_full_depth,omitempty"`
	Airflow      string              `yaml:"airflow,omitempty"`
	Comments     string              `yaml:"comments,omitempty"`
	Interfaces   []InterfaceTemplate `yaml:"interfaces,omitempty"`
}

// ParseManifest decodes a YAML manifest. A document that is empty, is not a
// mapping, or names neither a manufacturer, a model nor a slug is malformed.
func ParseManifest(data []byte) (*Manifest, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedManifest)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedManifest, err)
	}

	if m.Manufacturer == "" && m.Model == "" && m.Slug == "" {
		return nil, fmt.Errorf("%w: no manufacturer, model or slug", ErrMalformedManifest)
	}

	return &m, nil
}
