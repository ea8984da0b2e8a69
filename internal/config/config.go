// Package config provides configuration management for the sync tool.
package config

import "time"

// Config is the root configuration structure for the sync tool.
type Config struct {
	LibreNMS LibreNMSConfig `mapstructure:"librenms" validate:"required"`
	NetBox   NetBoxConfig   `mapstructure:"netbox" validate:"required"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Report   ReportConfig   `mapstructure:"report"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// LibreNMSConfig contains configuration for the LibreNMS API (the inventory source).
type LibreNMSConfig struct {
	Endpoint string        `mapstructure:"endpoint" validate:"required,url"`
	Token    string        `mapstructure:"token" validate:"required"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// NetBoxConfig contains configuration for the NetBox API (the reconciliation target).
type NetBoxConfig struct {
	Endpoint string        `mapstructure:"endpoint" validate:"required,url"`
	Token    string        `mapstructure:"token" validate:"required"`
	Timeout  time.Duration `mapstructure:"timeout"`
	DryRun   bool          `mapstructure:"dry_run"` // Log writes instead of sending them
}

// DefaultCatalogAttempts is the number of tries for each catalog request.
const DefaultCatalogAttempts = 5

// CatalogConfig contains configuration for the device-type catalog repository.
type CatalogConfig struct {
	TreeURL    string        `mapstructure:"tree_url" validate:"required,url"`     // Recursive listing endpoint
	RawBaseURL string        `mapstructure:"raw_base_url" validate:"required,url"` // Prefix for raw manifest downloads
	Root       string        `mapstructure:"root"`                                 // Directory holding vendor folders (e.g., "device-types")
	Timeout    time.Duration `mapstructure:"timeout"`
	Attempts   int           `mapstructure:"attempts" validate:"gte=1,lte=10"`

	// Cutoff is the minimum similarity a fuzzy candidate needs to be suggested.
	Cutoff         float64 `mapstructure:"cutoff" validate:"gte=0.3,lte=0.5"`
	MaxSuggestions int     `mapstructure:"max_suggestions" validate:"gte=1,lte=10"`

	// GenericWhenUnavailable falls back to the generic device type when the
	// catalog listing could not be loaded.
	GenericWhenUnavailable bool `mapstructure:"generic_when_unavailable"`
}

// RetryConfig controls how failed HTTP requests are repeated.
type RetryConfig struct {
	MaxRetries int           // Retries after the first attempt
	BaseDelay  time.Duration // Wait before the first retry; zero retries immediately
}

// Retry returns the retry policy for catalog requests: Attempts tries in
// total, with no wait between them.
func (c CatalogConfig) Retry() RetryConfig {
	attempts := c.Attempts
	if attempts < 1 {
		attempts = DefaultCatalogAttempts
	}
	return RetryConfig{MaxRetries: attempts - 1}
}

// SyncConfig controls the reconciliation run.
type SyncConfig struct {
	Site           string  `mapstructure:"site" validate:"required"` // Site slug every new device is placed in
	Role           string  `mapstructure:"role" validate:"required"` // Device role slug every new device gets
	Interfaces     bool    `mapstructure:"interfaces"`               // Synchronize ports as interfaces
	IPAddresses    bool    `mapstructure:"ip_addresses"`             // Synchronize IP bindings
	InterfaceType  string  `mapstructure:"interface_type" validate:"required"`
	Disambiguation string  `mapstructure:"disambiguation" validate:"oneof=interactive best generic skip"`
	DeviceIDs      []int64 `mapstructure:"device_ids"` // Restrict the run to these source devices
}

// ReportConfig contains configurations for run report generation.
type ReportConfig struct {
	OutputDir        string   `mapstructure:"output_dir"`
	Formats          []string `mapstructure:"formats" validate:"dive,oneof=excel html"`
	FilenameTemplate string   `mapstructure:"filename_template"`
	HTMLTemplate     string   `mapstructure:"html_template"`
	Timezone         string   `mapstructure:"timezone"`
}

// LoggingConfig contains configurations for logging.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}
