// Package config provides configuration management for the sync tool.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// legacyEnv maps configuration keys to the environment variable names used by
// earlier deployments of the sync job. They are consulted after the NBSYNC_* names.
var legacyEnv = map[string]string{
	"librenms.endpoint": "LIBRENMS_URL",
	"librenms.token":    "LIBRENMS_TOKEN",
	"netbox.endpoint":   "NETBOX_URL",
	"netbox.token":      "NETBOX_TOKEN",
	"netbox.dry_run":    "DRY_RUN",
	"sync.site":         "DEFAULT_SITE_SLUG",
	"sync.role":         "DEFAULT_ROLE_SLUG",
}

// Load reads configuration from the specified YAML file and environment variables.
// Environment variables take precedence over file values.
// Environment variable format: NBSYNC_<SECTION>_<KEY> (e.g., NBSYNC_NETBOX_TOKEN)
// An empty configPath loads defaults and environment only.
func Load(configPath string) (*Config, error) {
	cfg, err := read(configPath)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadCatalog is like Load but only validates the catalog section, for
// commands that never contact LibreNMS or NetBox.
func LoadCatalog(configPath string) (*Config, error) {
	cfg, err := read(configPath)
	if err != nil {
		return nil, err
	}

	if err := ValidateCatalog(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// read merges defaults, the config file and the environment without validating.
func read(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults first
	setDefaults(v)

	// Configure environment variable binding
	v.SetEnvPrefix("NBSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}

		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// LibreNMS and NetBox endpoints are accepted with or without a trailing slash.
	cfg.LibreNMS.Endpoint = strings.TrimRight(cfg.LibreNMS.Endpoint, "/")
	cfg.NetBox.Endpoint = strings.TrimRight(cfg.NetBox.Endpoint, "/")

	return &cfg, nil
}

// bindEnv binds keys without defaults so AutomaticEnv sees them during Unmarshal.
func bindEnv(v *viper.Viper) error {
	for key, legacy := range legacyEnv {
		prefixed := "NBSYNC_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}
	return nil
}

// setDefaults sets default values for all configuration options.
func setDefaults(v *viper.Viper) {
	// Datasources defaults
	v.SetDefault("librenms.timeout", 60*time.Second)
	v.SetDefault("netbox.timeout", 60*time.Second)
	v.SetDefault("netbox.dry_run", false)

	// Catalog defaults - public netbox-community device-type library
	v.SetDefault("catalog.tree_url", "https://api.github.com/repos/netbox-community/devicetype-library/git/trees/master?recursive=1")
	v.SetDefault("catalog.raw_base_url", "https://raw.githubusercontent.com/netbox-community/devicetype-library/master/")
	v.SetDefault("catalog.root", "device-types")
	v.SetDefault("catalog.timeout", 20*time.Second)
	v.SetDefault("catalog.attempts", DefaultCatalogAttempts)
	v.SetDefault("catalog.cutoff", 0.4)
	v.SetDefault("catalog.max_suggestions", 4)
	v.SetDefault("catalog.generic_when_unavailable", true)

	// Sync defaults
	v.SetDefault("sync.interfaces", true)
	v.SetDefault("sync.ip_addresses", true)
	v.SetDefault("sync.interface_type", "other")
	v.SetDefault("sync.disambiguation", "skip")
	v.SetDefault("sync.device_ids", []int64{})

	// Report defaults
	v.SetDefault("report.output_dir", "./reports")
	v.SetDefault("report.formats", []string{"excel", "html"})
	v.SetDefault("report.filename_template", "sync_report_{{.Date}}")
	v.SetDefault("report.timezone", "UTC")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}
