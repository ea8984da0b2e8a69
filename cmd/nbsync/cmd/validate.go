package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"librenms-netbox-sync/internal/config"
)

// validateCmd represents the validate command.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long:  "Load the configuration file and environment, then check required fields, value ranges and business rules.",
	Run:   runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// runValidate executes the validate command logic.
func runValidate(cmd *cobra.Command, args []string) {
	configPath := GetConfigFile()

	// Load calls Validate
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration is invalid: %v\n", err)
		os.Exit(1)
	}

	source := configPath
	if source == "" {
		source = "defaults and environment"
	}
	fmt.Printf("✅ Configuration is valid: %s\n", source)
	fmt.Printf("   Site: %s, role: %s, policy: %s\n", cfg.Sync.Site, cfg.Sync.Role, cfg.Sync.Disambiguation)
}
