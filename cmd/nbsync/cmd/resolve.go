package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"librenms-netbox-sync/internal/catalog"
	"librenms-netbox-sync/internal/config"
	"librenms-netbox-sync/internal/service"
)

var (
	resolveCutoff float64 // Overrides catalog.cutoff
	resolveMax    int     // Overrides catalog.max_suggestions
)

// resolveCmd represents the resolve command.
var resolveCmd = &cobra.Command{
	Use:   "resolve <vendor> <model>",
	Short: "Resolve one vendor/model against the device-type catalog",
	Long: `Look a vendor and model up in the devicetype-library catalog the same way
sync does and print the exact match or the ranked suggestions. NetBox and
LibreNMS are not contacted, so their credentials are not required.

Examples:
  nbsync resolve Synology DS420+
  nbsync resolve "Dell Inc." "PowerEdge R740" --max-suggestions 8`,
	Args: cobra.ExactArgs(2),
	Run:  runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	registerResolveFlags(resolveCmd)
}

// registerResolveFlags binds the resolve flags of cmd to the package flag variables.
func registerResolveFlags(resolveCmd *cobra.Command) {
	resolveCmd.Flags().Float64Var(&resolveCutoff, "cutoff", 0, "minimum similarity for suggestions, 0.3 to 0.5 (default from config)")
	resolveCmd.Flags().IntVar(&resolveMax, "max-suggestions", 0, "maximum number of suggestions, 1 to 10 (default from config)")
}

// runResolve executes the resolve command logic.
func runResolve(cmd *cobra.Command, args []string) {
	cfg, err := config.LoadCatalog(GetConfigFile())
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := applyResolveFlags(cmd, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Invalid flags: %v\n", err)
		os.Exit(1)
	}

	timezone := loadLocation(cfg.Report.Timezone)
	logger := setupLogger(effectiveLogLevel(cfg.Logging.Level), cfg.Logging.Format, timezone)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	index := catalog.Load(ctx, catalog.NewSource(&cfg.Catalog, logger), cfg.Catalog.Root, logger)
	if index.Empty() {
		fmt.Fprintln(os.Stderr, "❌ Device-type catalog is unavailable")
		os.Exit(1)
	}

	resolver := service.NewResolver(index,
		service.WithCutoff(cfg.Catalog.Cutoff),
		service.WithMaxSuggestions(cfg.Catalog.MaxSuggestions),
	)
	res := resolver.Resolve(args[0], args[1])

	fmt.Printf("🔎 %s / %s -> %s/%s\n", args[0], args[1], res.Vendor, res.Slug)
	switch res.Kind {
	case service.Exact:
		fmt.Printf("✅ Exact match: %s\n", res.Entry.Path)
	case service.Ambiguous:
		fmt.Printf("⚠️  No exact match, %d suggestion(s):\n", len(res.Candidates))
		for i, c := range res.Candidates {
			fmt.Printf("  %d) %s (score %.2f)\n", i+1, c.Entry.Path, c.Score)
		}
	default:
		fmt.Println("❌ Not found in the catalog")
		os.Exit(1)
	}
}

// applyResolveFlags copies --cutoff and --max-suggestions into the catalog
// config and validates the result with the same rules as the config file.
func applyResolveFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("cutoff") {
		cfg.Catalog.Cutoff = resolveCutoff
	}
	if cmd.Flags().Changed("max-suggestions") {
		cfg.Catalog.MaxSuggestions = resolveMax
	}
	return config.ValidateCatalog(cfg)
}
