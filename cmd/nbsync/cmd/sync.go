package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"librenms-netbox-sync/internal/catalog"
	"librenms-netbox-sync/internal/client/librenms"
	"librenms-netbox-sync/internal/client/netbox"
	"librenms-netbox-sync/internal/config"
	"librenms-netbox-sync/internal/model"
	"librenms-netbox-sync/internal/report"
	"librenms-netbox-sync/internal/service"
)

// Command flags
var (
	dryRun      bool     // Log NetBox writes instead of sending them
	interactive bool     // Prompt for ambiguous device types
	policyMode  string   // Disambiguation mode
	deviceIDs   []int64  // Restrict the run to these LibreNMS device ids
	outputDir   string   // Output directory for reports
	formats     []string // Output formats (excel, html)
	noReport    bool     // Skip report generation
)

// syncCmd represents the sync command.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile LibreNMS devices into NetBox",
	Long: `Run one reconciliation pass:
1. Resolve the configured site and role in NetBox (missing ones abort the run)
2. Load the devicetype-library catalog listing
3. For every LibreNMS device: resolve its device type, create the device
   when no device carries its librenms_id, then add missing interfaces,
   IP addresses and primary IPs
4. Write Excel and HTML run reports

Examples:
  # Preview the writes without touching NetBox
  nbsync sync -c config.yaml --dry-run

  # Ask on the console when a model has no exact catalog match
  nbsync sync -c config.yaml --interactive

  # Reconcile two devices only, HTML report in ./out
  nbsync sync --device-id 9 --device-id 12 -f html -o ./out`,
	Run: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	registerSyncFlags(syncCmd)
}

// registerSyncFlags binds the sync flags of cmd to the package flag variables.
func registerSyncFlags(syncCmd *cobra.Command) {
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "log NetBox writes instead of sending them")
	syncCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "prompt for ambiguous device types (same as --policy interactive)")
	syncCmd.Flags().StringVar(&policyMode, "policy", "", "disambiguation policy (interactive, best, generic, skip)")
	syncCmd.Flags().Int64SliceVar(&deviceIDs, "device-id", nil, "reconcile only these LibreNMS device ids")
	syncCmd.Flags().StringSliceVarP(&formats, "format", "f", nil, "report formats (excel,html), comma separated")
	syncCmd.Flags().StringVarP(&outputDir, "output", "o", "", "report output directory")
	syncCmd.Flags().BoolVar(&noReport, "no-report", false, "do not write run reports")
}

// runSync executes one reconciliation run.
func runSync(cmd *cobra.Command, args []string) {
	printBanner()

	configPath := GetConfigFile()
	if configPath != "" {
		fmt.Printf("📋 Loading config: %s\n", configPath)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}
	applySyncFlags(cmd, cfg)

	timezone := loadLocation(cfg.Report.Timezone)
	logger := setupLogger(effectiveLogLevel(cfg.Logging.Level), cfg.Logging.Format, timezone)
	logger.Debug().
		Str("config_path", configPath).
		Bool("dry_run", cfg.NetBox.DryRun).
		Str("policy", cfg.Sync.Disambiguation).
		Msg("configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source := librenms.NewClient(&cfg.LibreNMS, logger)
	var api netbox.API = netbox.NewClient(&cfg.NetBox, logger)
	var dry *netbox.DryRun
	if cfg.NetBox.DryRun {
		dry = netbox.NewDryRun(api, logger)
		api = dry
		fmt.Println("🧪 Dry run: NetBox writes are logged, not sent")
	}

	catalogSource := catalog.NewSource(&cfg.Catalog, logger)
	fmt.Print("📚 Loading device-type catalog")
	index := catalog.Load(ctx, catalogSource, cfg.Catalog.Root, logger)
	if index.Empty() {
		fmt.Println(" (unavailable, only the generic device type can be used)")
	} else {
		fmt.Printf(" (%d device types)\n", index.Len())
	}

	policy, err := service.NewPolicy(cfg.Sync.Disambiguation, os.Stdin, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	reconciler, err := service.NewReconciler(cfg, source, api, catalogSource, index, policy, logger,
		service.WithDryRun(cfg.NetBox.DryRun),
		service.WithVersion(Version),
		service.WithObserver(printOutcome),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to create reconciler: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("🔄 Reconciling devices...")
	result, err := reconciler.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("reconciliation aborted")
		fmt.Fprintf(os.Stderr, "❌ Reconciliation aborted: %v\n", err)
		os.Exit(1)
	}

	printSummary(result)
	if dry != nil {
		fmt.Printf("   Suppressed writes: %d\n", len(dry.Intents()))
	}

	if !noReport {
		writeReports(cfg, result, timezone, logger)
	}
}

// applySyncFlags lets command line flags override the loaded config.
// --interactive wins over --policy, which wins over the config file.
func applySyncFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("dry-run") {
		cfg.NetBox.DryRun = dryRun
	}
	if policyMode != "" {
		cfg.Sync.Disambiguation = policyMode
	}
	if interactive {
		cfg.Sync.Disambiguation = service.ModeInteractive
	}
	if len(deviceIDs) > 0 {
		cfg.Sync.DeviceIDs = deviceIDs
	}
}

// writeReports writes one report per configured format. A failed report is
// logged and does not change the exit status.
func writeReports(cfg *config.Config, result *model.RunResult, timezone *time.Location, logger zerolog.Logger) {
	outputFormats := resolveFormats(cfg)
	if len(outputFormats) == 0 {
		return
	}
	outputPath := resolveOutputDir(cfg)
	if err := os.MkdirAll(outputPath, 0o755); err != nil {
		logger.Error().Err(err).Str("output_dir", outputPath).Msg("failed to create output directory")
		fmt.Fprintf(os.Stderr, "❌ Failed to create output directory: %v\n", err)
		return
	}

	fmt.Println("📝 Writing reports...")
	registry := report.NewRegistry(timezone, cfg.Report.HTMLTemplate)
	filenameBase := generateFilename(cfg.Report.FilenameTemplate, timezone)

	// Formats render independently; results are printed in format order.
	paths := make([]string, len(outputFormats))
	errs := make([]error, len(outputFormats))
	var g errgroup.Group
	g.SetLimit(len(outputFormats))
	for i, format := range outputFormats {
		i, format := i, format
		g.Go(func() error {
			writer, err := registry.Get(format)
			if err != nil {
				errs[i] = err
				return nil
			}
			paths[i] = filepath.Join(outputPath, filenameBase+report.Extension(format))
			errs[i] = writer.Write(result, paths[i])
			return nil
		})
	}
	_ = g.Wait()

	for i, format := range outputFormats {
		if err := errs[i]; err != nil {
			logger.Error().Err(err).Str("format", format).Str("path", paths[i]).Msg("failed to generate report")
			fmt.Fprintf(os.Stderr, "   ❌ %s report failed: %v\n", format, err)
			continue
		}
		logger.Info().Str("format", format).Str("path", paths[i]).Msg("report generated successfully")
		fmt.Printf("   ✅ %s\n", paths[i])
	}
}

// printBanner prints the application banner.
func printBanner() {
	fmt.Printf("🔗 LibreNMS → NetBox sync %s\n", Version)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
}

// printOutcome prints one line per reconciled device.
func printOutcome(o model.Outcome) {
	switch o.State {
	case model.StateCreated:
		fmt.Printf("   + %s (%s) created with device type %s\n", o.Name, o.SourceID, o.DeviceTypeSlug)
	case model.StateMatched:
		fmt.Printf("   = %s (%s) already exists\n", o.Name, o.SourceID)
	default:
		line := fmt.Sprintf("   - %s (%s) skipped: %s", o.Name, o.SourceID, o.Reason)
		if o.Error != "" {
			line += " (" + o.Error + ")"
		}
		fmt.Println(line)
	}
}

// printSummary prints the run summary.
func printSummary(result *model.RunResult) {
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	s := result.Summary
	if s == nil {
		return
	}
	fmt.Printf("   Devices:    %d\n", s.TotalDevices)
	fmt.Printf("   Created:    %d\n", s.CreatedDevices)
	fmt.Printf("   Matched:    %d\n", s.MatchedDevices)
	fmt.Printf("   Skipped:    %d\n", s.SkippedDevices)
	for _, reason := range s.Reasons() {
		fmt.Printf("     %-18s %d\n", string(reason)+":", s.SkippedByReason[reason])
	}
	fmt.Printf("   Interfaces: %d created\n", s.InterfacesCreated)
	fmt.Printf("   Addresses:  %d created\n", s.AddressesCreated)
	fmt.Printf("   Primary IP: %d set\n", s.PrimaryIPsSet)
	fmt.Printf("   Duration:   %s\n", result.Duration.Round(time.Millisecond))
}

// resolveFormats determines the output formats to use.
// Command line flags take precedence over config file.
func resolveFormats(cfg *config.Config) []string {
	if len(formats) > 0 {
		return formats
	}
	return cfg.Report.Formats
}

// resolveOutputDir determines the output directory to use.
// Command line flags take precedence over config file.
func resolveOutputDir(cfg *config.Config) string {
	if outputDir != "" {
		return outputDir
	}
	if cfg.Report.OutputDir != "" {
		return cfg.Report.OutputDir
	}
	return "./reports"
}

// generateFilename creates a filename from the template.
// Supports {{.Date}} and {{.Time}} placeholders.
func generateFilename(template string, tz *time.Location) string {
	if template == "" {
		template = "sync_report_{{.Date}}"
	}

	now := time.Now().In(tz)
	replacer := strings.NewReplacer(
		"{{.Date}}", now.Format("2006-01-02"),
		"{{ .Date }}", now.Format("2006-01-02"),
		"{{.Time}}", now.Format("150405"),
		"{{ .Time }}", now.Format("150405"),
	)
	return replacer.Replace(template)
}
