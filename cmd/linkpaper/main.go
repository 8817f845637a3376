// Linkpaper pushes links saved in GoodLinks into an Instapaper account.
// Sync is one way and incremental: every GoodLinks save is submitted to
// Instapaper once, tracked in a local state database.
//
// Usage:
//
//	linkpaper init [--force]       # interactive first-run wizard
//	linkpaper [sync] [flags]       # one sync pass (default command)
//	linkpaper status               # show config, sync state, pending links
//	linkpaper reset [--yes]        # forget sync history
//	linkpaper uninstall [--purge]  # remove background job and installed files
//	linkpaper version              # print version
//
// Sync flags:
//
//	-n, --dry-run      report what would be submitted without submitting
//	-q, --quiet        log warnings and errors only
//	-r, --max-retries  override the configured retry count
//	    --config       alternate config file path
//	    --verbose      enable debug logging
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/njoerd114/linkpaper/internal/config"
	"github.com/njoerd114/linkpaper/internal/goodlinks"
	"github.com/njoerd114/linkpaper/internal/instapaper"
	"github.com/njoerd114/linkpaper/internal/model"
	"github.com/njoerd114/linkpaper/internal/setup"
	"github.com/njoerd114/linkpaper/internal/state"
	syncp "github.com/njoerd114/linkpaper/internal/sync"
	"github.com/njoerd114/linkpaper/internal/telemetry"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

// run dispatches to the appropriate subcommand. With no subcommand the
// default action is a sync pass, so launchd and cron lines stay short.
func run() error {
	args := os.Args[1:]
	if len(args) == 0 {
		return runSync(nil)
	}

	cmd := args[0]

	switch cmd {
	case "init":
		return runInit(args[1:])
	case "sync":
		return runSync(args[1:])
	case "status":
		return runStatus()
	case "reset":
		return runReset(args[1:])
	case "uninstall":
		return runUninstall(args[1:])
	case "version":
		fmt.Println("linkpaper", version)
		return nil
	case "help", "-h", "--help":
		return printUsage()
	}

	// Bare flags imply sync ("linkpaper -n", "linkpaper --quiet").
	if strings.HasPrefix(cmd, "-") {
		return runSync(args)
	}

	return fmt.Errorf("unknown command %q — run 'linkpaper help' for usage", cmd)
}

// printUsage shows help and suggests init if no config exists.
func printUsage() error {
	cfgPath, _ := config.DefaultPath()
	_, cfgErr := os.Stat(cfgPath)

	fmt.Fprintln(os.Stderr, "Linkpaper — push GoodLinks saves into Instapaper")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  linkpaper init [--force]        Interactive first-run wizard")
	fmt.Fprintln(os.Stderr, "  linkpaper [sync] [-n] [-q]      One sync pass (default command)")
	fmt.Fprintln(os.Stderr, "  linkpaper status                Show config, sync state, pending links")
	fmt.Fprintln(os.Stderr, "  linkpaper reset [--yes]         Forget sync history")
	fmt.Fprintln(os.Stderr, "  linkpaper uninstall [--purge]   Remove background job and files")
	fmt.Fprintln(os.Stderr, "  linkpaper version               Print version")
	fmt.Fprintln(os.Stderr, "")

	if cfgErr != nil {
		fmt.Fprintln(os.Stderr, "No config file found. Run 'linkpaper init' to get started.")
	}

	os.Exit(1)
	return nil // unreachable
}

// --- Subcommands -------------------------------------------------------------

// runInit launches the interactive setup wizard.
func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	var force bool
	fs.BoolVar(&force, "force", false, "overwrite an existing config without asking")
	fs.BoolVar(&force, "f", false, "shorthand for --force")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	wiz := setup.NewWizard(os.Stdin, os.Stdout, logger)
	return wiz.Run(ctx, force)
}

// runSync parses sync flags and performs a single sync pass.
func runSync(args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	defaultCfg, _ := config.DefaultPath()
	cfgPath := fs.String("config", defaultCfg, "path to config.yaml")

	var dryRun bool
	fs.BoolVar(&dryRun, "dry-run", false, "report what would be submitted without submitting")
	fs.BoolVar(&dryRun, "n", false, "shorthand for --dry-run")

	var quiet bool
	fs.BoolVar(&quiet, "quiet", false, "log warnings and errors only")
	fs.BoolVar(&quiet, "q", false, "shorthand for --quiet")

	var maxRetries int
	fs.IntVar(&maxRetries, "max-retries", -1, "override the configured retry count")
	fs.IntVar(&maxRetries, "r", -1, "shorthand for --max-retries")

	verbose := fs.Bool("verbose", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return err
	}

	return startSync(*cfgPath, dryRun, quiet, *verbose, maxRetries)
}

// runStatus prints configuration, sync state, and pending work.
func runStatus() error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cfgPath, _ := config.DefaultPath()
	homeDir, _ := os.UserHomeDir()
	dbPath, _ := state.DefaultDBPath()

	fmt.Println("Linkpaper Status")
	fmt.Println("────────────────")

	// Background job.
	if setup.IsAgentLoaded() {
		fmt.Println("  Background: scheduled (launchd)")
	} else {
		fmt.Println("  Background: not installed")
	}

	// Config.
	var cfg *config.Config
	if _, err := os.Stat(cfgPath); err == nil {
		if loaded, loadErr := config.Load(cfgPath); loadErr == nil {
			cfg = loaded
			fmt.Printf("  Config:     %s ✓\n", cfgPath)
			fmt.Printf("  Account:    %s\n", cfg.InstapaperUsername)
		} else {
			fmt.Printf("  Config:     %s (invalid: %v)\n", cfgPath, loadErr)
		}
	} else {
		fmt.Printf("  Config:     not found (%s)\n", cfgPath)
	}

	// Sync state. Only open the DB if it already exists; status must not
	// create one as a side effect.
	var store *state.Store
	if info, err := os.Stat(dbPath); err == nil {
		fmt.Printf("  State DB:   %s (%s)\n", dbPath, humanSize(info.Size()))
		if s, openErr := state.Open(dbPath); openErr == nil {
			store = s
			defer func() { _ = s.Close() }()
		}
	} else {
		fmt.Println("  State DB:   not found")
	}
	if store != nil {
		if sum, err := store.Summary(ctx); err == nil {
			fmt.Printf("  Synced:     %d link(s)\n", sum.Count)
			if sum.Count > 0 {
				fmt.Printf("  Last sync:  %s\n", sum.Newest.Local().Format("2006-01-02 15:04"))
			}
		}
	}

	// Live pending view, best effort. The GoodLinks store may be locked or
	// absent while the app is closed.
	if cfg != nil {
		printPending(ctx, cfg, store, logger)
	}

	// Plist.
	plistPath := setup.PlistPath(homeDir)
	if _, err := os.Stat(plistPath); err == nil {
		fmt.Printf("  Plist:      %s\n", plistPath)
	} else {
		fmt.Println("  Plist:      not installed")
	}

	// Logs.
	fmt.Printf("  Logs:       %s\n", setup.LogDir(homeDir))

	return nil
}

// printPending lists GoodLinks saves that have not been submitted yet, in
// the order the next run would submit them.
func printPending(ctx context.Context, cfg *config.Config, store *state.Store, logger *slog.Logger) {
	storePath := cfg.GoodLinksDBPath
	if storePath == "" {
		p, err := goodlinks.DefaultStorePath()
		if err != nil {
			return
		}
		storePath = p
	}

	links, err := goodlinks.NewReader(storePath, logger).ListCandidates(ctx)
	if err != nil {
		fmt.Println("  Library:    not readable (is GoodLinks installed?)")
		return
	}
	fmt.Printf("  Library:    %d link(s) in GoodLinks\n", len(links))

	var pending []model.Link
	for _, link := range links {
		if store != nil {
			if synced, isErr := store.IsSynced(ctx, link.ID); isErr == nil && synced {
				continue
			}
		}
		pending = append(pending, link)
	}
	fmt.Printf("  Pending:    %d link(s)\n", len(pending))

	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].SavedAt.Before(pending[j].SavedAt)
	})
	for i, link := range pending {
		if i == 10 {
			fmt.Printf("              ... and %d more\n", len(pending)-10)
			break
		}
		fmt.Printf("              - %s\n", link.DisplayTitle())
	}
}

// runReset clears all sync history after confirmation.
func runReset(args []string) error {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	dbPath, err := state.DefaultDBPath()
	if err != nil {
		return fmt.Errorf("resolving state DB path: %w", err)
	}
	store, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening state DB at %q: %w", dbPath, err)
	}
	defer func() { _ = store.Close() }()

	sum, err := store.Summary(ctx)
	if err != nil {
		return fmt.Errorf("reading sync state: %w", err)
	}
	if sum.Count == 0 {
		fmt.Println("No sync records to reset.")
		return nil
	}

	if !*yes {
		prompt := setup.NewPrompter(os.Stdin, os.Stdout)
		msg := fmt.Sprintf("Forget sync history for %d link(s)? The next run will submit them all again.", sum.Count)
		if !prompt.Confirm(msg, false) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := store.Reset(ctx); err != nil {
		return fmt.Errorf("resetting sync state: %w", err)
	}
	fmt.Println("Sync state reset.")
	return nil
}

// runUninstall stops the background job and removes installed files.
func runUninstall(args []string) error {
	fs := flag.NewFlagSet("uninstall", flag.ExitOnError)
	purge := fs.Bool("purge", false, "also remove config, state DB, and logs")
	if err := fs.Parse(args); err != nil {
		return err
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolving home directory: %w", err)
	}

	fmt.Println("Uninstalling Linkpaper...")

	// 1. Unload agent.
	if setup.IsAgentLoaded() {
		fmt.Println("  Unloading background job...")
		if err := setup.UnloadAgent(homeDir); err != nil {
			fmt.Printf("  ⚠ %v\n", err)
		} else {
			fmt.Println("  ✓ Background job unloaded")
		}
	}

	// 2. Remove plist.
	if err := setup.RemovePlist(homeDir); err != nil {
		fmt.Printf("  ⚠ %v\n", err)
	} else {
		fmt.Println("  ✓ Plist removed")
	}

	// 3. Remove binary.
	fmt.Println("  Removing binary...")
	if err := setup.RemoveBinary(); err != nil {
		fmt.Printf("  ⚠ %v\n", err)
	} else {
		fmt.Println("  ✓ Binary removed")
	}

	// 4. Optional purge.
	if *purge {
		fmt.Println("  Purging config, state DB, and logs...")
		if err := setup.PurgeUserData(homeDir); err != nil {
			fmt.Printf("  ⚠ %v\n", err)
		} else {
			fmt.Println("  ✓ User data purged")
		}
	} else {
		fmt.Println("")
		fmt.Println("  Config and sync state preserved.")
		fmt.Println("  Run with --purge to also remove them:")
		fmt.Println("    linkpaper uninstall --purge")
	}

	fmt.Println("")
	fmt.Println("✓ Linkpaper uninstalled.")
	return nil
}

// --- Sync core (shared by subcommand and bare-flag paths) ----------------------

// startSync loads config, wires the reader, client, state store, and
// optional launcher, and runs one engine pass.
func startSync(cfgPath string, dryRun, quiet, verbose bool, maxRetriesOverride int) error {
	// --- Logger --------------------------------------------------------------

	logLevel := slog.LevelInfo
	switch {
	case verbose:
		logLevel = slog.LevelDebug
	case quiet:
		logLevel = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// --- Config --------------------------------------------------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config from %q: %w", cfgPath, err)
	}
	maxRetries := *cfg.MaxRetries
	if maxRetriesOverride >= 0 {
		maxRetries = maxRetriesOverride
	}
	logger.Info("config loaded",
		"account", cfg.InstapaperUsername,
		"max_retries", maxRetries,
		"launch_goodlinks", cfg.LaunchGoodLinksEnabled(),
	)

	// --- Telemetry (optional) ------------------------------------------------

	if cfg.Telemetry != nil {
		telCfg := telemetry.Config{
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			Insecure:     cfg.Telemetry.Insecure,
			ServiceName:  cfg.Telemetry.ServiceName,
			Headers:      cfg.Telemetry.Headers,
		}
		shutdownTel, err := telemetry.Setup(context.Background(), telCfg)
		if err != nil {
			logger.Error("telemetry setup failed, continuing without telemetry", "error", err)
		} else {
			logger.Info("telemetry enabled", "endpoint", cfg.Telemetry.OTLPEndpoint)
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownTel(flushCtx); err != nil {
					logger.Error("telemetry shutdown error", "error", err)
				}
			}()
		}
	}

	// --- State DB ------------------------------------------------------------

	dbPath, err := state.DefaultDBPath()
	if err != nil {
		return fmt.Errorf("resolving state DB path: %w", err)
	}
	store, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening state DB at %q: %w", dbPath, err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Error("closing state DB", "error", closeErr)
		}
	}()
	logger.Info("state DB opened", "path", dbPath)

	// --- GoodLinks reader & launcher -------------------------------------------

	storePath := cfg.GoodLinksDBPath
	if storePath == "" {
		storePath, err = goodlinks.DefaultStorePath()
		if err != nil {
			return fmt.Errorf("resolving GoodLinks store path: %w", err)
		}
	}
	reader := goodlinks.NewReader(storePath, logger)

	var launcher syncp.Launcher
	if cfg.LaunchGoodLinksEnabled() {
		gl := goodlinks.NewLauncher(logger)
		launcher = gl
		defer func() {
			// The signal context may already be cancelled; quitting gets
			// its own so a started GoodLinks never stays behind.
			quitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			gl.QuitIfLaunched(quitCtx)
		}()
	}

	// --- Instapaper client -----------------------------------------------------

	client := instapaper.NewClient(cfg.InstapaperUsername, cfg.InstapaperPassword, cfg.RequestTimeout, maxRetries, logger)

	// --- Sync pass ---------------------------------------------------------------

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	engine := syncp.NewEngine(reader, client, store, launcher, logger)

	report, err := engine.Run(ctx, dryRun)
	logger.Info("sync finished",
		"candidates", report.CandidatesTotal,
		"already_synced", report.AlreadySynced,
		"newly_synced", report.NewlySynced,
		"failed", report.Failed,
		"dry_run", report.DryRun,
	)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d link(s) failed to submit: %s", report.Failed, strings.Join(report.FailedIDs, ", "))
	}
	return nil
}

// humanSize returns a human-readable file size string.
func humanSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
