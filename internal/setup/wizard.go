package setup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/njoerd114/linkpaper/internal/config"
	"github.com/njoerd114/linkpaper/internal/instapaper"
	"github.com/njoerd114/linkpaper/internal/model"
)

// Wizard guides the user through first-run configuration and installation.
type Wizard struct {
	prompt *Prompter
	logger *slog.Logger
	w      io.Writer
}

// NewWizard creates a Wizard wired to the given I/O and logger.
func NewWizard(r io.Reader, w io.Writer, logger *slog.Logger) *Wizard {
	return &Wizard{
		prompt: NewPrompter(r, w),
		logger: logger,
		w:      w,
	}
}

// Run executes the interactive setup wizard. It collects and verifies the
// Instapaper credentials, checks the GoodLinks store, writes the config
// file, and offers to install the background sync job. With force set, an
// existing config is overwritten without asking.
func (wiz *Wizard) Run(ctx context.Context, force bool) error {
	fmt.Fprintf(wiz.w, "\nWelcome to linkpaper setup!\n")
	fmt.Fprintf(wiz.w, "This wizard connects your GoodLinks library to your Instapaper account.\n\n")

	cfgPath, err := config.DefaultPath()
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}

	if _, statErr := os.Stat(cfgPath); statErr == nil && !force {
		fmt.Fprintf(wiz.w, "  Existing config found at %s\n", cfgPath)
		if !wiz.prompt.Confirm("Overwrite existing configuration?", false) {
			fmt.Fprintf(wiz.w, "\n  Keeping existing config.\n")
			return wiz.offerBackgroundInstall()
		}
		fmt.Fprintf(wiz.w, "\n")
	}

	// Step 1: Instapaper account.
	fmt.Fprintf(wiz.w, "Step 1/3 — Instapaper Account\n")

	username := wiz.prompt.String("Email", "")
	password := wiz.prompt.Secret("Password (leave empty if your account has none)")

	fmt.Fprintf(wiz.w, "  Checking credentials...")
	client := instapaper.NewClient(username, password, 30*time.Second, 1, wiz.logger)
	if err := client.Verify(ctx); err != nil {
		fmt.Fprintf(wiz.w, " ✗\n")
		if errors.Is(err, model.ErrAuthFailed) {
			return fmt.Errorf("instapaper rejected the credentials: %w\n\n  Check the email and password, then try again", err)
		}
		return fmt.Errorf("cannot reach Instapaper: %w\n\n  Check your connection, then try again", err)
	}
	fmt.Fprintf(wiz.w, " ✓\n\n")

	// Step 2: GoodLinks store.
	fmt.Fprintf(wiz.w, "Step 2/3 — GoodLinks Library\n")

	probe, probeErr := ProbeStore(ctx, "", wiz.logger)
	if probeErr != nil {
		wiz.logger.Warn("could not read GoodLinks store", "error", probeErr)
		fmt.Fprintf(wiz.w, "  ⚠ Could not read the GoodLinks store at\n    %s\n", probe.Path)
		fmt.Fprintf(wiz.w, "  Open GoodLinks once so it creates its library, or let sync start it.\n")
	} else {
		fmt.Fprintf(wiz.w, "  ✓ Found %d saved link(s) ready to sync.\n", probe.Links)
	}

	launch := wiz.prompt.Confirm("Allow sync to start GoodLinks when its store is unreadable?", true)
	fmt.Fprintf(wiz.w, "\n")

	// Step 3: Write config.
	fmt.Fprintf(wiz.w, "Step 3/3 — Save Configuration\n")

	cfg := &config.Config{
		InstapaperUsername: username,
		InstapaperPassword: password,
		LaunchGoodLinks:    &launch,
	}

	if err := cfg.Write(cfgPath); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Fprintf(wiz.w, "  ✓ Config written to %s\n\n", cfgPath)

	return wiz.offerBackgroundInstall()
}

// offerBackgroundInstall asks the user whether to install the launchd job
// that syncs every few hours.
func (wiz *Wizard) offerBackgroundInstall() error {
	if !wiz.prompt.Confirm("Install background sync (runs every 3 hours)?", true) {
		fmt.Fprintf(wiz.w, "\n  Skipping background install.\n")
		fmt.Fprintf(wiz.w, "  You can sync manually with: linkpaper sync\n")
		fmt.Fprintf(wiz.w, "  Or install later with:      linkpaper init\n\n")
		return nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolving home directory: %w", err)
	}

	fmt.Fprintf(wiz.w, "\n")

	fmt.Fprintf(wiz.w, "  Installing binary to %s...\n", BinaryInstallPath())
	if err := InstallBinary(); err != nil {
		return fmt.Errorf("installing binary: %w", err)
	}
	fmt.Fprintf(wiz.w, "  ✓ Binary installed\n")

	if err := WritePlist(homeDir); err != nil {
		return fmt.Errorf("writing plist: %w", err)
	}
	fmt.Fprintf(wiz.w, "  ✓ LaunchAgent plist written\n")

	if err := CreateLogDir(homeDir); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	fmt.Fprintf(wiz.w, "  ✓ Log directory created\n")

	if err := LoadAgent(homeDir); err != nil {
		return fmt.Errorf("loading agent: %w", err)
	}
	fmt.Fprintf(wiz.w, "  ✓ Background sync scheduled\n")

	cfgPath, _ := config.DefaultPath()
	fmt.Fprintf(wiz.w, "\nSetup complete! linkpaper will sync your saved links in the background.\n")
	fmt.Fprintf(wiz.w, "  Config:  %s\n", cfgPath)
	fmt.Fprintf(wiz.w, "  Logs:    %s\n", LogDir(homeDir))
	fmt.Fprintf(wiz.w, "  Status:  linkpaper status\n")
	fmt.Fprintf(wiz.w, "  Remove:  linkpaper uninstall\n\n")

	return nil
}
