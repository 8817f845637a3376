package goodlinks

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// appName is the process and bundle name used by pgrep, open, and osascript.
const appName = "GoodLinks"

// launchWait caps how long EnsureRunning waits for the app to come up.
const launchWait = 10 * time.Second

// Launcher starts GoodLinks when its store cannot be read and quits it again
// after the run, but only if the run was what started it.
type Launcher struct {
	log      *slog.Logger
	launched bool
}

// NewLauncher creates a Launcher.
func NewLauncher(logger *slog.Logger) *Launcher {
	return &Launcher{log: logger}
}

// IsRunning reports whether GoodLinks has a running process.
func (l *Launcher) IsRunning(ctx context.Context) bool {
	return exec.CommandContext(ctx, "pgrep", "-x", appName).Run() == nil
}

// EnsureRunning starts GoodLinks if it is not already running and waits for
// its process to appear. It remembers whether this call did the starting so
// that [Launcher.QuitIfLaunched] only quits an app the sync itself opened.
func (l *Launcher) EnsureRunning(ctx context.Context) error {
	if l.IsRunning(ctx) {
		return nil
	}

	l.log.Info("starting GoodLinks so its store becomes readable")
	if out, err := exec.CommandContext(ctx, "open", "-g", "-a", appName).CombinedOutput(); err != nil {
		return fmt.Errorf("open -a %s: %v: %s", appName, err, out)
	}
	l.launched = true

	deadline := time.Now().Add(launchWait)
	for !l.IsRunning(ctx) {
		if time.Now().After(deadline) {
			return fmt.Errorf("%s did not start within %s", appName, launchWait)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}

	// Brief settle so the app can open its store before we read it.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(2 * time.Second):
	}
	return nil
}

// QuitIfLaunched asks GoodLinks to quit when [Launcher.EnsureRunning] was
// what started it. Quit failures are logged rather than returned.
func (l *Launcher) QuitIfLaunched(ctx context.Context) {
	if !l.launched {
		return
	}

	l.log.Info("quitting GoodLinks")
	script := fmt.Sprintf("tell application %q to quit", appName)
	if out, err := exec.CommandContext(ctx, "osascript", "-e", script).CombinedOutput(); err != nil {
		l.log.Warn("could not quit GoodLinks", "error", err, "output", string(out))
	}
	l.launched = false
}
