package model

import "errors"

// Domain error kinds shared between the adapters and the sync engine.
// Adapters wrap these with fmt.Errorf("...: %w", ...) so callers can
// classify failures with errors.Is without importing adapter packages.
var (
	// ErrSourceUnavailable means the GoodLinks store cannot be read:
	// missing, locked, or corrupt. A readable store with zero links is NOT
	// this error; it is an empty candidate set.
	ErrSourceUnavailable = errors.New("goodlinks store unavailable")

	// ErrAuthFailed means Instapaper rejected the configured credentials
	// (HTTP 403). Every subsequent submission would fail the same way, so
	// the engine aborts the run when it sees this.
	ErrAuthFailed = errors.New("instapaper authentication failed")
)
