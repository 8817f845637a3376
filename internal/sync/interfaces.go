// Package sync implements the one-way sync pass from GoodLinks to
// Instapaper. The [Engine] lists the saved links, skips the ones the state
// store already records, and submits the rest oldest-first, marking each
// link synced the moment its submission succeeds so a crash or failure
// never causes a double post.
package sync

import (
	"context"
	"time"

	"github.com/njoerd114/linkpaper/internal/model"
)

// Source lists candidate links from the local GoodLinks store.
// Implemented by [goodlinks.Reader].
type Source interface {
	ListCandidates(ctx context.Context) ([]model.Link, error)
}

// Submitter saves one link to the read-later service.
// Implemented by [instapaper.Client].
type Submitter interface {
	Submit(ctx context.Context, url, title string) error
}

// StateStore records which links have already been submitted.
// Implemented by [state.Store].
type StateStore interface {
	IsSynced(ctx context.Context, id string) (bool, error)
	MarkSynced(ctx context.Context, id string, syncedAt time.Time) error
}

// Launcher starts the GoodLinks app so its store becomes readable.
// Implemented by [goodlinks.Launcher].
type Launcher interface {
	EnsureRunning(ctx context.Context) error
}
