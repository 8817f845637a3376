package setup

import (
	"context"
	"log/slog"

	"github.com/njoerd114/linkpaper/internal/goodlinks"
)

// StoreProbe summarises what a [ProbeStore] call found.
type StoreProbe struct {
	// Path is the store location that was probed.
	Path string

	// Links is the number of saved links in the store.
	Links int
}

// ProbeStore opens the GoodLinks store and counts the saved links in it,
// so the wizard can show the user what a first sync would pick up. An empty
// path probes the standard group-container location.
//
// An unreadable store is returned as an error; the wizard warns about it
// rather than aborting, since the store appears once GoodLinks has run.
func ProbeStore(ctx context.Context, path string, logger *slog.Logger) (StoreProbe, error) {
	if path == "" {
		var err error
		path, err = goodlinks.DefaultStorePath()
		if err != nil {
			return StoreProbe{}, err
		}
	}

	links, err := goodlinks.NewReader(path, logger).ListCandidates(ctx)
	if err != nil {
		return StoreProbe{Path: path}, err
	}
	return StoreProbe{Path: path, Links: len(links)}, nil
}
