package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/njoerd114/linkpaper/internal/model"
)

const (
	otelScope     = "linkpaper/sync"
	spanRun       = "sync.run"
	metricSynced  = "linkpaper.sync.links.synced"
	metricFailed  = "linkpaper.sync.links.failed"
	metricSkipped = "linkpaper.sync.links.skipped"
)

// Report summarises a single sync pass.
type Report struct {
	CandidatesTotal int
	AlreadySynced   int
	NewlySynced     int
	Failed          int
	FailedIDs       []string
	DryRun          bool
}

// Engine performs the one-way sync pass. Create one with [NewEngine] and
// invoke it with [Engine.Run].
type Engine struct {
	source    Source
	submitter Submitter
	store     StateStore
	launcher  Launcher
	log       *slog.Logger

	// OTel instruments — always non-nil (no-op when telemetry is disabled).
	tracer     trace.Tracer
	cntSynced  metric.Int64Counter
	cntFailed  metric.Int64Counter
	cntSkipped metric.Int64Counter
}

// NewEngine creates an Engine. launcher may be nil, in which case an
// unreadable source store fails the run immediately instead of starting
// GoodLinks first.
func NewEngine(source Source, submitter Submitter, store StateStore, launcher Launcher, logger *slog.Logger) *Engine {
	tracer := otel.Tracer(otelScope)
	meter := otel.Meter(otelScope)

	mustCounter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			logger.Error("creating OTel counter", "name", name, "error", err)
			return noop.Int64Counter{}
		}
		return c
	}

	return &Engine{
		source:    source,
		submitter: submitter,
		store:     store,
		launcher:  launcher,
		log:       logger,

		tracer:     tracer,
		cntSynced:  mustCounter(metricSynced, "Number of links submitted to Instapaper"),
		cntFailed:  mustCounter(metricFailed, "Number of links that failed to submit"),
		cntSkipped: mustCounter(metricSkipped, "Number of links skipped as already synced"),
	}
}

// Run performs one sync pass, recording a trace span and metrics. With
// dryRun set it reports what would be submitted without calling Instapaper
// or touching the state store.
//
// Run fails the whole pass when the source cannot be listed or the state
// store errors. A single link that cannot be submitted is counted in the
// report and the pass moves on to the next one; the one exception is an
// auth failure, which would fail every remaining link the same way.
func (e *Engine) Run(ctx context.Context, dryRun bool) (Report, error) {
	ctx, span := e.tracer.Start(ctx, spanRun,
		trace.WithAttributes(attribute.Bool("sync.dry_run", dryRun)))
	defer span.End()

	report, err := e.run(ctx, dryRun)

	// Record counters — these are always safe even if the span is a no-op.
	if report.NewlySynced > 0 {
		e.cntSynced.Add(ctx, int64(report.NewlySynced))
	}
	if report.Failed > 0 {
		e.cntFailed.Add(ctx, int64(report.Failed))
	}
	if report.AlreadySynced > 0 {
		e.cntSkipped.Add(ctx, int64(report.AlreadySynced))
	}

	span.SetAttributes(
		attribute.Int("sync.candidates_total", report.CandidatesTotal),
		attribute.Int("sync.already_synced", report.AlreadySynced),
		attribute.Int("sync.newly_synced", report.NewlySynced),
		attribute.Int("sync.failed", report.Failed),
	)
	if err != nil {
		span.RecordError(err)
	}
	return report, err
}

func (e *Engine) run(ctx context.Context, dryRun bool) (Report, error) {
	report := Report{DryRun: dryRun}

	candidates, err := e.listCandidates(ctx)
	if err != nil {
		return report, err
	}
	report.CandidatesTotal = len(candidates)

	// Partition before submitting anything so the pass works from a stable
	// plan even as the store fills up.
	var toSync []model.Link
	for _, link := range candidates {
		synced, err := e.store.IsSynced(ctx, link.ID)
		if err != nil {
			return report, fmt.Errorf("checking sync state for %s: %w", link.ID, err)
		}
		if synced {
			report.AlreadySynced++
			continue
		}
		toSync = append(toSync, link)
	}

	// Oldest saved first, so an interrupted pass leaves the backlog in
	// chronological order for the next one.
	sort.SliceStable(toSync, func(i, j int) bool {
		return toSync[i].SavedAt.Before(toSync[j].SavedAt)
	})

	e.log.Info("sync pass starting",
		"candidates", report.CandidatesTotal,
		"already_synced", report.AlreadySynced,
		"to_sync", len(toSync),
		"dry_run", dryRun,
	)

	for i, link := range toSync {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("sync cancelled: %w", err)
		}

		if dryRun {
			e.log.Info("would sync",
				"n", i+1, "of", len(toSync),
				"title", link.DisplayTitle(), "url", link.URL)
			continue
		}

		e.log.Info("syncing", "n", i+1, "of", len(toSync), "title", link.DisplayTitle())
		if err := e.submitter.Submit(ctx, link.URL, link.Title); err != nil {
			report.Failed++
			report.FailedIDs = append(report.FailedIDs, link.ID)
			if errors.Is(err, model.ErrAuthFailed) {
				// Credentials will not get better mid-pass.
				return report, err
			}
			e.log.Error("submission failed",
				"title", link.DisplayTitle(), "url", link.URL, "error", err)
			continue
		}

		if err := e.store.MarkSynced(ctx, link.ID, time.Now().UTC()); err != nil {
			// The link is saved in Instapaper but not recorded locally, so a
			// later pass would submit it again. Stop before that can grow.
			return report, fmt.Errorf("link %s submitted but not recorded: %w", link.ID, err)
		}
		report.NewlySynced++
	}

	e.log.Info("sync pass complete",
		"newly_synced", report.NewlySynced,
		"failed", report.Failed,
		"dry_run", dryRun,
	)
	return report, nil
}

// listCandidates lists the source store, starting GoodLinks and retrying
// once when the first attempt finds the store unreadable.
func (e *Engine) listCandidates(ctx context.Context) ([]model.Link, error) {
	links, err := e.source.ListCandidates(ctx)
	if err == nil || e.launcher == nil || !errors.Is(err, model.ErrSourceUnavailable) {
		return links, err
	}

	e.log.Warn("source store unreadable, starting GoodLinks", "error", err)
	if launchErr := e.launcher.EnsureRunning(ctx); launchErr != nil {
		return nil, fmt.Errorf("%w: launching GoodLinks: %v", model.ErrSourceUnavailable, launchErr)
	}
	return e.source.ListCandidates(ctx)
}
