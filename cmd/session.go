package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/geochange/landchange/core"
	"github.com/geochange/landchange/internal/backend"
	"github.com/geochange/landchange/internal/boundary"
	"github.com/geochange/landchange/internal/catalog"
	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/internal/iocache"
	"github.com/geochange/landchange/internal/logger"
	"github.com/geochange/landchange/internal/outwriter"
	"github.com/geochange/landchange/schema"
)

// buildSession wires the backend chain, catalog and boundary for cfg into a new session.
// The returned closer releases the catalog connection and flushes recorded fixtures.
func buildSession(cfg *contract.Config, progress core.ProgressFunc) (*core.Session, func(), error) {
	log := logger.L()

	compute, closeBackend, err := backend.New(cfg, backend.Options{
		Store:  iocache.Manager.GetResultStore(),
		Logger: log,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build compute backend: %w", err)
	}

	cat, closeCatalog, err := catalog.New(cfg, compute)
	if err != nil {
		_ = closeBackend()
		return nil, nil, fmt.Errorf("failed to open training catalog: %w", err)
	}

	region, err := boundary.New(cfg, compute)
	if err != nil {
		_ = closeCatalog()
		_ = closeBackend()
		return nil, nil, fmt.Errorf("failed to configure region boundary: %w", err)
	}

	session, err := core.NewSession(core.Deps{
		Backend:  compute,
		Catalog:  cat,
		Boundary: region,
		History:  iocache.Manager.GetAnalysisStore(),
		Logger:   log,
		Progress: progress,
	}, core.OptionsFromConfig(cfg))
	if err != nil {
		_ = closeCatalog()
		_ = closeBackend()
		return nil, nil, err
	}

	closer := func() {
		if err := closeCatalog(); err != nil {
			contract.LogWarn("Failed to close training catalog", err)
		}
		if err := closeBackend(); err != nil {
			contract.LogWarn("Failed to save recorded fixtures", err)
		}
	}
	return session, closer, nil
}

// progressPrinter returns a ProgressFunc writing one line per finished stage to w.
func progressPrinter(w io.Writer, cfg *contract.Config) core.ProgressFunc {
	var mu sync.Mutex
	return func(ev core.ProgressEvent) {
		icon := "✅"
		switch ev.State {
		case schema.StagePartial:
			icon = "⚠️ "
		case schema.StageFailed:
			icon = "❌"
		case schema.StageSkipped:
			icon = "⏭️ "
		}
		if !cfg.UseEmojis {
			icon = "-"
		}
		line := fmt.Sprintf("%s %d %s: %s", icon, ev.Year, ev.Stage, ev.State)
		if ev.Reason != "" {
			line += " (" + ev.Reason + ")"
		}
		mu.Lock()
		defer mu.Unlock()
		_, _ = fmt.Fprintln(w, line)
	}
}

// runInitialized builds a session, initializes it and hands it to fn.
// Progress goes to stderr so that stdout only carries the requested output.
func runInitialized(ctx context.Context, fn func(*core.Session) error) error {
	session, closer, err := buildSession(cfg, progressPrinter(os.Stderr, cfg))
	if err != nil {
		return err
	}
	defer closer()

	summary, err := session.Initialize(ctx)
	if err != nil {
		if errors.Is(err, schema.ErrNoYearSucceeded) {
			_ = outwriter.PrintInitSummary(summary, cfg)
		}
		return err
	}
	return fn(session)
}

// parseYears converts positional arguments into analysis years, defaulting to every year.
func parseYears(args []string) ([]schema.AnalysisYear, error) {
	if len(args) == 0 {
		return schema.AllYears, nil
	}
	years := make([]schema.AnalysisYear, 0, len(args))
	for _, arg := range args {
		year, err := schema.ParseAnalysisYear(arg)
		if err != nil {
			return nil, err
		}
		years = append(years, year)
	}
	return years, nil
}
