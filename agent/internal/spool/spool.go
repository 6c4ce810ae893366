package spool

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/quietmark/quietmark/agent/internal/audit"
	"github.com/quietmark/quietmark/agent/internal/quiet"
	"github.com/quietmark/quietmark/agent/internal/trace"
	"github.com/quietmark/quietmark/pkg/types"
)

// ShipFunc receives each produced audit record. Implementations must not block.
type ShipFunc func(types.AuditRecord)

// Processor audits trace exports as they appear in the spool directory.
type Processor struct {
	ship ShipFunc

	// processed maps file paths to the size at which they were last
	// audited, so a create followed by its write events is handled once.
	processed map[string]int64
}

// New creates a Processor that forwards records to ship.
func New(ship ShipFunc) *Processor {
	return &Processor{
		ship:      ship,
		processed: make(map[string]int64),
	}
}

// Run processes exports already in dir, then watches dir until ctx is
// cancelled, auditing each newly written export file.
func (p *Processor) Run(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}

	p.scan(dir)
	slog.Info("spool: watching for trace exports", "dir", dir)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			p.ProcessFile(event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("spool: watcher error", "err", err)
		}
	}
}

// scan audits every export already present in dir.
func (p *Processor) scan(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Error("spool: initial scan failed", "dir", dir, "err", err)
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			p.ProcessFile(filepath.Join(dir, e.Name()))
		}
	}
}

// ProcessFile audits a single trace export and ships the result. Files that
// are not .json, unreadable, or unchanged since their last audit are
// skipped. Traces that cannot support the metric still produce a record,
// with the failure in ErrorMessage.
func (p *Processor) ProcessFile(path string) {
	if !strings.HasSuffix(path, ".json") {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		slog.Warn("spool: stat export failed", "path", path, "err", err)
		return
	}
	if size, ok := p.processed[path]; ok && size == info.Size() {
		return
	}
	p.processed[path] = info.Size()

	ex, err := trace.Load(path)
	if err != nil {
		slog.Error("spool: unreadable trace export, skipping", "path", path, "err", err)
		return
	}

	res, err := audit.Run(ex)
	if err != nil {
		// Fatal for this trace, not for the agent: report the failure so
		// the server still sees the page.
		var nqw *quiet.NoQuietWindowError
		switch {
		case errors.Is(err, audit.ErrMissingPaintMarker):
			slog.Warn("spool: trace has no paint marker", "page", ex.PageURL, "path", path)
		case errors.As(err, &nqw):
			slog.Warn("spool: no mutual quiet window", "page", ex.PageURL, "culprit", nqw.Culprit)
		default:
			slog.Error("spool: audit failed", "page", ex.PageURL, "err", err)
		}
		p.ship(audit.ErrorRecord(ex.PageURL, err))
		return
	}

	slog.Info("spool: audited trace",
		"page", res.PageURL,
		"score", res.Score,
		"time_to_interactive", res.DisplayValue,
	)
	p.ship(res.Record())
}
