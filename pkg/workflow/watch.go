package workflow

import (
	"context"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/logger"
)

// DefaultWatchInterval is the polling period of watch mode.
const DefaultWatchInterval = 5 * time.Second

// DefaultSettle is how long a new file's size and mtime must stay unchanged
// before watch mode processes it.
const DefaultSettle = 500 * time.Millisecond

// WatchOptions configures Watch.
type WatchOptions struct {
	Interval time.Duration
	Settle   time.Duration
	Args     map[string]any
	// OnItem is called after each processed file.
	OnItem func(ItemResult)
}

// Watch processes files that appear in the input directory after it starts,
// in detection order, until ctx is cancelled. Files present at start are
// never processed. A new file is processed once it has stopped changing for
// the settle period. The poll is authoritative; filesystem notifications only
// trigger an earlier poll.
func (e *Engine) Watch(ctx context.Context, def *Definition, opts WatchOptions) error {
	dir := def.InputDir()
	if dir == "" {
		return errors.Errorf("workflow '%s' has no io.input_dir configured", def.Name)
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	settle := opts.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}

	initial, err := ListInputs(dir, include(def))
	if err != nil {
		return err
	}
	state := &watchState{
		seen:    make(map[string]bool, len(initial)),
		pending: make(map[string]observation),
		settle:  settle,
	}
	for _, f := range initial {
		state.seen[f] = true
	}

	log := logger.G(ctx).WithField("dir", dir)
	log.WithField("existing", len(initial)).Info("watching for new files")

	var events <-chan fsnotify.Event
	if watcher, err := fsnotify.NewWatcher(); err != nil {
		log.WithError(err).Warn("filesystem notifications unavailable, polling only")
	} else {
		defer watcher.Close()
		if err := watcher.Add(dir); err != nil {
			log.WithError(err).Warn("filesystem notifications unavailable, polling only")
		} else {
			events = watcher.Events
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var settled <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			log.Info("watch stopped")
			return ctx.Err()
		case <-ticker.C:
		case <-settled:
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
				continue
			}
		}

		if err := e.poll(ctx, def, dir, state, opts); err != nil {
			return err
		}
		settled = nil
		if len(state.pending) > 0 {
			settled = time.After(settle)
		}
	}
}

// observation is the last recorded size and mtime of a pending file.
type observation struct {
	size    int64
	modTime time.Time
	at      time.Time
}

type watchState struct {
	seen    map[string]bool
	pending map[string]observation
	settle  time.Duration
}

// ready reports whether path has kept the same size and mtime for at least
// the settle period, recording a fresh observation otherwise.
func (s *watchState) ready(path string, now time.Time) bool {
	info, err := os.Stat(path)
	if err != nil {
		delete(s.pending, path)
		return false
	}
	prev, ok := s.pending[path]
	if ok && prev.size == info.Size() && prev.modTime.Equal(info.ModTime()) {
		return now.Sub(prev.at) >= s.settle
	}
	s.pending[path] = observation{size: info.Size(), modTime: info.ModTime(), at: now}
	return false
}

func (e *Engine) poll(ctx context.Context, def *Definition, dir string, state *watchState, opts WatchOptions) error {
	files, err := ListInputs(dir, include(def))
	if err != nil {
		logger.G(ctx).WithError(err).Warn("failed to list input directory")
		return nil
	}
	now := time.Now()
	for _, f := range files {
		if state.seen[f] || !state.ready(f, now) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		state.seen[f] = true
		delete(state.pending, f)
		item := e.ProcessFile(ctx, def, f, opts.Args)
		if opts.OnItem != nil {
			opts.OnItem(item)
		}
	}
	return nil
}
