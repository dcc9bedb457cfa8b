package settings

import (
	"context"
	"time"
)

// WatchOptions tunes the change watcher.
type WatchOptions struct {
	// Interval is the polling frequency. Default: 1s.
	Interval time.Duration
	// Debounce is the quiet period after a detected change before
	// onChange fires; more changes during the window reset the timer.
	// Default: 500ms.
	Debounce time.Duration
}

func (o *WatchOptions) defaults() {
	if o.Interval <= 0 {
		o.Interval = time.Second
	}
	if o.Debounce <= 0 {
		o.Debounce = 500 * time.Millisecond
	}
}

// Watch polls PRAGMA data_version and invokes onChange with a fresh
// settings snapshot after each detected write. data_version is
// auto-incremented by SQLite on any write, so no triggers are needed.
// Blocks until ctx is cancelled; run it in a goroutine.
func (s *Store) Watch(ctx context.Context, opts WatchOptions, onChange func(Settings)) {
	opts.defaults()

	var lastVersion int64
	s.db.QueryRowContext(ctx, "PRAGMA data_version").Scan(&lastVersion)

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	dirty := false
	var quietSince time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var ver int64
			if err := s.db.QueryRowContext(ctx, "PRAGMA data_version").Scan(&ver); err != nil {
				s.logger.Warn("settings: data_version poll failed", "error", err)
				continue
			}
			if ver != lastVersion {
				lastVersion = ver
				dirty = true
				quietSince = time.Now()
				continue
			}
			if dirty && time.Since(quietSince) >= opts.Debounce {
				dirty = false
				st, err := s.Load(ctx)
				if err != nil {
					s.logger.Error("settings: reload after change failed", "error", err)
					continue
				}
				s.logger.Info("settings: change detected, pushing update")
				onChange(st)
			}
		}
	}
}
