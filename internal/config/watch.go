package config

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// debounceDelay absorbs the burst of events editors emit for a single save.
const debounceDelay = 250 * time.Millisecond

// Watch calls onChange with the freshly parsed file whenever the file at path
// changes, until ctx is done. Unparseable versions are logged and skipped.
//
// The parent directory is watched rather than the file, so editors that
// replace the file by rename are still picked up.
func Watch(ctx context.Context, path string, log zerolog.Logger, onChange func(*File)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(path)
	file := filepath.Base(path)
	if err := w.Add(dir); err != nil {
		return err
	}
	log.Debug().Str("dir", dir).Str("file", file).Msg("schedule watcher started")

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	debounce := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounceDelay, func() {
			if ctx.Err() != nil {
				return
			}
			f, err := Load(path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("schedule reload failed")
				return
			}
			onChange(f)
		})
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			// Compare by basename (more robust across absolute/relative paths).
			if !strings.EqualFold(filepath.Base(ev.Name), file) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				log.Debug().Str("path", path).Str("op", ev.Op.String()).Msg("schedule change detected")
				debounce()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Str("dir", dir).Msg("schedule watch error")
		}
	}
}
