// Package watch observes the editor's flow file and reports settled
// writes, so the daemon can snapshot after each edit burst.
package watch

import (
	"context"
	"math/rand"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	logx "flowvault/pkg/logx"
)

// Watcher delivers debounced change notifications for one file.
type Watcher struct {
	path     string
	debounce time.Duration
	log      logx.Logger
	onChange func()
}

// New creates a watcher for path. onChange runs on a timer goroutine
// after events settle for the debounce window; it must be safe to call
// from there.
func New(path string, debounce time.Duration, log logx.Logger, onChange func()) *Watcher {
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Watcher{path: path, debounce: debounce, log: log, onChange: onChange}
}

// Run watches until ctx is done. The directory is watched (not the file
// itself) so atomic save patterns — write temp, rename over — still
// produce events. If the watcher breaks it is recreated with a small
// jittered exponential backoff.
func (w *Watcher) Run(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	file := filepath.Base(w.path)

	const (
		restartBackoffBase = 250 * time.Millisecond
		restartBackoffMax  = 5 * time.Second
	)
	backoff := restartBackoffBase
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	// debounce to avoid reacting to partial writes
	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	schedule := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		w.log.Debug("flow change detected; scheduling snapshot", logx.String("path", w.path))
		timer = time.AfterFunc(w.debounce, func() {
			if ctx.Err() != nil {
				return
			}
			w.onChange()
		})
	}

	wait := func() time.Duration {
		d := backoff + time.Duration(rng.Int63n(int64(backoff/2)+1))
		if backoff < restartBackoffMax {
			backoff *= 2
			if backoff > restartBackoffMax {
				backoff = restartBackoffMax
			}
		}
		return d
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		fw, err := fsnotify.NewWatcher()
		if err == nil {
			err = fw.Add(dir)
			if err != nil {
				_ = fw.Close()
			}
		}
		if err != nil {
			w.log.Warn("flow watch init failed", logx.Err(err), logx.String("dir", dir))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait()):
				continue
			}
		}

		backoff = restartBackoffBase
		w.log.Debug("flow watcher started", logx.String("dir", dir), logx.String("file", file))

		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				_ = fw.Close()
				return nil
			case ev, ok := <-fw.Events:
				if !ok {
					broken = true
					break
				}
				// Compare by basename: robust across absolute/relative
				// paths and OS quirks.
				if strings.EqualFold(filepath.Base(ev.Name), file) {
					if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
						schedule()
					}
				}
			case err, ok := <-fw.Errors:
				if !ok {
					broken = true
					break
				}
				if err == nil {
					continue
				}
				// Overflow means missed events; snapshot once and keep going.
				if strings.Contains(strings.ToLower(err.Error()), "overflow") {
					w.log.Warn("flow watch overflow; forcing snapshot", logx.Err(err))
					schedule()
					continue
				}
				w.log.Warn("flow watch error", logx.Err(err), logx.String("dir", dir))
				if strings.Contains(strings.ToLower(err.Error()), "closed") {
					broken = true
				}
			}
		}

		_ = fw.Close()
		if ctx.Err() != nil {
			return nil
		}
		d := wait()
		w.log.Warn("flow watcher stopped; restarting",
			logx.String("dir", dir),
			logx.Duration("backoff", d),
		)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(d):
		}
	}
}
