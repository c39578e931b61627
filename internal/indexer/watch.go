package indexer

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/trunk-recorder/rtx-index/internal/parser"
	"github.com/trunk-recorder/rtx-index/internal/queue"
)

// debounceTimers guards its timers map, since entries are both read/written
// from the watch loop and deleted from the timer's own goroutine when it fires.
type debounceTimers struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func (d *debounceTimers) reset(name string, debounce time.Duration, fire func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[name]; ok {
		t.Reset(debounce)
		return
	}
	d.timers[name] = time.AfterFunc(debounce, func() {
		d.mu.Lock()
		delete(d.timers, name)
		d.mu.Unlock()
		fire()
	})
}

// debounce coalesces the Create+Write pair fsnotify delivers for a single
// finished recording so it is only processed once.
const debounce = 500 * time.Millisecond

// Watch supplements a one-shot scan with a live fsnotify watch of
// opts.SourceDir: once IndexIntoStore's initial walk completes, newly
// created .wav files are parsed and fed through the same ensure pipeline
// as they arrive. It blocks until ctx is cancelled.
func (o *Orchestrator) Watch(ctx context.Context, opts Options) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dirCount := 0
	err = filepath.WalkDir(opts.SourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			o.log.Warn().Err(err).Str("path", path).Msg("error walking directory for watch")
			return nil
		}
		if d.IsDir() {
			if addErr := watcher.Add(path); addErr != nil {
				o.log.Warn().Err(addErr).Str("path", path).Msg("failed to watch directory")
			} else {
				dirCount++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	o.log.Info().Int("directories", dirCount).Str("root", opts.SourceDir).Msg("watch mode started")

	runner := queue.NewRunner(opts.MaxTasks, opts.QueueSize, opts.RateLimiter, o.log)
	defer runner.Close()

	timers := &debounceTimers{timers: map[string]*time.Timer{}}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			o.handleWatchEvent(ctx, watcher, runner, opts, timers, event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			o.log.Error().Err(err).Msg("fsnotify error")
		}
	}
}

func (o *Orchestrator) handleWatchEvent(ctx context.Context, watcher *fsnotify.Watcher, runner *queue.Runner, opts Options, timers *debounceTimers, event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		if err := watcher.Add(event.Name); err != nil {
			o.log.Warn().Err(err).Str("path", event.Name).Msg("failed to watch new directory")
		}
		return
	}

	if !strings.HasSuffix(strings.ToLower(event.Name), ".wav") {
		return
	}

	timers.reset(event.Name, debounce, func() {
		o.processWatchedFile(ctx, runner, opts, event.Name)
	})
}

func (o *Orchestrator) processWatchedFile(ctx context.Context, runner *queue.Runner, opts Options, path string) {
	rec, err := parser.Parse(filepath.Base(path), opts.EventID, opts.Location)
	if err != nil {
		o.log.Debug().Err(err).Str("path", path).Msg("watched file did not match a known grammar")
		return
	}
	rec.FileName = path
	o.ensure(ctx, runner, opts, *rec)
}
