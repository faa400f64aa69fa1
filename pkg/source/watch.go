package source

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/matzehuels/clustermap/pkg/model"
	"github.com/matzehuels/clustermap/pkg/schedule"
)

// DefaultReloadDelay is the quiet period before a changed file is reread.
const DefaultReloadDelay = 250 * time.Millisecond

// WatchOptions configures a Watcher.
type WatchOptions struct {
	Delay  time.Duration
	Clock  schedule.Clock
	Logger *log.Logger

	// OnLoad receives each successfully reloaded dataset.
	OnLoad func(*model.Dataset)
	// OnError receives reload failures. The previous dataset stays in use.
	OnError func(error)
}

// Watcher rereads a FileSource when the file changes on disk. Bursts of
// events (editors often write, chmod and rename) collapse into one reload.
type Watcher struct {
	src      *FileSource
	fsw      *fsnotify.Watcher
	debounce *schedule.Debouncer
	opts     WatchOptions

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Watch starts watching src's directory. The loop ends when ctx is done or
// Close is called.
func Watch(ctx context.Context, src *FileSource, opts WatchOptions) (*Watcher, error) {
	if opts.Delay <= 0 {
		opts.Delay = DefaultReloadDelay
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.OnLoad == nil {
		opts.OnLoad = func(*model.Dataset) {}
	}
	if opts.OnError == nil {
		opts.OnError = func(error) {}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// watch the directory so atomic renames are seen
	if err := fsw.Add(filepath.Dir(src.Path)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		src:      src,
		fsw:      fsw,
		debounce: schedule.NewDebouncer(opts.Clock, opts.Delay),
		opts:     opts,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.loop(ctx)
	opts.Logger.Debug("watching dataset", "path", src.Path)
	return w, nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	defer w.fsw.Close()

	target := filepath.Clean(w.src.Path)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.opts.Logger.Debug("dataset changed", "op", ev.Op.String())
			w.debounce.Call(func() { w.reload(ctx) })

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.opts.Logger.Error("watch error", "err", err)

		case <-ctx.Done():
			w.debounce.Cancel()
			return
		case <-w.stop:
			w.debounce.Cancel()
			return
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	ds, err := w.src.Load(ctx)
	if err != nil {
		w.opts.Logger.Warn("dataset reload failed, keeping previous", "err", err)
		w.opts.OnError(err)
		return
	}
	w.opts.Logger.Info("dataset reloaded", "clusters", len(ds.Clusters))
	w.opts.OnLoad(ds)
}

// Close stops watching and waits for the loop to exit.
func (w *Watcher) Close() error {
	w.once.Do(func() { close(w.stop) })
	<-w.done
	return nil
}
