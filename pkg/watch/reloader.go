package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/reflector/pkg/async"
	"github.com/platinummonkey/reflector/pkg/loader"
	"github.com/platinummonkey/reflector/pkg/observability"
	"github.com/platinummonkey/reflector/pkg/reflector"
)

// DefaultDebounce is how long filesystem events settle before a reload
const DefaultDebounce = 500 * time.Millisecond

// Reloader rebuilds the reflector from its loader and swaps it into the
// holder. A failed reload leaves the previous reflector in place.
type Reloader struct {
	loader        *loader.Loader
	holder        *reflector.Holder
	logger        *observability.Logger
	metrics       *observability.Metrics
	debounce      time.Duration
	reloadTimeout time.Duration
	reflectorOpts []reflector.Option

	mu sync.Mutex
}

// Option configures a Reloader
type Option func(*Reloader)

// WithLogger sets the reload logger
func WithLogger(logger *observability.Logger) Option {
	return func(r *Reloader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics counts reloads and records schema size
func WithMetrics(metrics *observability.Metrics) Option {
	return func(r *Reloader) {
		r.metrics = metrics
	}
}

// WithDebounce sets how long filesystem events must be quiet before a
// reload starts
func WithDebounce(d time.Duration) Option {
	return func(r *Reloader) {
		if d > 0 {
			r.debounce = d
		}
	}
}

// WithReloadTimeout bounds each triggered reload. Zero means no bound.
func WithReloadTimeout(d time.Duration) Option {
	return func(r *Reloader) {
		r.reloadTimeout = d
	}
}

// WithReflectorOptions are passed to every reflector.New call
func WithReflectorOptions(opts ...reflector.Option) Option {
	return func(r *Reloader) {
		r.reflectorOpts = append(r.reflectorOpts, opts...)
	}
}

// New creates a reloader feeding holder from l
func New(l *loader.Loader, holder *reflector.Holder, opts ...Option) *Reloader {
	r := &Reloader{
		loader:   l,
		holder:   holder,
		logger:   observability.NopLogger(),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reload loads the schema, builds a reflector and stores it. Concurrent
// calls run one at a time.
func (r *Reloader) Reload(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	err := r.reload(ctx)
	r.metrics.ObserveReload(err)

	logger := r.logger.WithFields(map[string]interface{}{
		"source":      r.loader.Source().Name(),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if err != nil {
		logger.WithError(err).Error("Schema reload failed, keeping previous schema")
		return err
	}
	logger.Info("Schema reloaded")
	return nil
}

func (r *Reloader) reload(ctx context.Context) error {
	s, err := r.loader.Load(ctx)
	if err != nil {
		return err
	}
	opts := append([]reflector.Option{
		reflector.WithLogger(r.logger),
		reflector.WithMetrics(r.metrics),
	}, r.reflectorOpts...)
	next, err := reflector.New(s, opts...)
	if err != nil {
		return fmt.Errorf("build reflector: %w", err)
	}
	r.holder.Store(next)
	return nil
}

// trigger reloads in the background
func (r *Reloader) trigger(ctx context.Context, reason string) {
	r.logger.WithField("reason", reason).Debug("Schema reload triggered")
	async.SafeGo(ctx, r.logger, r.reloadTimeout, "schema reload", func(ctx context.Context) error {
		// Reload logs and counts its own failures
		_ = r.Reload(ctx)
		return nil
	})
}

// Watch reloads whenever .proto files under roots change, after events
// have been quiet for the debounce interval. It blocks until ctx is done.
func (r *Reloader) Watch(ctx context.Context, roots ...string) error {
	if len(roots) == 0 {
		return errors.New("no directories to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	for _, root := range roots {
		if err := addRecursive(watcher, root); err != nil {
			return fmt.Errorf("watch %s: %w", root, err)
		}
	}
	r.logger.WithField("roots", roots).Info("Watching schema directories")

	timer := time.NewTimer(r.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	pending := ""

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := addRecursive(watcher, event.Name); err != nil {
						r.logger.WithError(err).WithField("dir", event.Name).Warn("Failed to watch new directory")
					}
					pending = event.Name
					timer.Reset(r.debounce)
					continue
				}
			}
			if !relevant(event) {
				continue
			}
			pending = event.Name
			timer.Reset(r.debounce)
		case <-timer.C:
			r.trigger(ctx, pending)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.WithError(err).Warn("Watcher error")
		}
	}
}

func relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return loader.IsProtoFile(event.Name)
}

// addRecursive adds root and every directory below it
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

// Schedule reloads on a cron schedule, such as "@every 5m" or
// "*/10 * * * *". It blocks until ctx is done.
func (r *Reloader) Schedule(ctx context.Context, spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { r.trigger(ctx, "schedule") }); err != nil {
		return fmt.Errorf("invalid reload schedule %q: %w", spec, err)
	}

	r.logger.WithField("schedule", spec).Info("Scheduled schema reloads")
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
