// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package watch runs conversions for PDFs as they land in the upload
// folder.
//
// Filesystem events are debounced per file so a half-written upload is
// not parsed, and all conversions run on one worker goroutine: triggers
// for a file that is already queued coalesce, and two conversions never
// overlap. The upload folder is swept once at start-up and, optionally,
// on a cron schedule to pick up files whose events were missed.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/mockexam/internal/convert"
	"github.com/pdiddy/mockexam/internal/paper"
	"github.com/pdiddy/mockexam/pkg/types"
)

// DefaultDebounce is the quiet period applied when none is configured.
const DefaultDebounce = 2 * time.Second

// FileConverter converts one uploaded PDF. *convert.Converter implements it.
type FileConverter interface {
	ConvertFile(ctx context.Context, pdfPath string) (convert.Result, error)
}

// Watcher observes an upload directory and feeds PDFs to a FileConverter.
type Watcher struct {
	conv     FileConverter
	dir      string
	debounce time.Duration
	schedule string
	log      *zap.Logger

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending map[string]bool
	queue   []string
	wake    chan struct{}
}

// New returns a Watcher for cfg.UploadDir.
func New(conv FileConverter, cfg types.WatchConfig, log *zap.Logger) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	dir := cfg.UploadDir
	if dir == "" {
		dir = convert.DefaultUploadDir
	}
	d := cfg.Debounce
	if d <= 0 {
		d = DefaultDebounce
	}
	return &Watcher{
		conv:     conv,
		dir:      dir,
		debounce: d,
		schedule: cfg.SweepSchedule,
		log:      log.Named("watch"),
		timers:   make(map[string]*time.Timer),
		pending:  make(map[string]bool),
		wake:     make(chan struct{}, 1),
	}
}

// Run watches until ctx is cancelled. It returns nil on cancellation and
// an error if the watch cannot be set up or the event stream breaks.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating upload directory %s: %w", w.dir, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	var sched *cron.Cron
	if w.schedule != "" {
		sched = cron.New()
		if _, err := sched.AddFunc(w.schedule, func() { w.sweep("schedule") }); err != nil {
			return fmt.Errorf("invalid sweep schedule %q: %w", w.schedule, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.work(gctx) })
	g.Go(func() error { return w.events(gctx, fw) })
	if sched != nil {
		sched.Start()
		g.Go(func() error {
			<-gctx.Done()
			<-sched.Stop().Done()
			return nil
		})
	}

	w.log.Info("watching for uploads",
		zap.String("dir", w.dir),
		zap.Duration("debounce", w.debounce),
		zap.String("sweep", w.schedule),
	)
	w.sweep("startup")

	err = g.Wait()
	w.stopTimers()
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func (w *Watcher) events(ctx context.Context, fw *fsnotify.Watcher) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return errors.New("file watcher closed")
			}
			// A file moved into the folder arrives as Create; Rename names
			// the path that went away.
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !convert.IsPDFName(ev.Name) {
				continue
			}
			w.log.Debug("upload event", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
			w.touch(ev.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return errors.New("file watcher closed")
			}
			w.log.Error("file watcher error", zap.Error(err))
		}
	}
}

// touch (re)starts the quiet period for path.
func (w *Watcher) touch(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.enqueue(path)
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for p, t := range w.timers {
		t.Stop()
		delete(w.timers, p)
	}
}

// enqueue adds path to the work queue unless it is already waiting there.
func (w *Watcher) enqueue(path string) {
	w.mu.Lock()
	if !w.pending[path] {
		w.pending[path] = true
		w.queue = append(w.queue, path)
	}
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Watcher) next() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return "", false
	}
	p := w.queue[0]
	w.queue = w.queue[1:]
	delete(w.pending, p)
	return p, true
}

func (w *Watcher) work(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.wake:
		}
		for ctx.Err() == nil {
			p, ok := w.next()
			if !ok {
				break
			}
			w.process(ctx, p)
		}
	}
}

// sweep queues every PDF currently in the upload folder.
func (w *Watcher) sweep(reason string) {
	paths, err := convert.ListPDFs(w.dir)
	if err != nil {
		w.log.Error("sweep failed", zap.String("reason", reason), zap.Error(err))
		return
	}
	if len(paths) > 0 {
		w.log.Info("sweep", zap.String("reason", reason), zap.Int("files", len(paths)))
	}
	for _, p := range paths {
		w.enqueue(p)
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		w.log.Debug("upload gone before conversion", zap.String("file", path))
		return
	}

	log := w.log.With(zap.String("run_id", uuid.NewString()), zap.String("file", filepath.Base(path)))
	start := time.Now()
	log.Info("converting")

	res, err := w.conv.ConvertFile(ctx, path)
	elapsed := zap.Duration("elapsed", time.Since(start))
	switch {
	case err != nil && paper.IsParseError(err):
		log.Warn("paper rejected", zap.Error(err), elapsed)
	case err != nil:
		log.Error("conversion failed", zap.Error(err), elapsed)
	case res.Status == types.ConversionNone:
		log.Info("unchanged, skipped", elapsed)
	default:
		log.Info("converted",
			zap.String("output", res.OutputPath),
			zap.Int("questions", len(res.Document.Questions)),
			elapsed,
		)
	}
}
