package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"askmynotes/internal/domain"
	"askmynotes/internal/parser"
)

const defaultSettle = 300 * time.Millisecond

// Ingester is the part of the notes service the watcher drives.
type Ingester interface {
	Ingest(ctx context.Context, tenantID, sourceID string, file io.Reader, originalName string) (*domain.IngestResult, error)
	RemoveSource(ctx context.Context, tenantID, sourceID string) error
}

// Watcher mirrors a notes directory into the index. Each first-level
// directory under root is a subject; supported files inside it are
// ingested for tenant "<user>/<subject>" and purged when removed.
type Watcher struct {
	root   string
	user   string
	svc    Ingester
	logger *slog.Logger
	settle time.Duration

	mu      sync.Mutex
	sources map[string]string // file path -> source id
	timers  map[string]*time.Timer
	ready   chan string
	done    chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the watcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithSettle sets how long a file must stay quiet before it is ingested.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

func New(root, user string, svc Ingester, opts ...Option) (*Watcher, error) {
	if root == "" || user == "" {
		return nil, fmt.Errorf("%w: watcher needs a directory and a user", domain.ErrInvalidConfig)
	}
	w := &Watcher{
		root:    filepath.Clean(root),
		user:    user,
		svc:     svc,
		logger:  slog.Default(),
		settle:  defaultSettle,
		sources: make(map[string]string),
		timers:  make(map[string]*time.Timer),
		ready:   make(chan string, 64),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	return w, nil
}

// Run ingests what is already on disk, then follows changes until ctx is
// cancelled. A Watcher runs once.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fs watcher: %w", err)
	}
	defer fsw.Close()
	defer close(w.done)

	if err := fsw.Add(w.root); err != nil {
		return fmt.Errorf("watch %s: %w", w.root, err)
	}
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return fmt.Errorf("read %s: %w", w.root, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			w.addSubject(ctx, fsw, filepath.Join(w.root, e.Name()))
		}
	}
	w.logger.Info("watching notes directory", "dir", w.root, "user", w.user)

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return nil
		case path := <-w.ready:
			w.ingest(ctx, path)
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, fsw, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("fs watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, fsw *fsnotify.Watcher, event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	if filepath.Dir(path) == w.root {
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				w.addSubject(ctx, fsw, path)
			}
		}
		return
	}
	if _, ok := w.subjectOf(path); !ok || !parser.Supported(path) {
		return
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.cancelTimer(path)
		w.remove(ctx, path)
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		w.schedule(path)
	}
}

// addSubject watches a subject directory and ingests the files already in it.
func (w *Watcher) addSubject(ctx context.Context, fsw *fsnotify.Watcher, dir string) {
	if err := fsw.Add(dir); err != nil {
		w.logger.Warn("cannot watch subject", "dir", dir, "error", err)
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.logger.Warn("cannot read subject", "dir", dir, "error", err)
		return
	}
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if !e.IsDir() && parser.Supported(p) {
			w.ingest(ctx, p)
		}
	}
}

// schedule delays ingestion until writes to path have settled.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.timers[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		select {
		case w.ready <- path:
		case <-w.done:
		}
	})
}

func (w *Watcher) cancelTimer(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for p, t := range w.timers {
		t.Stop()
		delete(w.timers, p)
	}
}

func (w *Watcher) subjectOf(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return "", false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 2 || parts[0] == ".." {
		return "", false
	}
	return parts[0], true
}

// ingest (re)indexes path, replacing any earlier version of it.
func (w *Watcher) ingest(ctx context.Context, path string) {
	subject, ok := w.subjectOf(path)
	if !ok {
		return
	}
	tenant := w.user + "/" + subject
	w.remove(ctx, path)

	f, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.logger.Warn("cannot open note", "path", path, "error", err)
		}
		return
	}
	defer f.Close()

	sourceID := uuid.NewString()
	res, err := w.svc.Ingest(ctx, tenant, sourceID, f, filepath.Base(path))
	if err != nil {
		w.logger.Warn("note not ingested", "path", path, "error", err)
		return
	}
	w.mu.Lock()
	w.sources[path] = sourceID
	w.mu.Unlock()
	w.logger.Info("note ingested", "path", path, "tenantID", tenant, "chunks", res.ChunkCount)
}

func (w *Watcher) remove(ctx context.Context, path string) {
	w.mu.Lock()
	sourceID, ok := w.sources[path]
	delete(w.sources, path)
	w.mu.Unlock()
	if !ok {
		return
	}
	subject, _ := w.subjectOf(path)
	tenant := w.user + "/" + subject
	if err := w.svc.RemoveSource(ctx, tenant, sourceID); err != nil {
		w.logger.Warn("note not removed", "path", path, "error", err)
		return
	}
	w.logger.Info("note removed", "path", path, "tenantID", tenant)
}
