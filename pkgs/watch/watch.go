// Package watch re-validates a batch file whenever it or the upload
// directory changes.
package watch

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dgenies/batchdsl/pkgs/config"
	"github.com/dgenies/batchdsl/pkgs/engine"
	"github.com/dgenies/batchdsl/pkgs/errors"
	"github.com/dgenies/batchdsl/pkgs/invariant"
)

// DefaultDebounce coalesces the bursts of events editors produce on save
const DefaultDebounce = 50 * time.Millisecond

// Options configures a watch loop
type Options struct {
	BatchFile string
	UploadDir string // optional
	Env       *config.Environment
	Debounce  time.Duration
	Logger    *slog.Logger

	// OnResult receives every published result whose digest differs from
	// the previous one. It runs on the watch goroutine.
	OnResult func(engine.Result)
}

// ReadBatch reads a batch file, reporting a missing file distinctly
func ReadBatch(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Wrap(errors.ErrFileNotFound, "batch file not found", err).WithContext("path", path)
		}
		return "", errors.NewInputError("failed to read batch file", err).WithContext("path", path)
	}
	return string(data), nil
}

// ListUploads returns the sorted names of the regular files in dir.
// An empty dir means no upload directory.
func ListUploads(dir string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.NewInputError("failed to list uploaded files", err).WithContext("path", dir)
	}
	var names []string
	for _, e := range entries {
		if e.Type()&fs.ModeType == 0 {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

type watcher struct {
	opts      Options
	batchPath string
	uploadDir string
	session   *engine.Session
	logger    *slog.Logger
	last      string
}

// Run validates the batch once, then again after every relevant change,
// until ctx is done. The batch file's directory is watched rather than the
// file itself so editors that save by renaming are followed.
func Run(ctx context.Context, opts Options) error {
	invariant.NotNil(opts.Env, "Env")
	invariant.Precondition(opts.OnResult != nil, "OnResult is required")
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	batchPath, err := filepath.Abs(opts.BatchFile)
	if err != nil {
		return errors.NewInputError("invalid batch file path", err)
	}
	w := &watcher{
		opts:      opts,
		batchPath: batchPath,
		session:   engine.NewSession(opts.Env, engine.WithLogger(logger)),
		logger:    logger,
	}
	if opts.UploadDir != "" {
		if w.uploadDir, err = filepath.Abs(opts.UploadDir); err != nil {
			return errors.NewInputError("invalid upload directory", err)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(errors.ErrWatch, "failed to start file watcher", err)
	}
	defer fsw.Close()

	dirs := []string{filepath.Dir(batchPath)}
	if w.uploadDir != "" && w.uploadDir != dirs[0] {
		dirs = append(dirs, w.uploadDir)
	}
	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			return errors.Wrap(errors.ErrWatch, "failed to watch directory", err).WithContext("path", dir)
		}
		logger.Debug("watching", "dir", dir)
	}

	// The first pass must succeed: a missing file is an error, not a wait.
	// It runs after the watches are in place so no change is missed.
	if err := w.pass(); err != nil {
		return err
	}

	return w.loop(ctx, fsw)
}

func (w *watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) error {
	timer := time.NewTimer(w.opts.Debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("change", "file", event.Name, "op", event.Op.String())
			timer.Reset(w.opts.Debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)

		case <-timer.C:
			if err := w.pass(); err != nil {
				// Briefly absent during an atomic replace; the next event retries
				w.logger.Warn("skipping pass", "error", err)
			}
		}
	}
}

func (w *watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	name, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	if name == w.batchPath {
		return true
	}
	return w.uploadDir != "" && filepath.Dir(name) == w.uploadDir
}

// pass runs one validation and reports it when its digest changed
func (w *watcher) pass() error {
	pass := w.session.Begin()
	text, err := ReadBatch(w.batchPath)
	if err != nil {
		return err
	}
	uploaded, err := ListUploads(w.uploadDir)
	if err != nil {
		return err
	}

	res := engine.Validate(text, w.opts.Env, uploaded, engine.WithLogger(w.logger))
	if !pass.Publish(res) {
		return nil
	}
	if res.Digest == w.last {
		w.logger.Debug("result unchanged", "digest", res.Digest)
		return nil
	}
	w.last = res.Digest
	w.opts.OnResult(res)
	return nil
}
