// Package workspace discovers and reads the .ent files of a compilation unit.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rlch/entcheck"
	"github.com/rlch/entcheck/analysis"
)

// Ext is the extension of source files.
const Ext = ".ent"

type cached struct {
	data    []byte
	modTime time.Time
	size    int64
}

// Loader reads source files and caches their content by absolute path.
// Cached content is reused while the file's size and modification time
// are unchanged. A Loader is safe for concurrent use.
type Loader struct {
	log *zap.Logger
	cfg *entcheck.Config

	mu    sync.Mutex
	cache map[string]cached

	// ReadFile reads one file. Defaults to os.ReadFile but can be
	// overridden for testing.
	ReadFile func(path string) ([]byte, error)
}

// NewLoader creates a loader. A nil config excludes nothing.
func NewLoader(log *zap.Logger, cfg *entcheck.Config) *Loader {
	if log == nil {
		log = zap.NewNop()
	}

	return &Loader{
		log:      log,
		cfg:      cfg,
		cache:    make(map[string]cached),
		ReadFile: os.ReadFile,
	}
}

// Discover expands paths into the sorted list of source files they name.
// Directories are walked recursively, skipping hidden directories; files
// given explicitly are kept whatever their extension. Paths matching the
// config's exclude patterns are dropped. No paths means the working
// directory.
func (l *Loader) Discover(paths ...string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	seen := make(map[string]bool)

	var files []string

	add := func(path string) {
		path = filepath.Clean(path)
		if seen[path] || l.excluded(path) {
			return
		}

		seen[path] = true
		files = append(files, path)
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				err = fmt.Errorf("%w: %w", ErrNotFound, err)
			}

			return nil, &LoadError{Path: root, Cause: err}
		}

		if !info.IsDir() {
			add(root)

			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}

				return nil
			}

			if filepath.Ext(path) == Ext {
				add(path)
			}

			return nil
		})
		if err != nil {
			return nil, &LoadError{Path: root, Cause: err}
		}
	}

	slices.Sort(files)

	return files, nil
}

func (l *Loader) excluded(path string) bool {
	if l.cfg == nil {
		return false
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	return l.cfg.Excluded(abs)
}

// Load discovers the source files under paths and reads them concurrently.
// Sources are returned in path order.
func (l *Loader) Load(ctx context.Context, paths ...string) ([]analysis.Source, error) {
	files, err := l.Discover(paths...)
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, ErrNoSources
	}

	return l.Read(ctx, files)
}

// Read reads the given files concurrently. The first failure cancels the
// remaining reads.
func (l *Loader) Read(ctx context.Context, files []string) ([]analysis.Source, error) {
	sources := make([]analysis.Source, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			data, err := l.read(path)
			if err != nil {
				return err
			}

			sources[i] = analysis.Source{Path: path, Data: data}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	l.log.Debug("sources loaded", zap.Int("files", len(sources)))

	return sources, nil
}

func (l *Loader) read(path string) ([]byte, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &LoadError{Path: path, Cause: err}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, &LoadError{Path: path, Cause: err}
	}

	l.mu.Lock()
	c, ok := l.cache[abs]
	l.mu.Unlock()

	if ok && c.size == info.Size() && c.modTime.Equal(info.ModTime()) {
		return c.data, nil
	}

	data, err := l.ReadFile(abs)
	if err != nil {
		return nil, &LoadError{Path: path, Cause: err}
	}

	l.mu.Lock()
	l.cache[abs] = cached{data: data, modTime: info.ModTime(), size: info.Size()}
	l.mu.Unlock()

	return data, nil
}

// Clear clears the content cache.
func (l *Loader) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cache = make(map[string]cached)
}

// Cached returns the cached content by absolute path.
func (l *Loader) Cached() map[string][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make(map[string][]byte, len(l.cache))
	for path, c := range l.cache {
		result[path] = c.data
	}

	return result
}

// Contents maps each source's path to its data.
func Contents(sources []analysis.Source) map[string][]byte {
	out := make(map[string][]byte, len(sources))
	for _, src := range sources {
		out[src.Path] = src.Data
	}

	return out
}

// Overlay replaces the data of sources present in docs and appends the
// documents that are not on disk. Documents are keyed by path.
func Overlay(sources []analysis.Source, docs map[string][]byte) []analysis.Source {
	pending := maps.Clone(docs)
	out := make([]analysis.Source, 0, len(sources)+len(docs))

	for _, src := range sources {
		if data, ok := pending[src.Path]; ok {
			src.Data = data
			delete(pending, src.Path)
		}

		out = append(out, src)
	}

	for _, path := range slices.Sorted(maps.Keys(pending)) {
		out = append(out, analysis.Source{Path: path, Data: pending[path]})
	}

	return out
}
