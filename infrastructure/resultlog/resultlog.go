// Package resultlog persists arena verdicts as JSON lines and serves them
// back as the resume cache.
package resultlog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"sync"

	"github.com/chainguard-dev/clog"
	"github.com/klauspost/compress/gzip"

	"github.com/modelscope/eval-scope/infrastructure/dataset"
	"github.com/modelscope/eval-scope/internal/domain"
	"github.com/modelscope/eval-scope/internal/ports"
)

// Mode selects the persistence strategy.
type Mode string

const (
	// ModeRewrite atomically rewrites the whole file after every verdict.
	ModeRewrite Mode = "rewrite"

	// ModeAppend appends one line per verdict and compacts on Close.
	ModeAppend Mode = "append"
)

// Options configure Open.
type Options struct {
	// CachePath is read at open to seed the log. Empty means the output
	// path itself, which makes re-runs resume where they stopped.
	CachePath string

	// Mode defaults to ModeRewrite.
	Mode Mode
}

var _ ports.ResultLog = (*Log)(nil)

// Log is a file-backed ports.ResultLog. The file at Path always holds
// every record loaded from the cache plus every appended record.
type Log struct {
	mu      sync.Mutex
	path    string
	mode    Mode
	records []domain.VerdictRecord
	keys    map[domain.VerdictKey]struct{}
	closed  bool
}

// Open loads the cache and prepares path for writing. A missing cache file
// starts an empty log. When the cache is a different file, or in append
// mode, path is immediately rewritten with the loaded records.
func Open(ctx context.Context, path string, opts Options) (*Log, error) {
	mode := opts.Mode
	if mode == "" {
		mode = ModeRewrite
	}
	if mode != ModeRewrite && mode != ModeAppend {
		return nil, domain.NewConfigurationError("persist_mode", fmt.Errorf("unsupported persist mode %q", mode))
	}
	if path == "" {
		return nil, domain.NewConfigurationError("output", errors.New("output path is required"))
	}

	cache := opts.CachePath
	if cache == "" {
		cache = path
	}

	records, err := load(ctx, cache)
	if err != nil {
		return nil, err
	}

	l := &Log{
		path:    path,
		mode:    mode,
		records: records,
		keys:    make(map[domain.VerdictKey]struct{}, len(records)),
	}
	for _, r := range records {
		l.keys[r.Key()] = struct{}{}
	}

	if cache != path || mode == ModeAppend {
		if err := l.rewrite(); err != nil {
			return nil, err
		}
	}

	clog.FromContext(ctx).With("cache", cache).With("output", path).
		With("records", len(records)).With("mode", string(mode)).
		Info("Opened result log")
	return l, nil
}

func load(ctx context.Context, path string) ([]domain.VerdictRecord, error) {
	rc, err := dataset.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, ports.NewStoreError(path, "open", err)
	}
	defer rc.Close()

	recs, dropped, err := dataset.DecodeJSONLTruncated[domain.VerdictRecord](rc, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrLogCorrupted, err)
	}
	if dropped > 0 {
		clog.FromContext(ctx).With("path", path).With("line", dropped).
			Warn("Dropped truncated final record from result log")
	}
	return recs, nil
}

// Path returns the output file.
func (l *Log) Path() string { return l.path }

// Records implements ports.ResultLog.
func (l *Log) Records() []domain.VerdictRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.records)
}

// Contains implements ports.ResultLog.
func (l *Log) Contains(key domain.VerdictKey) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.keys[key]
	return ok
}

// Append implements ports.ResultLog. The record is on disk when Append
// returns nil.
func (l *Log) Append(_ context.Context, rec domain.VerdictRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ports.NewStoreError(l.path, "append", os.ErrClosed)
	}

	l.records = append(l.records, rec)
	var err error
	if l.mode == ModeAppend {
		err = l.appendLine(rec)
	} else {
		err = l.rewrite()
	}
	if err != nil {
		l.records = l.records[:len(l.records)-1]
		return err
	}
	l.keys[rec.Key()] = struct{}{}
	return nil
}

// Close implements ports.ResultLog. In append mode the file is compacted
// into a single clean stream.
func (l *Log) Close(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if l.mode == ModeAppend {
		if err := l.rewrite(); err != nil {
			return err
		}
		clog.FromContext(ctx).With("path", l.path).With("records", len(l.records)).Debug("Compacted result log")
	}
	return nil
}

func (l *Log) rewrite() error {
	if err := dataset.WriteJSONL(l.path, l.records); err != nil {
		return ports.NewStoreError(l.path, "rewrite", err)
	}
	return nil
}

func (l *Log) appendLine(rec domain.VerdictRecord) (err error) {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return ports.NewStoreError(l.path, "append", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = ports.NewStoreError(l.path, "append", cerr)
		}
	}()

	recs := []domain.VerdictRecord{rec}
	if dataset.IsGzip(l.path) {
		zw := gzip.NewWriter(f)
		if err := dataset.EncodeJSONL(zw, recs); err != nil {
			return ports.NewStoreError(l.path, "append", err)
		}
		if err := zw.Close(); err != nil {
			return ports.NewStoreError(l.path, "append", err)
		}
	} else if err := dataset.EncodeJSONL(f, recs); err != nil {
		return ports.NewStoreError(l.path, "append", err)
	}

	if err := f.Sync(); err != nil {
		return ports.NewStoreError(l.path, "append", err)
	}
	return nil
}
