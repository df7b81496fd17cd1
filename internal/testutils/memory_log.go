package testutils

import (
	"context"
	"slices"
	"sync"

	"github.com/modelscope/eval-scope/internal/domain"
	"github.com/modelscope/eval-scope/internal/ports"
)

// MemoryLog is an in-memory ports.ResultLog.
type MemoryLog struct {
	mu      sync.Mutex
	records []domain.VerdictRecord
	keys    map[domain.VerdictKey]bool

	// AppendErr, when set, is returned by Append.
	AppendErr error
	closed    bool
}

// NewMemoryLog returns a log pre-loaded with records.
func NewMemoryLog(records ...domain.VerdictRecord) *MemoryLog {
	l := &MemoryLog{keys: make(map[domain.VerdictKey]bool)}
	for _, r := range records {
		l.records = append(l.records, r)
		l.keys[r.Key()] = true
	}
	return l
}

// Records implements ports.ResultLog.
func (l *MemoryLog) Records() []domain.VerdictRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.records)
}

// Contains implements ports.ResultLog.
func (l *MemoryLog) Contains(key domain.VerdictKey) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.keys[key]
}

// Append implements ports.ResultLog.
func (l *MemoryLog) Append(_ context.Context, rec domain.VerdictRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.AppendErr != nil {
		return l.AppendErr
	}
	l.records = append(l.records, rec)
	l.keys[rec.Key()] = true
	return nil
}

// Close implements ports.ResultLog.
func (l *MemoryLog) Close(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// Closed reports whether Close was called.
func (l *MemoryLog) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

var _ ports.ResultLog = (*MemoryLog)(nil)
