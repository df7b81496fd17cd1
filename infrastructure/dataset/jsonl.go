// Package dataset reads and writes the JSON-lines files the arena consumes
// and produces: answer sets, reference answers, prompt templates and result
// logs. Paths ending in ".gz" are transparently gzip-compressed.
package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/modelscope/eval-scope/internal/ports"
)

// maxLineSize bounds a single JSON-lines record. Judge reviews and long
// answers routinely exceed bufio's 64 KiB default.
const maxLineSize = 16 << 20

// IsGzip reports whether path names a gzip-compressed file.
func IsGzip(path string) bool { return strings.HasSuffix(path, ".gz") }

type multiCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiCloser) Close() error {
	var errs []error
	for _, c := range m.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Open opens path for reading, decompressing ".gz" files. A gzip file with
// several members, as produced by appending, reads as one stream.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !IsGzip(path) {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		if errors.Is(err, io.EOF) {
			return io.NopCloser(bytes.NewReader(nil)), nil
		}
		return nil, fmt.Errorf("opening gzip stream: %w", err)
	}
	return &multiCloser{Reader: zr, closers: []io.Closer{zr, f}}, nil
}

// DecodeJSONL decodes one T per non-blank line of r. name is used in
// errors only.
func DecodeJSONL[T any](r io.Reader, name string) ([]T, error) {
	out, _, err := decodeLines[T](r, name, false)
	return out, err
}

// DecodeJSONLTruncated is DecodeJSONL for files that may end in a record
// cut short by a crash: an undecodable final line is dropped and reported
// instead of failing the read.
func DecodeJSONLTruncated[T any](r io.Reader, name string) (recs []T, droppedLine int, err error) {
	return decodeLines[T](r, name, true)
}

func decodeLines[T any](r io.Reader, name string, tolerateTail bool) ([]T, int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		out     []T
		pending *ports.StoreError
	)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		if pending != nil {
			return nil, 0, pending
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			pending = &ports.StoreError{Path: name, Operation: "decode", Line: line, Err: err}
			if !tolerateTail {
				return nil, 0, pending
			}
			continue
		}
		out = append(out, v)
	}
	if err := scanner.Err(); err != nil {
		if tolerateTail && pending == nil && errors.Is(err, io.ErrUnexpectedEOF) {
			return out, line + 1, nil
		}
		return nil, 0, &ports.StoreError{Path: name, Operation: "read", Line: line + 1, Err: err}
	}
	if pending != nil {
		return out, pending.Line, nil
	}
	return out, 0, nil
}

// ReadJSONL reads every record of a JSON-lines file.
func ReadJSONL[T any](path string) ([]T, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, ports.NewStoreError(path, "open", err)
	}
	defer rc.Close()
	return DecodeJSONL[T](rc, path)
}

// EncodeJSONL writes one JSON object per line. HTML characters are not
// escaped so review text stays readable.
func EncodeJSONL[T any](w io.Writer, recs []T) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, rec := range recs {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encoding record %d: %w", i, err)
		}
	}
	return nil
}

// WriteJSONL atomically replaces path with recs: the data is written to a
// temporary file in the same directory, synced, and renamed over path.
func WriteJSONL[T any](path string, recs []T) error {
	return writeAtomic(path, func(w io.Writer) error {
		if !IsGzip(path) {
			return EncodeJSONL(w, recs)
		}
		zw := gzip.NewWriter(w)
		if err := EncodeJSONL(zw, recs); err != nil {
			return err
		}
		return zw.Close()
	})
}
