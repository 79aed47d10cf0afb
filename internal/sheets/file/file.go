// Package file writes results rows to yearly tab-separated files.
package file

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"regnskap/internal/log"
	"regnskap/internal/sheets"
)

// Writer keeps one "regnskap-<year>.tsv" per year under dir.
type Writer struct {
	dir    string
	logger *log.Logger
	mu     sync.Mutex
}

var (
	_ sheets.RowWriter    = (*Writer)(nil)
	_ sheets.PeriodLister = (*Writer)(nil)
)

func New(dir string, logger *log.Logger) *Writer {
	if logger == nil {
		logger = log.Discard()
	}
	return &Writer{dir: dir, logger: logger.WithComponent(log.ComponentSheets)}
}

// Path returns the file holding rows for year.
func (w *Writer) Path(year int) string {
	return filepath.Join(w.dir, fmt.Sprintf("regnskap-%d.tsv", year))
}

// WriteRow replaces or appends the row for its period and rewrites the file.
func (w *Writer) WriteRow(ctx context.Context, row []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	year, err := sheets.RowYear(row)
	if err != nil {
		return "", err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	path := w.Path(year)
	rows, err := readRows(path)
	if err != nil {
		return "", err
	}

	line := -1
	for i, r := range rows {
		if len(r) > 0 && r[0] == row[0] {
			line = i
			break
		}
	}
	if line < 0 {
		rows = append(rows, row)
		line = len(rows) - 1
	} else {
		rows[line] = row
	}

	if err := writeRows(path, rows); err != nil {
		return "", err
	}

	w.logger.DebugContext(ctx, "Wrote results row", log.FieldPath, path, log.FieldPeriod, row[0])
	return fmt.Sprintf("%s:%d", path, line+1), nil
}

// Periods lists the periods of every yearly file in dir.
func (w *Writer) Periods(_ context.Context) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	paths, err := filepath.Glob(filepath.Join(w.dir, "regnskap-*.tsv"))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range paths {
		rows, err := readRows(p)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			if len(r) > 0 {
				out = append(out, r[0])
			}
		}
	}
	return out, nil
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	return cr
}

func readRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := newReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

func writeRows(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	cw := csv.NewWriter(f)
	cw.Comma = '\t'
	if err := cw.WriteAll(rows); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
