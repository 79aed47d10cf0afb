// Package chart renders the category totals of a period as a horizontal bar
// chart, one PDF per period.
package chart

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"regnskap/internal/core"
	"regnskap/internal/log"
	"regnskap/internal/sheets"
)

const (
	filePrefix = "monthly_overview_"
	fileExt    = ".pdf"

	width  = 12 * vg.Inch
	height = 8 * vg.Inch
)

// ErrNoCategories is returned for a record without categories.
var ErrNoCategories = errors.New("record has no categories to plot")

// barColor is Okabe & Ito reddish purple.
var barColor = color.RGBA{R: 204, G: 121, B: 167, A: 255}

// Writer keeps one "monthly_overview_<YYYY-MM>.pdf" per period under dir.
type Writer struct {
	dir      string
	currency string
	logger   *log.Logger
	mu       sync.Mutex
}

var (
	_ sheets.RecordWriter = (*Writer)(nil)
	_ sheets.PeriodLister = (*Writer)(nil)
)

func New(dir, currency string, logger *log.Logger) *Writer {
	if logger == nil {
		logger = log.Discard()
	}
	if currency == "" {
		currency = "NOK"
	}
	return &Writer{dir: dir, currency: currency, logger: logger.WithComponent(log.ComponentSheets)}
}

// Path returns the chart file for period.
func (w *Writer) Path(period string) string {
	return filepath.Join(w.dir, filePrefix+period+fileExt)
}

// WriteRecord plots rec's category totals and returns the chart path. The
// period is taken from the end date, like the spreadsheet row.
func (w *Writer) WriteRecord(ctx context.Context, rec core.ResultsRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if rec.Categories == nil || rec.Categories.Len() == 0 {
		return "", ErrNoCategories
	}

	p, err := w.plot(rec)
	if err != nil {
		return "", err
	}
	to, err := p.WriterTo(width, height, strings.TrimPrefix(fileExt, "."))
	if err != nil {
		return "", fmt.Errorf("render chart: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	period := rec.EndDate.Format("2006-01")
	path := w.Path(period)
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("create chart directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", tmp, err)
	}
	if _, err := to.WriteTo(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", err
	}

	w.logger.DebugContext(ctx, "Wrote expense chart", log.FieldPath, path, log.FieldPeriod, period)
	return path, nil
}

// Periods lists the periods that already have a chart, oldest first.
func (w *Writer) Periods(_ context.Context) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	paths, err := filepath.Glob(filepath.Join(w.dir, filePrefix+"*"+fileExt))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(p), filePrefix), fileExt)
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (w *Writer) plot(rec core.ResultsRecord) (*plot.Plot, error) {
	breakdown := rec.Categories.Breakdown()

	// Bars are drawn bottom-up, so reverse to list the first category on top.
	n := len(breakdown)
	names := make([]string, n)
	values := make(plotter.Values, n)
	for i, c := range breakdown {
		names[n-1-i] = c.Name
		values[n-1-i] = c.Amount.InexactFloat64()
	}

	p := plot.New()
	p.Title.Text = Title(rec.EndDate)
	p.X.Label.Text = fmt.Sprintf("Amount [%s]", w.currency)
	p.Y.Label.Text = "Category"

	grid := plotter.NewGrid()
	grid.Horizontal.Color = nil
	p.Add(grid)

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return nil, fmt.Errorf("build bar chart: %w", err)
	}
	bars.Horizontal = true
	bars.Color = barColor
	bars.LineStyle.Color = barColor
	p.Add(bars)
	p.NominalY(names...)

	return p, nil
}

// Title is the chart heading for a period ending on end.
func Title(end core.Date) string {
	return "Monthly Expenses for " + end.Format("January 2006")
}
