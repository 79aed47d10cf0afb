package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"regnskap/internal/core"
	"regnskap/internal/log"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

var _ ResultsStore = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:     db,
		logger: logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load implements ResultsStore.
func (r *SQLiteRepository) Load(ctx context.Context, period string) (core.ResultsRecord, error) {
	if err := ValidatePeriod(period); err != nil {
		return core.ResultsRecord{}, err
	}

	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT record FROM results WHERE period = ?`, period).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ResultsRecord{}, fmt.Errorf("%w: %s", ErrNotFound, period)
	}
	if err != nil {
		return core.ResultsRecord{}, fmt.Errorf("query results %s: %w", period, err)
	}

	var rec core.ResultsRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return core.ResultsRecord{}, fmt.Errorf("decode results %s: %w", period, err)
	}

	r.logger.Debug("Results loaded", log.FieldPeriod, period, log.FieldOperation, log.OpLoad)
	return rec, nil
}

// Save implements ResultsStore. An existing row for the period is replaced.
func (r *SQLiteRepository) Save(ctx context.Context, period string, rec core.ResultsRecord) error {
	if err := ValidatePeriod(period); err != nil {
		return err
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode results %s: %w", period, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO results (period, record, start_date, end_date, income, expense, commitment, runs, computed_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(period) DO UPDATE SET
			record = excluded.record,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			income = excluded.income,
			expense = excluded.expense,
			commitment = excluded.commitment,
			runs = excluded.runs,
			computed_at = excluded.computed_at,
			updated_at = excluded.updated_at`,
		period, string(raw),
		rec.StartDate.String(), rec.EndDate.String(),
		rec.Income.String(), rec.Expense.String(), rec.Commitment.String(),
		len(rec.Runs), rec.ComputedAt.UTC(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save results %s: %w", period, err)
	}

	r.logger.Info("Results saved",
		log.FieldPeriod, period,
		log.FieldOperation, log.OpSave,
		"runs", len(rec.Runs))
	return nil
}

// Periods implements ResultsStore. Keys are returned in ascending order.
func (r *SQLiteRepository) Periods(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT period FROM results ORDER BY period`)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	defer rows.Close()

	var periods []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan period: %w", err)
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}
