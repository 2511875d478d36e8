package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"buildbench/internal/build"
)

var _ build.Recorder = (*Store)(nil)

// ErrNotFound is returned when a batch id has no record.
var ErrNotFound = errors.New("batch not found")

// RecordBatch stores rec and its per-program results in one transaction.
func (s *Store) RecordBatch(ctx context.Context, rec build.BatchRecord) error {
	ctx = ensureContext(ctx)
	skipped, err := json.Marshal(nonNil(rec.Skipped))
	if err != nil {
		return fmt.Errorf("marshal skipped: %w", err)
	}

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin record tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO batches (id, mode, preset, output_dir, started_at, finished_at, skipped_json, aborted)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID,
			rec.Mode.String(),
			nullableString(rec.Preset),
			nullableString(rec.OutputDir),
			formatTime(rec.StartedAt),
			formatTime(rec.FinishedAt),
			string(skipped),
			boolToInt(rec.Aborted),
		); err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}

		for i, res := range rec.Results {
			features, err := json.Marshal(nonNil(res.Features))
			if err != nil {
				return fmt.Errorf("marshal features: %w", err)
			}
			var exitCode any
			if res.ExitCode != nil {
				exitCode = *res.ExitCode
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO results (batch_id, position, program, features_json, command, status, exit_code, signal, detail, duration_ms)
                 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				rec.ID,
				i,
				res.Program,
				string(features),
				res.Command,
				string(res.Status),
				exitCode,
				nullableString(res.Signal),
				nullableString(res.Detail),
				res.Duration.Milliseconds(),
			); err != nil {
				return fmt.Errorf("insert result %s: %w", res.Program, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit record: %w", err)
		}
		return nil
	})
}

// Recent returns up to limit batches, newest first, with their results.
func (s *Store) Recent(ctx context.Context, limit int) ([]build.BatchRecord, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, preset, output_dir, started_at, finished_at, skipped_json, aborted
         FROM batches ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	var records []build.BatchRecord
	for rows.Next() {
		rec, err := scanBatch(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate batches: %w", err)
	}
	_ = rows.Close()

	for i := range records {
		results, err := s.results(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].Results = results
	}
	return records, nil
}

// Get fetches one batch by id.
func (s *Store) Get(ctx context.Context, id string) (build.BatchRecord, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, mode, preset, output_dir, started_at, finished_at, skipped_json, aborted
         FROM batches WHERE id = ?`, id)
	rec, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return build.BatchRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return build.BatchRecord{}, err
	}
	if rec.Results, err = s.results(ctx, id); err != nil {
		return build.BatchRecord{}, err
	}
	return rec, nil
}

// Clear deletes every recorded batch and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	var removed int64
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx, "DELETE FROM results"); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM batches")
		if err != nil {
			return err
		}
		if removed, err = res.RowsAffected(); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	return removed, nil
}

func (s *Store) results(ctx context.Context, batchID string) ([]build.ProgramResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT program, features_json, command, status, exit_code, signal, detail, duration_ms
         FROM results WHERE batch_id = ? ORDER BY position`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []build.ProgramResult
	for rows.Next() {
		var (
			res        build.ProgramResult
			features   string
			status     string
			exitCode   sql.NullInt64
			signal     sql.NullString
			detail     sql.NullString
			durationMS int64
		)
		if err := rows.Scan(&res.Program, &features, &res.Command, &status, &exitCode, &signal, &detail, &durationMS); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if err := json.Unmarshal([]byte(features), &res.Features); err != nil {
			return nil, fmt.Errorf("decode features: %w", err)
		}
		res.Status = build.Status(status)
		if exitCode.Valid {
			code := int(exitCode.Int64)
			res.ExitCode = &code
		}
		res.Signal = signal.String
		res.Detail = detail.String
		res.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(row scanner) (build.BatchRecord, error) {
	var (
		rec       build.BatchRecord
		mode      string
		preset    sql.NullString
		outputDir sql.NullString
		started   string
		finished  string
		skipped   string
		aborted   int
	)
	if err := row.Scan(&rec.ID, &mode, &preset, &outputDir, &started, &finished, &skipped, &aborted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan batch: %w", err)
	}
	parsed, err := build.ParseMode(mode)
	if err != nil {
		return rec, fmt.Errorf("batch %s: %w", rec.ID, err)
	}
	rec.Mode = parsed
	rec.Preset = preset.String
	rec.OutputDir = outputDir.String
	rec.StartedAt = parseTime(started)
	rec.FinishedAt = parseTime(finished)
	rec.Aborted = aborted != 0
	if err := json.Unmarshal([]byte(skipped), &rec.Skipped); err != nil {
		return rec, fmt.Errorf("decode skipped: %w", err)
	}
	if len(rec.Skipped) == 0 {
		rec.Skipped = nil
	}
	return rec, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
