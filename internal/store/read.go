package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

const runColumns = `id, seq, model_name, model_hash, status, error_kind, error_code, error_message, result, tool_version`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run        Run
		resultJSON string
	)
	err := row.Scan(
		&run.ID,
		&run.Seq,
		&run.ModelName,
		&run.ModelHash,
		&run.Status,
		&run.ErrorKind,
		&run.ErrorCode,
		&run.ErrorMessage,
		&resultJSON,
		&run.ToolVersion,
	)
	if err != nil {
		return Run{}, err
	}
	run.Result, err = unmarshalResult(resultJSON)
	if err != nil {
		return Run{}, fmt.Errorf("run %s: %w", run.ID, err)
	}
	return run, nil
}

// ReadRun returns one run by ID.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM schedule_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns the latest limit runs, oldest first. A limit of zero
// or less returns every run.
//
// Returns an empty slice (not nil) if the store has no runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+` FROM (
			SELECT `+runColumns+` FROM schedule_runs
			ORDER BY seq DESC
			LIMIT ?
		)
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LatestSuccessByHash returns the most recent successful run of a model
// with the given hash. The boolean is false when there is none.
func (s *Store) LatestSuccessByHash(ctx context.Context, hash string) (Run, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+` FROM schedule_runs
		WHERE model_hash = ? AND status = ?
		ORDER BY seq DESC
		LIMIT 1
	`, hash, StatusOK)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("lookup hash %s: %w", hash, err)
	}
	return run, true, nil
}
