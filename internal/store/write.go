package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/sdfsched/internal/ir"
	"github.com/roach88/sdfsched/internal/schedule"
	"github.com/roach88/sdfsched/internal/sdferr"
)

// Run statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Run is one recorded scheduling attempt.
type Run struct {
	ID        string `json:"id"`
	Seq       int64  `json:"seq"`
	ModelName string `json:"model_name"`
	ModelHash string `json:"model_hash"`
	Status    string `json:"status"`

	// Error fields are set when Status is StatusError.
	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	// Result is set when Status is StatusOK.
	Result *schedule.Result `json:"result,omitempty"`

	ToolVersion string `json:"tool_version"`
}

// NewRun records the outcome of one scheduling attempt. A non-nil err
// makes a failed run; scheduling errors keep their kind and code.
func NewRun(id, modelName, modelHash string, res *schedule.Result, err error) Run {
	run := Run{
		ID:          id,
		ModelName:   modelName,
		ModelHash:   modelHash,
		ToolVersion: ir.ToolVersion,
	}
	if err != nil {
		run.Status = StatusError
		run.ErrorKind = string(sdferr.KindOf(err))
		run.ErrorCode = sdferr.CodeOf(err)
		run.ErrorMessage = err.Error()
		return run
	}
	run.Status = StatusOK
	run.Result = res
	return run
}

// WriteRun inserts a run and returns its seq.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - writing the same ID
// twice returns the seq of the first write.
func (s *Store) WriteRun(ctx context.Context, run Run) (int64, error) {
	if run.ID == "" {
		return 0, fmt.Errorf("write run: empty id")
	}
	if run.Status != StatusOK && run.Status != StatusError {
		return 0, fmt.Errorf("write run %s: invalid status %q", run.ID, run.Status)
	}
	if run.ToolVersion == "" {
		run.ToolVersion = ir.ToolVersion
	}

	resultJSON, err := marshalResult(run.Result)
	if err != nil {
		return 0, fmt.Errorf("write run %s: %w", run.ID, err)
	}

	var seq int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO schedule_runs
		(id, seq, model_name, model_hash, status, error_kind, error_code, error_message, result, tool_version)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM schedule_runs), ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
		RETURNING seq
	`,
		run.ID,
		run.ModelName,
		run.ModelHash,
		run.Status,
		run.ErrorKind,
		run.ErrorCode,
		run.ErrorMessage,
		resultJSON,
		run.ToolVersion,
	).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		existing, readErr := s.ReadRun(ctx, run.ID)
		if readErr != nil {
			return 0, fmt.Errorf("write run %s: %w", run.ID, readErr)
		}
		return existing.Seq, nil
	}
	if err != nil {
		return 0, fmt.Errorf("write run %s: %w", run.ID, err)
	}
	return seq, nil
}
