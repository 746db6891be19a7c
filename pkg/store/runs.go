package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

const (
	StatusRunning  = "running"
	StatusDone     = "done"
	StatusFailed   = "failed"
	StatusCanceled = "canceled"
)

//Run is one analysis of one input. Times are unix seconds
type Run struct {
	ID         string        `json:"id" db:"id"`
	Source     string        `json:"source" db:"source"`
	Status     string        `json:"status" db:"status"`
	Frames     int           `json:"frames" db:"frames"`
	CreatedAt  int64         `json:"created_at" db:"created_at"`
	FinishedAt sql.NullInt64 `json:"-" db:"finished_at"`
}

//CreateRun registers a new running analysis of source and returns its id
func (s *Store) CreateRun(ctx context.Context, source string) (string, error) {
	id := uuid.NewString()
	argsKV := map[string]interface{}{
		"id":         id,
		"source":     source,
		"status":     StatusRunning,
		"created_at": time.Now().Unix(),
	}

	query, args, err := sqlx.Named(queryCreateRun, argsKV)
	if err != nil {
		return "", fmt.Errorf("CreateRun: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		s.log.WithFields(logrus.Fields{"source": source, "error": err.Error()}).Error("CreateRun: Database error")
		return "", fmt.Errorf("CreateRun: %w", err)
	}

	return id, nil
}

//FinishRun records the final status and how many frames were analyzed
func (s *Store) FinishRun(ctx context.Context, id string, frames int, status string) error {
	argsKV := map[string]interface{}{
		"id":          id,
		"status":      status,
		"frames":      frames,
		"finished_at": time.Now().Unix(),
	}

	query, args, err := sqlx.Named(queryFinishRun, argsKV)
	if err != nil {
		return fmt.Errorf("FinishRun: %w", err)
	}

	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("FinishRun: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("FinishRun: %w: %s", ErrRunNotFound, id)
	}

	return nil
}

func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	var run Run
	if err := s.db.GetContext(ctx, &run, queryGetRun, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, fmt.Errorf("GetRun: %w: %s", ErrRunNotFound, id)
		}
		return Run{}, fmt.Errorf("GetRun: %w", err)
	}
	return run, nil
}

//ListRuns returns every run, newest first
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	runs := []Run{}
	if err := s.db.SelectContext(ctx, &runs, queryListRuns); err != nil {
		return nil, fmt.Errorf("ListRuns: %w", err)
	}
	return runs, nil
}
