package store

import (
	"context"
	"fmt"

	"github.com/chenBenjamin97/basketball-analyzer/pkg/kinematics"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/possession"
	"github.com/jmoiron/sqlx"
)

type eventRow struct {
	RunID string `db:"run_id"`
	possession.Event
}

type playerStatRow struct {
	RunID string `db:"run_id"`
	kinematics.Total
}

//TeamControl is how many frames a team controlled the ball during a run
type TeamControl struct {
	Team   int     `json:"team" db:"team"`
	Frames int     `json:"frames" db:"frames"`
	Share  float64 `json:"share" db:"-"`
}

//AppendEvents stores events of one batch. Either all of them are stored or none
func (s *Store) AppendEvents(ctx context.Context, runID string, events []possession.Event) error {
	if len(events) == 0 {
		return nil
	}

	return s.inTx(ctx, "AppendEvents", func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareNamedContext(ctx, queryInsertEvent)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, e := range events {
			if _, err := stmt.ExecContext(ctx, eventRow{RunID: runID, Event: e}); err != nil {
				return err
			}
		}
		return nil
	})
}

//SavePlayerStats replaces the per-player totals of a run
func (s *Store) SavePlayerStats(ctx context.Context, runID string, totals []kinematics.Total) error {
	if len(totals) == 0 {
		return nil
	}

	return s.inTx(ctx, "SavePlayerStats", func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareNamedContext(ctx, queryUpsertPlayerStat)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, t := range totals {
			if _, err := stmt.ExecContext(ctx, playerStatRow{RunID: runID, Total: t}); err != nil {
				return err
			}
		}
		return nil
	})
}

//SaveTeamControl replaces the team ball control counters of a run
func (s *Store) SaveTeamControl(ctx context.Context, runID string, control possession.ControlState) error {
	return s.inTx(ctx, "SaveTeamControl", func(tx *sqlx.Tx) error {
		for team, frames := range control.Frames {
			argsKV := map[string]interface{}{"run_id": runID, "team": team, "frames": frames}
			if _, err := tx.NamedExecContext(ctx, queryUpsertTeamControl, argsKV); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Events(ctx context.Context, runID string) ([]possession.Event, error) {
	events := []possession.Event{}
	if err := s.db.SelectContext(ctx, &events, queryEvents, runID); err != nil {
		return nil, fmt.Errorf("Events: %w", err)
	}
	return events, nil
}

func (s *Store) PlayerStats(ctx context.Context, runID string) ([]kinematics.Total, error) {
	totals := []kinematics.Total{}
	if err := s.db.SelectContext(ctx, &totals, queryPlayerStats, runID); err != nil {
		return nil, fmt.Errorf("PlayerStats: %w", err)
	}
	return totals, nil
}

//TeamControl returns both teams' controlled frames and their share of the total
func (s *Store) TeamControl(ctx context.Context, runID string) ([]TeamControl, error) {
	control := []TeamControl{}
	if err := s.db.SelectContext(ctx, &control, queryTeamControl, runID); err != nil {
		return nil, fmt.Errorf("TeamControl: %w", err)
	}

	total := 0
	for _, c := range control {
		total += c.Frames
	}
	if total > 0 {
		for i := range control {
			control[i].Share = float64(control[i].Frames) / float64(total)
		}
	}
	return control, nil
}

func (s *Store) inTx(ctx context.Context, name string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Warnf("%s: Error rolling back, got '%v'", name, rbErr)
		}
		return fmt.Errorf("%s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
