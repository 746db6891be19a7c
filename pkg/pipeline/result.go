package pipeline

import (
	"fmt"

	"github.com/chenBenjamin97/basketball-analyzer/pkg/court"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/kinematics"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/possession"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/team"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/tracking"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/utils"
)

var ErrMisaligned = utils.ErrMisaligned

//Result is one batch worth of stage output. Every per-frame slice has one entry per batch
//frame, with index i describing frame FirstFrame+i
type Result struct {
	FirstFrame int                     `json:"first_frame"`
	Players    []tracking.FrameObjects `json:"players"`
	Ball       []tracking.FrameObjects `json:"ball"`
	Court      []court.Frame           `json:"court"`
	Positions  []court.Positions       `json:"positions"`
	Teams      []team.Assignment       `json:"teams"`
	Possession []int                   `json:"possession"`
	Control    []int                   `json:"control"`
	Kinematics []kinematics.Frame      `json:"kinematics"`
	Events     []possession.Event      `json:"events,omitempty"`
}

func (r Result) Len() int { return len(r.Players) }

//Check returns ErrMisaligned when any per-frame sequence does not hold exactly n entries
//or an event falls outside the batch
func (r Result) Check(n int) error {
	if err := utils.CheckAligned(n, map[string]int{
		"players":    len(r.Players),
		"ball":       len(r.Ball),
		"court":      len(r.Court),
		"positions":  len(r.Positions),
		"teams":      len(r.Teams),
		"possession": len(r.Possession),
		"control":    len(r.Control),
		"kinematics": len(r.Kinematics),
	}); err != nil {
		return err
	}

	for _, e := range r.Events {
		if e.Frame < r.FirstFrame || e.Frame >= r.FirstFrame+n {
			return fmt.Errorf("%w: %s event at frame %d outside batch [%d, %d)", ErrMisaligned, e.Kind, e.Frame, r.FirstFrame, r.FirstFrame+n)
		}
	}
	return nil
}
