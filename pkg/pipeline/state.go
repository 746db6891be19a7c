//Package pipeline runs the analysis stages over batches of detected frames and carries
//their state from one batch to the next.
package pipeline

import (
	"fmt"

	"github.com/chenBenjamin97/basketball-analyzer/pkg/court"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/kinematics"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/possession"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/team"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/tracking"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

//State is everything a batch leaves behind for the next one. It only ever reflects
//fully completed batches
type State struct {
	NextFrame  int                     `json:"next_frame"`
	Started    bool                    `json:"started"`
	Players    tracking.PlayerState    `json:"players"`
	Ball       tracking.BallState      `json:"ball"`
	Refiner    tracking.RefinerState   `json:"refiner"`
	Court      court.State             `json:"court"`
	Teams      team.State              `json:"teams"`
	Possession possession.State        `json:"possession"`
	Events     possession.EventState   `json:"events"`
	Control    possession.ControlState `json:"control"`
	Kinematics kinematics.State        `json:"kinematics"`
}

//NewState returns the state of a run that has not seen any frame. The first batch may
//start at any frame index, later ones must follow on
func NewState() State {
	return State{
		Possession: possession.NewState(),
		Events:     possession.NewEventState(),
		Control:    possession.NewControlState(),
	}
}

//Clone returns a deep copy sharing no memory with s
func (s State) Clone() (State, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return State{}, fmt.Errorf("State.Clone: %w", err)
	}

	var out State
	if err := json.Unmarshal(b, &out); err != nil {
		return State{}, fmt.Errorf("State.Clone: %w", err)
	}
	return out, nil
}
