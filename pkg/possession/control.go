package possession

import (
	"github.com/chenBenjamin97/basketball-analyzer/pkg/team"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/utils"
)

//ControlState is the team in control and how many frames each team controlled so far
type ControlState struct {
	Team   int    `json:"team"`
	Frames [2]int `json:"frames"`
}

func NewControlState() ControlState {
	return ControlState{Team: utils.NoTeam}
}

//Control returns the controlling team per frame. A loose ball stays with the last team
//that held it, utils.NoTeam before anybody did
func Control(state *ControlState, possession []int, teams []team.Assignment) []int {
	out := make([]int, len(possession))
	for i, p := range possession {
		if p != utils.NoPlayer {
			if t, ok := teams[i].Get(p); ok {
				state.Team = t
			}
		}

		out[i] = state.Team
		if state.Team != utils.NoTeam {
			state.Frames[state.Team]++
		}
	}
	return out
}

//Share returns the fraction of controlled frames per team
func (s ControlState) Share() [2]float64 {
	total := s.Frames[0] + s.Frames[1]
	if total == 0 {
		return [2]float64{}
	}
	return [2]float64{
		float64(s.Frames[0]) / float64(total),
		float64(s.Frames[1]) / float64(total),
	}
}
