package possession

import (
	"github.com/chenBenjamin97/basketball-analyzer/pkg/team"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/utils"
)

type Kind string

const (
	Pass         Kind = "pass"
	Interception Kind = "interception"
)

type Event struct {
	Kind     Kind `json:"kind" db:"kind"`
	Frame    int  `json:"frame" db:"frame"`
	From     int  `json:"from" db:"from_player"`
	To       int  `json:"to" db:"to_player"`
	FromTeam int  `json:"from_team" db:"from_team"`
	ToTeam   int  `json:"to_team" db:"to_team"`
}

//EventState remembers the last player seen with the ball, surviving loose-ball stretches
type EventState struct {
	Last     int `json:"last"`
	LastTeam int `json:"last_team"`
}

func NewEventState() EventState {
	return EventState{Last: utils.NoPlayer, LastTeam: utils.NoTeam}
}

//Detect emits a pass or an interception at every frame where the possessor changes to a
//new player. Changes where either team is unknown are skipped
func Detect(state *EventState, possession []int, teams []team.Assignment, firstFrame int) []Event {
	var events []Event
	for i, p := range possession {
		if p == utils.NoPlayer {
			continue
		}

		t, ok := teams[i].Get(p)
		if !ok {
			t = utils.NoTeam
		}

		if p == state.Last {
			if ok {
				state.LastTeam = t
			}
			continue
		}

		if state.Last != utils.NoPlayer && state.LastTeam != utils.NoTeam && t != utils.NoTeam {
			kind := Interception
			if state.LastTeam == t {
				kind = Pass
			}
			events = append(events, Event{
				Kind:     kind,
				Frame:    firstFrame + i,
				From:     state.Last,
				To:       p,
				FromTeam: state.LastTeam,
				ToTeam:   t,
			})
		}

		state.Last, state.LastTeam = p, t
	}
	return events
}
