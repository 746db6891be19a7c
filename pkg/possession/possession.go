//Package possession decides which player holds the ball and derives passes,
//interceptions and team ball control from it.
package possession

import (
	"math"

	"github.com/chenBenjamin97/basketball-analyzer/pkg/detect"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/tracking"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/utils"
	"github.com/sirupsen/logrus"
)

type Config struct {
	//MaxDistance in pixels between the ball centre and a player's closest proxy point
	MaxDistance float64 `mapstructure:"max_distance" validate:"gt=0"`
	//MinFrames a new candidate must hold before it becomes the possessor
	MinFrames int `mapstructure:"min_frames" validate:"gte=1"`
	//ContainmentRatio of the ball box that must lie inside a player box to prefer that player
	ContainmentRatio float64 `mapstructure:"containment_ratio" validate:"gt=0,lte=1"`
}

func DefaultConfig() Config {
	return Config{
		MaxDistance:      50,
		MinFrames:        5,
		ContainmentRatio: 0.8,
	}
}

//State is the confirmed possessor and the candidate waiting for confirmation
type State struct {
	Current   int `json:"current"`
	Candidate int `json:"candidate"`
	Count     int `json:"count"`
}

func NewState() State {
	return State{Current: utils.NoPlayer, Candidate: utils.NoPlayer}
}

type Tracker struct {
	cfg Config
	log logrus.FieldLogger
}

func NewTracker(cfg Config, log logrus.FieldLogger) *Tracker {
	return &Tracker{cfg: cfg, log: log}
}

//Track returns the confirmed possessor per frame, utils.NoPlayer when nobody holds the ball
func (t *Tracker) Track(state *State, players, ball []tracking.FrameObjects) []int {
	out := make([]int, len(players))
	for i := range players {
		candidate := utils.NoPlayer
		if b, ok := ball[i].Get(utils.BallID); ok {
			candidate = t.candidate(players[i], b.Box)
		}
		t.confirm(state, candidate)
		out[i] = state.Current
	}
	return out
}

//confirm applies the hysteresis. Losing the ball is gated the same way as gaining it
func (t *Tracker) confirm(state *State, candidate int) {
	if candidate == state.Current {
		state.Candidate, state.Count = state.Current, 0
		return
	}

	if candidate == state.Candidate {
		state.Count++
	} else {
		state.Candidate, state.Count = candidate, 1
	}

	if state.Count >= t.cfg.MinFrames {
		t.log.WithFields(logrus.Fields{"from": state.Current, "to": candidate}).Debug("Tracker: Possession changed")
		state.Current, state.Count = candidate, 0
	}
}

//candidate prefers players whose box contains most of the ball, then the closest proxy point
func (t *Tracker) candidate(players tracking.FrameObjects, ball detect.BBox) int {
	centre := ball.Center()

	best, bestDist := utils.NoPlayer, math.Inf(1)
	bestContained := false
	for _, id := range players.IDs() {
		box := players[id].Box
		d := proxyDistance(box, centre)
		contained := ball.IntersectionRatio(box) >= t.cfg.ContainmentRatio

		if contained && !bestContained {
			best, bestDist, bestContained = id, d, true
			continue
		}
		if contained != bestContained {
			continue
		}
		if !contained && d > t.cfg.MaxDistance {
			continue
		}
		if d < bestDist {
			best, bestDist = id, d
		}
	}
	return best
}

func proxyDistance(box detect.BBox, p detect.Point) float64 {
	midY := (box.Y1 + box.Y2) / 2
	proxies := []detect.Point{
		box.Center(),
		box.Foot(),
		{X: box.X1, Y: midY},
		{X: box.X2, Y: midY},
		{X: box.X1, Y: box.Y1},
		{X: box.X2, Y: box.Y1},
	}

	best := math.Inf(1)
	for _, q := range proxies {
		best = math.Min(best, q.Dist(p))
	}
	return best
}
