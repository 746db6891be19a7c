package team

import (
	"github.com/chenBenjamin97/basketball-analyzer/pkg/tracking"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/utils"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

//Config holds clustering and stabilization tunables
type Config struct {
	Seed    int64 `mapstructure:"seed"`
	MaxIter int   `mapstructure:"max_iter" validate:"gte=1"`
	//SampleStride picks every n-th frame of the first batch to fit the team colors
	SampleStride int `mapstructure:"sample_stride" validate:"gte=1"`
	//Window is the number of trailing per-frame votes kept per player
	Window    int     `mapstructure:"window" validate:"gte=1"`
	LockVotes int     `mapstructure:"lock_votes" validate:"gte=1"`
	LockRatio float64 `mapstructure:"lock_ratio" validate:"gt=0.5,lte=1"`
	FlipRatio float64 `mapstructure:"flip_ratio" validate:"gt=0.5,lte=1"`
}

func DefaultConfig() Config {
	return Config{
		Seed:         42,
		MaxIter:      100,
		SampleStride: 5,
		Window:       30,
		LockVotes:    10,
		LockRatio:    0.8,
		FlipRatio:    0.8,
	}
}

//Assignment maps player identity to team for one frame. Players with no team yet are absent
type Assignment map[int]int

func (a Assignment) Get(id int) (int, bool) {
	t, ok := a[id]
	return t, ok
}

//PlayerVotes is the trailing vote window of one player
type PlayerVotes struct {
	Window []int `json:"window"`
	Label  int   `json:"label"`
	Locked bool  `json:"locked"`
}

//State keeps the team color prototypes and every player's votes across batches
type State struct {
	//Prototypes[0] is the darker uniform (utils.DarkTeamID), Prototypes[1] the lighter one
	Prototypes [][]float64          `json:"prototypes,omitempty"`
	Players    map[int]*PlayerVotes `json:"players,omitempty"`
}

type Assigner struct {
	cfg Config
	log logrus.FieldLogger
}

func NewAssigner(cfg Config, log logrus.FieldLogger) *Assigner {
	return &Assigner{cfg: cfg, log: log}
}

//Assign returns the stabilized team of every player per frame, frames in increasing order
func (a *Assigner) Assign(state *State, players []tracking.FrameObjects) []Assignment {
	if state.Players == nil {
		state.Players = make(map[int]*PlayerVotes)
	}
	if len(state.Prototypes) != 2 {
		a.fit(state, players)
	}

	out := make([]Assignment, len(players))
	for i, frame := range players {
		out[i] = make(Assignment, len(frame))

		for _, id := range frame.IDs() {
			v, ok := state.Players[id]
			if !ok {
				v = &PlayerVotes{Label: utils.NoTeam}
				state.Players[id] = v
			}

			if raw, ok := a.classify(state, frame[id].Feature); ok {
				a.vote(v, raw)
			}

			if v.Label != utils.NoTeam {
				out[i][id] = v.Label
			}
		}
	}

	return out
}

//fit clusters the sampled features into the two team prototypes, darker first
func (a *Assigner) fit(state *State, players []tracking.FrameObjects) {
	features := a.sample(players, a.cfg.SampleStride)
	if len(features) < 2 {
		features = a.sample(players, 1)
	}
	if !distinct(features) {
		a.log.WithField("features", len(features)).Debug("Assigner: Not enough appearance data to fit team colors yet")
		return
	}

	centroids, _ := KMeans(features, 2, a.cfg.Seed, a.cfg.MaxIter)
	if len(centroids) != 2 {
		return
	}
	if floats.Sum(centroids[0]) > floats.Sum(centroids[1]) {
		centroids[0], centroids[1] = centroids[1], centroids[0]
	}

	state.Prototypes = centroids
	a.log.WithField("prototypes", centroids).Info("Assigner: Team colors fitted")
}

func (a *Assigner) sample(players []tracking.FrameObjects, stride int) [][]float64 {
	var features [][]float64
	for i := 0; i < len(players); i += stride {
		for _, id := range players[i].IDs() {
			if f := players[i][id].Feature; len(f) > 0 {
				features = append(features, f)
			}
		}
	}
	return features
}

func distinct(features [][]float64) bool {
	for i := 1; i < len(features); i++ {
		if len(features[i]) != len(features[0]) {
			return false
		}
		if !floats.Equal(features[i], features[0]) {
			return true
		}
	}
	return false
}

func (a *Assigner) classify(state *State, feature []float64) (int, bool) {
	if len(state.Prototypes) != 2 || len(feature) != len(state.Prototypes[0]) {
		return 0, false
	}
	return nearest(state.Prototypes, feature), true
}

//vote adds raw to the window and updates the reported label. A locked label only
//changes when the window holds at least FlipRatio of the other team
func (a *Assigner) vote(v *PlayerVotes, raw int) {
	v.Window = append(v.Window, raw)
	if len(v.Window) > a.cfg.Window {
		v.Window = v.Window[len(v.Window)-a.cfg.Window:]
	}

	n := len(v.Window)
	light := 0
	for _, l := range v.Window {
		if l == utils.LightTeamID {
			light++
		}
	}
	dark := n - light

	majority, top := utils.DarkTeamID, dark
	switch {
	case light > dark:
		majority, top = utils.LightTeamID, light
	case light == dark:
		majority = v.Label
		if majority == utils.NoTeam {
			majority = raw
		}
	}
	share := float64(top) / float64(n)

	if v.Locked {
		if majority != v.Label && n >= a.cfg.LockVotes && share >= a.cfg.FlipRatio {
			v.Label = majority
		}
		return
	}

	v.Label = majority
	if n >= a.cfg.LockVotes && share >= a.cfg.LockRatio {
		v.Locked = true
	}
}
