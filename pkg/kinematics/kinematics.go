//Package kinematics turns court positions into per-player distance and speed.
package kinematics

import (
	"sort"

	"github.com/chenBenjamin97/basketball-analyzer/pkg/court"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/detect"
	"github.com/sirupsen/logrus"
)

type Config struct {
	FrameRate float64 `mapstructure:"frame_rate" validate:"gt=0"`
	//Window is the number of trailing frames the speed is averaged over
	Window int    `mapstructure:"window" validate:"gte=1"`
	Unit   string `mapstructure:"unit" validate:"oneof=mps mph kmph kph"`
}

func DefaultConfig() Config {
	return Config{FrameRate: 30, Window: 5, Unit: KMPH}
}

//Sample is one player's motion in one frame. Distances are meters, Speed is in the configured unit
type Sample struct {
	Displacement float64 `json:"displacement"`
	Distance     float64 `json:"distance"`
	Speed        float64 `json:"speed"`
}

//Frame maps player identity to its sample. Only players with a court position are keys
type Frame map[int]Sample

func (f Frame) Get(id int) (Sample, bool) {
	s, ok := f[id]
	return s, ok
}

type step struct {
	Frame        int     `json:"frame"`
	Displacement float64 `json:"displacement"`
}

//Track is the carried motion history of one player
type Track struct {
	Last      detect.Point `json:"last"`
	LastFrame int          `json:"last_frame"`
	Steps     []step       `json:"steps,omitempty"`
	Distance  float64      `json:"distance"`
	MaxSpeed  float64      `json:"max_speed"`
	Frames    int          `json:"frames"`
}

type State struct {
	Players map[int]*Track `json:"players,omitempty"`
}

//Total summarizes one player over everything computed so far
type Total struct {
	Player   int     `json:"player" db:"player"`
	Distance float64 `json:"distance" db:"distance"`
	MaxSpeed float64 `json:"max_speed" db:"max_speed"`
	Frames   int     `json:"frames" db:"frames"`
}

//Totals returns one entry per player, sorted by identity
func (s *State) Totals() []Total {
	out := make([]Total, 0, len(s.Players))
	for id, t := range s.Players {
		out = append(out, Total{Player: id, Distance: t.Distance, MaxSpeed: t.MaxSpeed, Frames: t.Frames})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Player < out[j].Player })
	return out
}

type Engine struct {
	cfg Config
	log logrus.FieldLogger
}

func NewEngine(cfg Config, log logrus.FieldLogger) *Engine {
	return &Engine{cfg: cfg, log: log}
}

//Compute returns the samples of every frame. firstFrame is the global index of positions[0]
func (e *Engine) Compute(state *State, positions []court.Positions, firstFrame int) []Frame {
	if state.Players == nil {
		state.Players = make(map[int]*Track)
	}

	out := make([]Frame, len(positions))
	for i, frame := range positions {
		index := firstFrame + i
		out[i] = make(Frame, len(frame))

		for _, id := range frame.IDs() {
			p := frame[id]
			t, ok := state.Players[id]
			if !ok {
				t = &Track{}
				state.Players[id] = t
			} else if t.LastFrame == index-1 {
				d := t.Last.Dist(p)
				t.Steps = append(t.Steps, step{Frame: index, Displacement: d})
				t.Distance += d
			}

			t.Steps = trim(t.Steps, index-e.cfg.Window)
			t.Last, t.LastFrame = p, index
			t.Frames++

			sample := Sample{Distance: t.Distance, Speed: e.speed(t.Steps)}
			if n := len(t.Steps); n > 0 && t.Steps[n-1].Frame == index {
				sample.Displacement = t.Steps[n-1].Displacement
			}
			if sample.Speed > t.MaxSpeed {
				t.MaxSpeed = sample.Speed
			}
			out[i][id] = sample
		}
	}

	return out
}

//speed divides the windowed distance by the time its pairs span
func (e *Engine) speed(steps []step) float64 {
	if len(steps) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range steps {
		sum += s.Displacement
	}
	seconds := float64(len(steps)) / e.cfg.FrameRate
	return ConvertSpeed(sum/seconds, e.cfg.Unit)
}

//trim drops steps at or before frame
func trim(steps []step, frame int) []step {
	i := 0
	for i < len(steps) && steps[i].Frame <= frame {
		i++
	}
	return steps[i:]
}
