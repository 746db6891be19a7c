package court

import (
	"runtime"
	"sort"

	"github.com/chenBenjamin97/basketball-analyzer/pkg/detect"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/tracking"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

//Config holds the court projection tunables
type Config struct {
	MinConfidence float64 `mapstructure:"min_confidence" validate:"gte=0,lte=1"`
	//Tolerance is the largest accepted relative deviation of a keypoint's distance ratios
	Tolerance     float64 `mapstructure:"tolerance" validate:"gt=0"`
	MinPoints     int     `mapstructure:"min_points" validate:"gte=4"`
	MaxHoldFrames int     `mapstructure:"max_hold_frames" validate:"gte=0"`
	//BoundsMargin is how far outside the lines (meters) a projected player may land before rejection
	BoundsMargin float64 `mapstructure:"bounds_margin" validate:"gte=0"`
	Workers      int     `mapstructure:"workers" validate:"gte=0"`
}

func DefaultConfig() Config {
	return Config{
		MinConfidence: 0.5,
		Tolerance:     0.8,
		MinPoints:     4,
		MaxHoldFrames: 60,
		BoundsMargin:  0.5,
	}
}

//Source tells where a frame's homography came from
type Source string

const (
	SourceFitted Source = "fitted"
	SourceHeld   Source = "held"
	SourceNone   Source = "none"
)

//Frame is the projection result of one frame
type Frame struct {
	Keypoints  []detect.Keypoint `json:"keypoints"`
	Homography *Homography       `json:"homography,omitempty"`
	Source     Source            `json:"source"`
}

//Positions maps player identity to court meters for one frame. Unprojected players are absent
type Positions map[int]detect.Point

func (p Positions) Get(id int) (detect.Point, bool) {
	pt, ok := p[id]
	return pt, ok
}

func (p Positions) IDs() []int {
	ids := make([]int, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

//State carries the last fitted homography into later frames and batches
type State struct {
	Last       *Homography `json:"last,omitempty"`
	HeldFrames int         `json:"held_frames"`
	Warned     bool        `json:"warned"`
}

type Projector struct {
	cfg Config
	ref Reference
	log logrus.FieldLogger
}

func NewProjector(cfg Config, ref Reference, log logrus.FieldLogger) *Projector {
	return &Projector{cfg: cfg, ref: ref, log: log}
}

type fit struct {
	keypoints []detect.Keypoint
	h         *Homography
}

//Project validates each frame's keypoints, fits its homography and maps the players' feet
//onto the court. players must be aligned with frames
func (p *Projector) Project(state *State, frames []detect.Frame, players []tracking.FrameObjects) ([]Frame, []Positions) {
	fits := p.fitAll(frames)

	out := make([]Frame, len(frames))
	positions := make([]Positions, len(frames))

	for i, f := range frames {
		res := Frame{Keypoints: fits[i].keypoints, Source: SourceNone}

		switch {
		case fits[i].h != nil:
			h := *fits[i].h
			state.Last = &h
			state.HeldFrames = 0
			state.Warned = false
			res.Homography, res.Source = fits[i].h, SourceFitted

		case state.Last != nil:
			state.HeldFrames++
			if p.cfg.MaxHoldFrames > 0 && state.HeldFrames > p.cfg.MaxHoldFrames {
				if !state.Warned {
					p.log.WithFields(logrus.Fields{"frame": f.Index, "held": state.HeldFrames}).Warn("Projector: Homography held for too long, players left unprojected")
					state.Warned = true
				}
				break
			}
			h := *state.Last
			res.Homography, res.Source = &h, SourceHeld
		}

		out[i] = res
		positions[i] = p.place(f.Index, res.Homography, players[i])
	}

	return out, positions
}

//fitAll runs validation and fitting for every frame in parallel, frames share no state here
func (p *Projector) fitAll(frames []detect.Frame) []fit {
	fits := make([]fit, len(frames))

	workers := p.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range frames {
		g.Go(func() error {
			fits[i] = p.fitFrame(frames[i])
			return nil
		})
	}
	_ = g.Wait() //workers never fail, a frame without a fit is handled by the caller

	return fits
}

func (p *Projector) fitFrame(f detect.Frame) fit {
	kps := Validate(f.Court, p.ref, p.cfg.MinConfidence, p.cfg.Tolerance)

	src := make([]detect.Point, 0, len(kps))
	dst := make([]detect.Point, 0, len(kps))
	for i, k := range kps {
		if k.Present(p.cfg.MinConfidence) {
			src = append(src, k.Point())
			dst = append(dst, p.ref.Points[i])
		}
	}

	res := fit{keypoints: kps}
	if len(src) < p.cfg.MinPoints {
		return res
	}

	h, err := Fit(src, dst)
	if err != nil {
		p.log.WithFields(logrus.Fields{"frame": f.Index, "points": len(src)}).Debugf("Projector: No homography, got '%v'", err)
		return res
	}

	res.h = &h
	return res
}

func (p *Projector) place(frame int, h *Homography, players tracking.FrameObjects) Positions {
	pos := make(Positions, len(players))
	if h == nil {
		return pos
	}

	for _, id := range players.IDs() {
		obj := players[id]
		pt, ok := h.Apply(obj.Box.Foot())
		if !ok || !p.ref.InBounds(pt, p.cfg.BoundsMargin) {
			p.log.WithFields(logrus.Fields{"frame": frame, "player": id}).Debug("Projector: Rejecting out of court position")
			continue
		}
		pos[id] = p.ref.Clamp(pt)
	}

	return pos
}
