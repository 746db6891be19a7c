package tracking

import (
	"math"
	"sort"

	"github.com/chenBenjamin97/basketball-analyzer/pkg/detect"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/utils"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

//RefinerConfig bounds what a plausible ball trajectory looks like
type RefinerConfig struct {
	//MaxSpeed is the largest center displacement allowed per elapsed frame, in pixels
	MaxSpeed float64 `mapstructure:"max_speed" validate:"gt=0"`
	//MaxSizeRatio rejects a box bigger or smaller than the running median by more than this factor
	MaxSizeRatio float64 `mapstructure:"max_size_ratio" validate:"gte=1"`
	SizeWindow   int     `mapstructure:"size_window" validate:"gte=1"`
	//MaxGap is the longest run of missing frames filled by interpolation
	MaxGap int `mapstructure:"max_gap" validate:"gte=0"`
	//ResetAfter frames without a valid ball the velocity bound is no longer applied
	ResetAfter int `mapstructure:"reset_after" validate:"gte=0"`
}

func DefaultRefinerConfig() RefinerConfig {
	return RefinerConfig{
		MaxSpeed:     25,
		MaxSizeRatio: 2.5,
		SizeWindow:   15,
		MaxGap:       20,
		ResetAfter:   60,
	}
}

//BallSample is a valid ball observation at a global frame index
type BallSample struct {
	Frame int         `json:"frame"`
	Box   detect.BBox `json:"box"`
}

//RefinerState carries the last valid ball and recent sizes into the next batch
type RefinerState struct {
	LastValid *BallSample `json:"last_valid,omitempty"`
	Sizes     []float64   `json:"sizes,omitempty"`
}

//minSizeSamples is how many sizes are needed before the median check is trusted
const minSizeSamples = 3

type Refiner struct {
	cfg RefinerConfig
	log logrus.FieldLogger
}

func NewRefiner(cfg RefinerConfig, log logrus.FieldLogger) *Refiner {
	return &Refiner{cfg: cfg, log: log}
}

//Refine removes outliers and then fills short gaps. firstFrame is the global index of ball[0]
func (r *Refiner) Refine(state *RefinerState, ball []FrameObjects, firstFrame int) []FrameObjects {
	var anchor *BallSample
	if state.LastValid != nil {
		a := *state.LastValid
		anchor = &a
	}

	cleaned := r.RemoveOutliers(state, ball, firstFrame)
	return interpolate(anchor, cleaned, firstFrame, r.cfg.MaxGap)
}

//RemoveOutliers drops ball boxes that moved too fast or changed size too sharply
func (r *Refiner) RemoveOutliers(state *RefinerState, ball []FrameObjects, firstFrame int) []FrameObjects {
	out := make([]FrameObjects, len(ball))

	for i, frame := range ball {
		out[i] = FrameObjects{}
		obj, ok := frame.Get(utils.BallID)
		if !ok {
			continue
		}
		idx := firstFrame + i

		if reason := r.implausible(state, idx, obj.Box); reason != "" {
			r.log.WithFields(logrus.Fields{"frame": idx, "reason": reason}).Debug("Refiner: Discarding ball detection")
			continue
		}

		out[i][utils.BallID] = obj
		state.LastValid = &BallSample{Frame: idx, Box: obj.Box}
		state.Sizes = append(state.Sizes, obj.Box.Size())
		if len(state.Sizes) > r.cfg.SizeWindow {
			state.Sizes = state.Sizes[len(state.Sizes)-r.cfg.SizeWindow:]
		}
	}

	return out
}

func (r *Refiner) implausible(state *RefinerState, frame int, box detect.BBox) string {
	if last := state.LastValid; last != nil {
		elapsed := frame - last.Frame
		if elapsed > 0 && (r.cfg.ResetAfter == 0 || elapsed <= r.cfg.ResetAfter) {
			if box.Center().Dist(last.Box.Center()) > r.cfg.MaxSpeed*float64(elapsed) {
				return "velocity"
			}
		}
	}

	if len(state.Sizes) >= minSizeSamples {
		median := medianOf(state.Sizes)
		size := box.Size()
		if median > 0 && math.Max(size/median, median/size) > r.cfg.MaxSizeRatio {
			return "size"
		}
	}

	return ""
}

func medianOf(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

//Interpolate fills gaps of at most maxGap frames between two ball observations.
//A track without such gaps is returned unchanged
func Interpolate(ball []FrameObjects, maxGap int) []FrameObjects {
	return interpolate(nil, ball, 0, maxGap)
}

//interpolate may start from anchor, the last valid ball of the previous batch, so a gap
//spanning the batch boundary is filled on this side of it
func interpolate(anchor *BallSample, ball []FrameObjects, firstFrame, maxGap int) []FrameObjects {
	out := make([]FrameObjects, len(ball))
	for i, f := range ball {
		out[i] = f.clone()
	}

	prev := anchor
	for i, f := range ball {
		obj, ok := f.Get(utils.BallID)
		if !ok {
			continue
		}
		idx := firstFrame + i

		if prev != nil {
			span := idx - prev.Frame
			if gap := span - 1; gap > 0 && gap <= maxGap {
				for k := prev.Frame + 1; k < idx; k++ {
					if k < firstFrame {
						continue
					}
					t := float64(k-prev.Frame) / float64(span)
					out[k-firstFrame][utils.BallID] = Object{
						ID:           utils.BallID,
						Box:          detect.Lerp(prev.Box, obj.Box, t),
						Interpolated: true,
					}
				}
			}
		}

		prev = &BallSample{Frame: idx, Box: obj.Box}
	}

	return out
}
