package tracking

import (
	"github.com/chenBenjamin97/basketball-analyzer/pkg/detect"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/utils"
	"github.com/sirupsen/logrus"
)

//BallConfig holds the ball detection filter
type BallConfig struct {
	MinConfidence float64 `mapstructure:"min_confidence" validate:"gte=0,lte=1"`
}

func DefaultBallConfig() BallConfig {
	return BallConfig{MinConfidence: 0.3}
}

//BallState is the last ball box seen, kept while the ball is occluded
type BallState struct {
	Last   *detect.BBox `json:"last,omitempty"`
	Missed int          `json:"missed"`
}

//BallTracker is the single-object variant of the player tracker. The ball keeps
//utils.BallID for the whole game and is never retired
type BallTracker struct {
	cfg BallConfig
	log logrus.FieldLogger
}

func NewBallTracker(cfg BallConfig, log logrus.FieldLogger) *BallTracker {
	return &BallTracker{cfg: cfg, log: log}
}

//Track keeps at most one ball per frame, frames with no usable detection stay empty
func (t *BallTracker) Track(state *BallState, frames []detect.Frame) []FrameObjects {
	out := make([]FrameObjects, len(frames))

	for i, f := range frames {
		out[i] = FrameObjects{}

		best, ok := t.pick(state, f)
		if !ok {
			state.Missed++
			continue
		}

		box := best.Box
		state.Last = &box
		state.Missed = 0
		out[i][utils.BallID] = Object{ID: utils.BallID, Box: best.Box, Confidence: best.Confidence}
	}

	return out
}

//pick prefers the detection overlapping the last known ball most, then the most confident one
func (t *BallTracker) pick(state *BallState, f detect.Frame) (detect.Detection, bool) {
	var best detect.Detection
	bestIoU, found := -1.0, false

	for _, d := range f.Ball {
		if !d.Box.Valid() {
			t.log.WithFields(logrus.Fields{"frame": f.Index, "box": d.Box}).Warn("BallTracker: Dropping malformed detection")
			continue
		}
		if d.Confidence < t.cfg.MinConfidence {
			continue
		}

		iou := 0.0
		if state.Last != nil {
			iou = state.Last.IoU(d.Box)
		}

		if !found || iou > bestIoU || (iou == bestIoU && d.Confidence > best.Confidence) {
			best, bestIoU, found = d, iou, true
		}
	}

	return best, found
}
