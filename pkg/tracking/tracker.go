package tracking

import (
	"sort"

	"github.com/chenBenjamin97/basketball-analyzer/pkg/detect"
	"github.com/sirupsen/logrus"
)

//Config holds the player association tunables
type Config struct {
	MinIoU            float64 `mapstructure:"min_iou" validate:"gte=0,lte=1"`
	MaxCenterDistance float64 `mapstructure:"max_center_distance" validate:"gte=0"`
	MaxMissed         int     `mapstructure:"max_missed" validate:"gte=0"`
	MinConfidence     float64 `mapstructure:"min_confidence" validate:"gte=0,lte=1"`
}

//DefaultConfig returns the values used for 1080p broadcast footage
func DefaultConfig() Config {
	return Config{
		MinIoU:            0.1,
		MaxCenterDistance: 80,
		MaxMissed:         15,
		MinConfidence:     0.5,
	}
}

//LiveTrack is a track still allowed to be extended
type LiveTrack struct {
	ID     int         `json:"id"`
	Box    detect.BBox `json:"box"`
	Missed int         `json:"missed"`
}

//PlayerState is carried from one batch to the next. NextID only grows, so a retired
//identity is never handed out again
type PlayerState struct {
	NextID int         `json:"next_id"`
	Live   []LiveTrack `json:"live"`
}

//PlayerTracker keeps player identities across frames with greedy overlap matching
type PlayerTracker struct {
	cfg Config
	log logrus.FieldLogger
}

func NewPlayerTracker(cfg Config, log logrus.FieldLogger) *PlayerTracker {
	return &PlayerTracker{cfg: cfg, log: log}
}

//candidate is a possible (track, detection) pairing
type candidate struct {
	track int //index into state.Live
	det   int //index into frame detections
	score float64
	conf  float64
	id    int
}

//Track assigns identities to the player detections of frames, which must be in increasing frame order
func (t *PlayerTracker) Track(state *PlayerState, frames []detect.Frame) []FrameObjects {
	if state.NextID < 1 {
		state.NextID = 1
	}

	out := make([]FrameObjects, len(frames))
	for i, f := range frames {
		out[i] = t.step(state, f.Index, f.Players)
	}

	return out
}

func (t *PlayerTracker) usable(frame int, dets []detect.Detection) []detect.Detection {
	res := make([]detect.Detection, 0, len(dets))
	for _, d := range dets {
		if !d.Box.Valid() {
			t.log.WithFields(logrus.Fields{"frame": frame, "box": d.Box}).Warn("PlayerTracker: Dropping malformed detection")
			continue
		}
		if d.Confidence < t.cfg.MinConfidence {
			continue
		}
		res = append(res, d)
	}
	return res
}

//score rates a pairing; positive overlaps always beat distance-only pairings.
//ok is false when the pair is not allowed at all
func (t *PlayerTracker) score(last, box detect.BBox) (float64, bool) {
	if iou := last.IoU(box); iou > 0 && iou >= t.cfg.MinIoU {
		return iou, true
	}
	if t.cfg.MaxCenterDistance <= 0 {
		return 0, false
	}
	dist := last.Center().Dist(box.Center())
	if dist > t.cfg.MaxCenterDistance {
		return 0, false
	}
	return -dist / t.cfg.MaxCenterDistance, true
}

func (t *PlayerTracker) step(state *PlayerState, frame int, raw []detect.Detection) FrameObjects {
	dets := t.usable(frame, raw)
	objects := make(FrameObjects, len(dets))

	cands := make([]candidate, 0, len(state.Live)*len(dets))
	for ti, tr := range state.Live {
		for di, d := range dets {
			if s, ok := t.score(tr.Box, d.Box); ok {
				cands = append(cands, candidate{track: ti, det: di, score: s, conf: d.Confidence, id: tr.ID})
			}
		}
	}

	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.conf != b.conf {
			return a.conf > b.conf
		}
		if a.id != b.id {
			return a.id < b.id
		}
		return a.det < b.det
	})

	trackUsed := make([]bool, len(state.Live))
	detUsed := make([]bool, len(dets))
	for _, c := range cands {
		if trackUsed[c.track] || detUsed[c.det] {
			continue
		}
		trackUsed[c.track] = true
		detUsed[c.det] = true

		d := dets[c.det]
		state.Live[c.track].Box = d.Box
		state.Live[c.track].Missed = 0
		objects[c.id] = Object{ID: c.id, Box: d.Box, Confidence: d.Confidence, Feature: d.Feature}
	}

	live := make([]LiveTrack, 0, len(state.Live)+len(dets))
	for ti, tr := range state.Live {
		if !trackUsed[ti] {
			tr.Missed++
			if tr.Missed > t.cfg.MaxMissed {
				t.log.WithFields(logrus.Fields{"frame": frame, "player": tr.ID}).Debug("PlayerTracker: Track lost, retiring identity")
				continue
			}
		}
		live = append(live, tr)
	}

	for di, d := range dets {
		if detUsed[di] {
			continue
		}
		id := state.NextID
		state.NextID++
		live = append(live, LiveTrack{ID: id, Box: d.Box})
		objects[id] = Object{ID: id, Box: d.Box, Confidence: d.Confidence, Feature: d.Feature}
	}

	state.Live = live
	return objects
}
