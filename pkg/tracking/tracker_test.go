package tracking

import (
	"testing"

	"github.com/chenBenjamin97/basketball-analyzer/pkg/detect"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func box(x, y, w, h float64) detect.BBox {
	return detect.BBox{X1: x, Y1: y, X2: x + w, Y2: y + h}
}

func player(b detect.BBox, conf float64) detect.Detection {
	return detect.Detection{Box: b, Confidence: conf}
}

func newTestTracker(cfg Config) *PlayerTracker {
	log, _ := test.NewNullLogger()
	return NewPlayerTracker(cfg, log)
}

func TestPlayerTrackerKeepsIdentities(t *testing.T) {
	tr := newTestTracker(DefaultConfig())
	state := &PlayerState{}

	frames := make([]detect.Frame, 10)
	for i := range frames {
		dx := float64(i * 5)
		frames[i] = detect.Frame{Index: i, Players: []detect.Detection{
			player(box(300+dx, 100, 40, 100), 0.9),
			player(box(100+dx, 100, 40, 100), 0.8),
		}}
	}

	out := tr.Track(state, frames)
	require.Len(t, out, 10)
	for i, f := range out {
		assert.Equal(t, []int{1, 2}, f.IDs(), "frame %d", i)
		p1, ok := f.Get(1)
		require.True(t, ok)
		assert.InDelta(t, 300+float64(i*5), p1.Box.X1, 1e-9)
	}
	assert.Equal(t, 3, state.NextID)
}

func TestPlayerTrackerEveryDetectionHasOneLiveIdentity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxMissed = 1
	tr := newTestTracker(cfg)
	state := &PlayerState{}

	frames := []detect.Frame{
		{Index: 0, Players: []detect.Detection{player(box(0, 0, 20, 50), 0.9), player(box(200, 0, 20, 50), 0.9)}},
		{Index: 1, Players: []detect.Detection{player(box(2, 0, 20, 50), 0.9)}},
		{Index: 2},
		{Index: 3},
		{Index: 4, Players: []detect.Detection{player(box(200, 0, 20, 50), 0.9), player(box(400, 0, 20, 50), 0.95), player(box(4, 0, 20, 50), 0.2)}},
	}

	out := tr.Track(state, frames)

	created := map[int]int{}
	lastSeen := map[int]int{}
	for f, objs := range out {
		want := 0
		for _, d := range frames[f].Players {
			if d.Confidence >= cfg.MinConfidence {
				want++
			}
		}
		assert.Len(t, objs, want, "frame %d", f)

		for _, id := range objs.IDs() {
			if _, ok := created[id]; !ok {
				created[id] = f
			}
			if last, ok := lastSeen[id]; ok {
				assert.LessOrEqual(t, f-last-1, cfg.MaxMissed, "identity %d extended after retirement", id)
			}
			lastSeen[id] = f
			assert.Less(t, id, state.NextID)
		}
	}

	//the player at x=200 vanished for more than MaxMissed frames and came back with a new identity
	assert.NotContains(t, out[4].IDs(), 2)
	assert.Equal(t, []int{3, 4}, out[4].IDs())
}

func TestPlayerTrackerRetiresAfterMaxMissed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxMissed = 2
	tr := newTestTracker(cfg)

	seen := detect.Frame{Players: []detect.Detection{player(box(50, 50, 30, 80), 0.9)}}

	run := func(absent int) int {
		state := &PlayerState{}
		frames := []detect.Frame{seen}
		for i := 0; i < absent; i++ {
			frames = append(frames, detect.Frame{})
		}
		frames = append(frames, seen)
		for i := range frames {
			frames[i].Index = i
		}
		out := tr.Track(state, frames)
		return out[len(out)-1].IDs()[0]
	}

	assert.Equal(t, 1, run(2), "gap within tolerance keeps identity")
	assert.Equal(t, 2, run(3), "gap past tolerance mints a new identity")
}

func TestPlayerTrackerTieBreaks(t *testing.T) {
	tr := newTestTracker(DefaultConfig())
	state := &PlayerState{}

	out := tr.Track(state, []detect.Frame{
		{Index: 0, Players: []detect.Detection{player(box(0, 0, 10, 10), 0.9)}},
		//both detections overlap the track equally, the more confident one keeps identity 1
		{Index: 1, Players: []detect.Detection{player(box(2, 0, 10, 10), 0.6), player(box(-2, 0, 10, 10), 0.9)}},
	})

	p1, ok := out[1].Get(1)
	require.True(t, ok)
	assert.Equal(t, -2.0, p1.Box.X1)
	p2, ok := out[1].Get(2)
	require.True(t, ok)
	assert.Equal(t, 2.0, p2.Box.X1)

	//two identical tracks competing for one detection: lowest identity wins
	state = &PlayerState{}
	out = tr.Track(state, []detect.Frame{
		{Index: 0, Players: []detect.Detection{player(box(0, 0, 10, 10), 0.9), player(box(0, 0, 10, 10), 0.9)}},
		{Index: 1, Players: []detect.Detection{player(box(0, 0, 10, 10), 0.9)}},
	})
	assert.Equal(t, []int{1}, out[1].IDs())
}

func TestPlayerTrackerDistanceFallback(t *testing.T) {
	tr := newTestTracker(DefaultConfig())
	state := &PlayerState{}

	//a fast cut-in: no overlap but the center moved less than MaxCenterDistance
	out := tr.Track(state, []detect.Frame{
		{Index: 0, Players: []detect.Detection{player(box(0, 0, 20, 40), 0.9)}},
		{Index: 1, Players: []detect.Detection{player(box(50, 0, 20, 40), 0.9)}},
		{Index: 2, Players: []detect.Detection{player(box(500, 0, 20, 40), 0.9)}},
	})

	assert.Equal(t, []int{1}, out[1].IDs())
	assert.Equal(t, []int{2}, out[2].IDs())
}

func TestPlayerTrackerEmptyFramesAndMalformed(t *testing.T) {
	log, hook := test.NewNullLogger()
	tr := NewPlayerTracker(DefaultConfig(), log)
	state := &PlayerState{}

	out := tr.Track(state, []detect.Frame{
		{Index: 0, Players: []detect.Detection{player(box(0, 0, 10, 10), 0.9), player(detect.BBox{X1: 5, Y1: 5, X2: 5, Y2: 9}, 0.9)}},
		{Index: 1},
	})

	assert.Len(t, out[0], 1)
	assert.Empty(t, out[1])
	require.Len(t, state.Live, 1)
	assert.Equal(t, 1, state.Live[0].Missed)

	require.NotEmpty(t, hook.AllEntries())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestPlayerTrackerContinuesAcrossBatches(t *testing.T) {
	tr := newTestTracker(DefaultConfig())
	state := &PlayerState{}

	first := tr.Track(state, []detect.Frame{{Index: 0, Players: []detect.Detection{player(box(0, 0, 10, 10), 0.9)}}})
	second := tr.Track(state, []detect.Frame{{Index: 1, Players: []detect.Detection{
		player(box(1, 0, 10, 10), 0.9),
		player(box(300, 0, 10, 10), 0.9),
	}}})

	assert.Equal(t, []int{1}, first[0].IDs())
	assert.Equal(t, []int{1, 2}, second[0].IDs())
}
