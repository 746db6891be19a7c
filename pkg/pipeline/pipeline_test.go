package pipeline

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/chenBenjamin97/basketball-analyzer/pkg/court"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/detect"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/kinematics"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/possession"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/stub"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/team"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/tracking"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/utils"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	dark  = []float64{30, 30, 30}
	light = []float64{220, 220, 220}
)

//imageOf maps court meters to pixels of a straight overhead camera
func imageOf(p detect.Point) detect.Point {
	return detect.Point{X: p.X*20 + 50, Y: p.Y*20 + 50}
}

func box(x, y, w, h float64) detect.BBox {
	return detect.BBox{X1: x, Y1: y, X2: x + w, Y2: y + h}
}

//game builds n frames with two dark players (one running right, one standing) and a light
//one standing. The ball sits with the runner, then the runner's teammate from frame 15, then the
//light player from frame 30
func game(n int) []detect.Frame {
	ref := court.DefaultReference()
	kps := make([]detect.Keypoint, len(ref.Points))
	for i, p := range ref.Points {
		img := imageOf(p)
		kps[i] = detect.Keypoint{X: img.X, Y: img.Y, Confidence: 0.9}
	}

	frames := make([]detect.Frame, n)
	for i := range frames {
		runner := box(100+2*float64(i), 100, 40, 100)

		ballX := runner.X2 + 5
		switch {
		case i >= 30:
			ballX = 445
		case i >= 15:
			ballX = 295
		}

		frames[i] = detect.Frame{
			Index: i,
			Players: []detect.Detection{
				{Box: runner, Confidence: 0.9, Feature: dark},
				{Box: box(250, 100, 40, 100), Confidence: 0.9, Feature: dark},
				{Box: box(400, 100, 40, 100), Confidence: 0.9, Feature: light},
			},
			Ball:  []detect.Detection{{Box: box(ballX, 140, 10, 10), Confidence: 0.9}},
			Court: kps,
		}
	}
	return frames
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Refiner.MaxSpeed = 500
	return cfg
}

func newTestPipeline(stubs *stub.Store) *Pipeline {
	log, _ := test.NewNullLogger()
	return New(testConfig(), court.DefaultReference(), stubs, log)
}

//roundTrip tolerates what a JSON round trip may change
var roundTrip = []cmp.Option{cmpopts.EquateEmpty(), cmpopts.EquateApprox(0, 1e-12)}

type collector struct {
	results []Result
}

func (c *collector) Consume(_ context.Context, _ []detect.Frame, res Result) error {
	c.results = append(c.results, res)
	return nil
}

func (c *collector) events() []possession.Event {
	var out []possession.Event
	for _, r := range c.results {
		out = append(out, r.Events...)
	}
	return out
}

func (c *collector) possession() []int {
	var out []int
	for _, r := range c.results {
		out = append(out, r.Possession...)
	}
	return out
}

//idAt returns the identity whose box starts at x1 in the first frame
func idAt(t *testing.T, res Result, x1 float64) int {
	t.Helper()
	for id, o := range res.Players[0] {
		if o.Box.X1 == x1 {
			return id
		}
	}
	t.Fatalf("no player at x1=%v", x1)
	return 0
}

func runAll(t *testing.T, p *Pipeline, frames []detect.Frame, batchSize int) (*collector, State) {
	t.Helper()
	c := &collector{}
	state, err := p.Run(context.Background(), NewState(), detect.NewSliceSource(frames, batchSize), c)
	require.NoError(t, err)
	return c, state
}

func TestRunDetectsPassAndInterception(t *testing.T) {
	c, state := runAll(t, newTestPipeline(nil), game(40), 10)

	require.Len(t, c.results, 4)
	assert.Equal(t, 40, state.NextFrame)
	for i, r := range c.results {
		assert.Equal(t, i*10, r.FirstFrame)
		assert.NoError(t, r.Check(10))
	}

	first := c.results[0]
	runner, mate, opponent := idAt(t, first, 100), idAt(t, first, 250), idAt(t, first, 400)

	assert.Equal(t, []possession.Event{
		{Kind: possession.Pass, Frame: 19, From: runner, To: mate, FromTeam: utils.DarkTeamID, ToTeam: utils.DarkTeamID},
		{Kind: possession.Interception, Frame: 34, From: mate, To: opponent, FromTeam: utils.DarkTeamID, ToTeam: utils.LightTeamID},
	}, c.events())

	poss := c.possession()
	assert.Equal(t, utils.NoPlayer, poss[3])
	assert.Equal(t, runner, poss[4])
	assert.Equal(t, runner, poss[18])
	assert.Equal(t, mate, poss[19])
	assert.Equal(t, opponent, poss[39])

	share := state.Control.Share()
	assert.Greater(t, share[utils.DarkTeamID], share[utils.LightTeamID])
}

func TestRunProjectsAndMeasuresPlayers(t *testing.T) {
	c, state := runAll(t, newTestPipeline(nil), game(40), 10)

	first := c.results[0]
	runner, opponent := idAt(t, first, 100), idAt(t, first, 400)

	last := c.results[3]
	pos, ok := last.Positions[9].Get(opponent)
	require.True(t, ok)
	assert.InDelta(t, 18.5, pos.X, 1e-6)
	assert.InDelta(t, 7.5, pos.Y, 1e-6)
	assert.Equal(t, court.SourceFitted, last.Court[9].Source)

	//the runner covers 0.1 m per frame at 30 fps
	sample, ok := last.Kinematics[9].Get(runner)
	require.True(t, ok)
	assert.InDelta(t, 3.9, sample.Distance, 1e-6)
	assert.InDelta(t, 10.8, sample.Speed, 1e-6)

	still, ok := last.Kinematics[9].Get(opponent)
	require.True(t, ok)
	assert.InDelta(t, 0, still.Distance, 1e-9)

	assert.Len(t, state.Kinematics.Totals(), 3)
}

func TestRunIndependentOfBatchSize(t *testing.T) {
	frames := game(40)
	small, smallState := runAll(t, newTestPipeline(nil), frames, 7)
	whole, wholeState := runAll(t, newTestPipeline(nil), frames, 40)

	assert.Equal(t, whole.events(), small.events())
	assert.Equal(t, whole.possession(), small.possession())
	assert.True(t, cmp.Equal(wholeState.Kinematics.Totals(), smallState.Kinematics.Totals(), cmpopts.EquateApprox(0, 1e-9)))
}

func TestRunBatchRejectsGaps(t *testing.T) {
	p := newTestPipeline(nil)
	frames := game(10)

	gap := append(append([]detect.Frame{}, frames[:3]...), frames[4:]...)
	_, _, err := p.RunBatch(NewState(), gap)
	assert.ErrorIs(t, err, ErrMisaligned)

	_, state, err := p.RunBatch(NewState(), frames[:5])
	require.NoError(t, err)

	_, after, err := p.RunBatch(state, frames[6:])
	assert.ErrorIs(t, err, ErrMisaligned)
	assert.Equal(t, 5, after.NextFrame)
}

func TestRunBatchLeavesInputStateUntouched(t *testing.T) {
	p := newTestPipeline(nil)
	frames := game(20)

	_, state, err := p.RunBatch(NewState(), frames[:10])
	require.NoError(t, err)
	before, err := state.Clone()
	require.NoError(t, err)

	_, next, err := p.RunBatch(state, frames[10:])
	require.NoError(t, err)
	assert.Equal(t, 20, next.NextFrame)
	assert.True(t, cmp.Equal(before, state, roundTrip...))
}

func TestRunStopsOnCancel(t *testing.T) {
	p := newTestPipeline(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches := 0
	sink := SinkFunc(func(context.Context, []detect.Frame, Result) error {
		batches++
		cancel()
		return nil
	})

	state, err := p.Run(ctx, NewState(), detect.NewSliceSource(game(40), 10), sink)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, batches)
	assert.Equal(t, 10, state.NextFrame)
}

func TestRunKeepsStateOfCompletedBatchesOnSinkError(t *testing.T) {
	p := newTestPipeline(nil)
	boom := errors.New("disk full")

	calls := 0
	sink := SinkFunc(func(context.Context, []detect.Frame, Result) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	})

	state, err := p.Run(context.Background(), NewState(), detect.NewSliceSource(game(30), 10), sink)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 10, state.NextFrame)
}

func TestRunBatchUsesStubs(t *testing.T) {
	dir := t.TempDir()
	stubs, err := stub.New(dir)
	require.NoError(t, err)

	frames := game(10)
	fresh, freshState, err := newTestPipeline(stubs).RunBatch(NewState(), frames)
	require.NoError(t, err)

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 1)

	cached, cachedState, err := newTestPipeline(stubs).RunBatch(NewState(), frames)
	require.NoError(t, err)
	assert.True(t, cmp.Equal(fresh, cached, roundTrip...))
	assert.True(t, cmp.Equal(freshState, cachedState, roundTrip...))
}

func TestResultCheck(t *testing.T) {
	res := Result{
		FirstFrame: 10,
		Players:    make([]tracking.FrameObjects, 2),
		Ball:       make([]tracking.FrameObjects, 2),
		Court:      make([]court.Frame, 2),
		Positions:  make([]court.Positions, 2),
		Teams:      make([]team.Assignment, 2),
		Possession: make([]int, 2),
		Control:    make([]int, 2),
		Kinematics: make([]kinematics.Frame, 1),
	}
	assert.ErrorIs(t, res.Check(2), ErrMisaligned)

	res.Kinematics = append(res.Kinematics, kinematics.Frame{})
	assert.NoError(t, res.Check(2))

	res.Events = []possession.Event{{Kind: possession.Pass, Frame: 12}}
	assert.ErrorIs(t, res.Check(2), ErrMisaligned)
}

func TestSinksStopAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	var order []string
	record := func(name string, err error) Sink {
		return SinkFunc(func(context.Context, []detect.Frame, Result) error {
			order = append(order, name)
			return err
		})
	}

	err := Sinks{record("a", nil), record("b", boom), record("c", nil)}.Consume(context.Background(), nil, Result{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a", "b"}, order)
}
