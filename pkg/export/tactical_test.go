package export

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/chenBenjamin97/basketball-analyzer/pkg/court"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/detect"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/kinematics"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/pipeline"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/team"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/tracking"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result() pipeline.Result {
	return pipeline.Result{
		FirstFrame: 30,
		Players:    make([]tracking.FrameObjects, 2),
		Ball:       make([]tracking.FrameObjects, 2),
		Court:      make([]court.Frame, 2),
		Positions: []court.Positions{
			{7: {X: 3, Y: 4}, 2: {X: 10, Y: 5}},
			{},
		},
		Teams: []team.Assignment{
			{7: utils.LightTeamID},
			{7: utils.LightTeamID},
		},
		Possession: []int{7, utils.NoPlayer},
		Control:    []int{utils.LightTeamID, utils.LightTeamID},
		Kinematics: []kinematics.Frame{
			{7: {Distance: 12, Speed: 9.5}},
			{},
		},
	}
}

func TestFrames(t *testing.T) {
	got := Frames(result())

	assert.Equal(t, []TacticalFrame{
		{
			Frame: 30,
			Players: []TacticalPlayer{
				{ID: 2, X: 10, Y: 5, Team: utils.NoTeam},
				{ID: 7, X: 3, Y: 4, Team: utils.LightTeamID, Speed: 9.5, Distance: 12},
			},
			BallOwner: 7,
			Control:   utils.LightTeamID,
		},
		{Frame: 31, Players: []TacticalPlayer{}, BallOwner: utils.NoPlayer, Control: utils.LightTeamID},
	}, got)
}

func TestTacticalWriterLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewTacticalWriter(&buf)
	require.NoError(t, s.Consume(context.Background(), []detect.Frame{}, result()))
	require.NoError(t, s.Close())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"frame":31,"players":[],"ball_owner":-1,"control":1}`, string(lines[1]))
}

func TestTacticalStreamerTruncatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "tactical.jsonl")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("stale\n"), 0o644))

	s, err := NewTacticalStreamer(path)
	require.NoError(t, err)
	require.NoError(t, s.Consume(context.Background(), nil, result()))
	require.NoError(t, s.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		assert.NotEqual(t, "stale", sc.Text())
		n++
	}
	assert.Equal(t, 2, n)
}
