//Package export writes analysis results for tools outside this program.
package export

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chenBenjamin97/basketball-analyzer/pkg/detect"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/pipeline"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/utils"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

//TacticalPlayer is one projected player in a TacticalFrame. X and Y are court meters
type TacticalPlayer struct {
	ID       int     `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Team     int     `json:"team"`
	Speed    float64 `json:"speed"`
	Distance float64 `json:"distance"`
}

//TacticalFrame is one line of the tactical stream
type TacticalFrame struct {
	Frame     int              `json:"frame"`
	Players   []TacticalPlayer `json:"players"`
	BallOwner int              `json:"ball_owner"`
	Control   int              `json:"control"`
}

//TacticalStreamer writes one JSON object per frame, players sorted by identity
type TacticalStreamer struct {
	w      *bufio.Writer
	closer io.Closer
}

//NewTacticalStreamer truncates path and streams into it
func NewTacticalStreamer(path string) (*TacticalStreamer, error) {
	if err := utils.EnsureDirs(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("NewTacticalStreamer: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("NewTacticalStreamer: %w", err)
	}
	return &TacticalStreamer{w: bufio.NewWriter(f), closer: f}, nil
}

func NewTacticalWriter(w io.Writer) *TacticalStreamer {
	return &TacticalStreamer{w: bufio.NewWriter(w)}
}

//Frames converts a batch result into stream lines
func Frames(res pipeline.Result) []TacticalFrame {
	out := make([]TacticalFrame, res.Len())
	for i := range out {
		f := TacticalFrame{
			Frame:     res.FirstFrame + i,
			Players:   []TacticalPlayer{},
			BallOwner: res.Possession[i],
			Control:   res.Control[i],
		}

		for _, id := range res.Positions[i].IDs() {
			p := res.Positions[i][id]
			team, ok := res.Teams[i].Get(id)
			if !ok {
				team = utils.NoTeam
			}
			k, _ := res.Kinematics[i].Get(id)

			f.Players = append(f.Players, TacticalPlayer{ID: id, X: p.X, Y: p.Y, Team: team, Speed: k.Speed, Distance: k.Distance})
		}
		out[i] = f
	}
	return out
}

//Consume writes every frame of a completed batch
func (s *TacticalStreamer) Consume(ctx context.Context, _ []detect.Frame, res pipeline.Result) error {
	for _, f := range Frames(res) {
		b, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("TacticalStreamer: %w", err)
		}
		if _, err := s.w.Write(append(b, '\n')); err != nil {
			return fmt.Errorf("TacticalStreamer: %w", err)
		}
	}
	return s.w.Flush()
}

func (s *TacticalStreamer) Close() error {
	if err := s.w.Flush(); err != nil {
		return err
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
