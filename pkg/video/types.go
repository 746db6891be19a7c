package video

import (
	"fmt"

	"github.com/chenBenjamin97/basketball-analyzer/pkg/court"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/kinematics"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/pipeline"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/possession"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/team"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/tracking"
)

//captionFrames is how long an event caption stays on screen
const captionFrames = 45

//FrameView is everything the renderer plots above a single frame
type FrameView struct {
	Frame      int
	Players    tracking.FrameObjects
	Ball       tracking.FrameObjects
	Teams      team.Assignment
	Possessor  int
	Court      court.Frame
	Kinematics kinematics.Frame
	Control    int
	Share      [2]float64
	Caption    string
}

//overlay keeps what outlives a batch on screen: the running control share and the last event caption
type overlay struct {
	control      [2]int
	caption      string
	captionUntil int
}

//views converts one batch result into per-frame views, advancing the overlay
func (o *overlay) views(res pipeline.Result) []FrameView {
	events := make(map[int]possession.Event, len(res.Events))
	for _, e := range res.Events {
		events[e.Frame] = e
	}

	out := make([]FrameView, res.Len())
	for i := range out {
		frame := res.FirstFrame + i
		if e, ok := events[frame]; ok {
			o.caption = caption(e)
			o.captionUntil = frame + captionFrames
		}
		if c := res.Control[i]; c == 0 || c == 1 {
			o.control[c]++
		}

		v := FrameView{
			Frame:      frame,
			Players:    res.Players[i],
			Ball:       res.Ball[i],
			Teams:      res.Teams[i],
			Possessor:  res.Possession[i],
			Court:      res.Court[i],
			Kinematics: res.Kinematics[i],
			Control:    res.Control[i],
		}
		if total := o.control[0] + o.control[1]; total > 0 {
			v.Share = [2]float64{float64(o.control[0]) / float64(total), float64(o.control[1]) / float64(total)}
		}
		if frame < o.captionUntil {
			v.Caption = o.caption
		}
		out[i] = v
	}
	return out
}

func caption(e possession.Event) string {
	switch e.Kind {
	case possession.Pass:
		return fmt.Sprintf("Pass %d -> %d", e.From, e.To)
	case possession.Interception:
		return fmt.Sprintf("Interception %d -> %d", e.From, e.To)
	}
	return string(e.Kind)
}
