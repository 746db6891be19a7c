//Package court maps image positions onto the court plane.
//
//Court coordinates are meters with the origin at the top-left corner of the
//tactical view: x runs along the 28m sideline, y along the 15m baseline.
package court

import (
	"github.com/chenBenjamin97/basketball-analyzer/pkg/detect"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/utils"
)

//Reference is the known court layout. Points[i] is the court position of keypoint slot i
type Reference struct {
	Width  float64
	Height float64
	Points []detect.Point
}

//freeThrowDistance is the distance of the free throw line from the baseline
const freeThrowDistance = 5.79

//DefaultReference returns the FIBA layout with the 18 landmarks the court keypoint model emits
func DefaultReference() Reference {
	w, h := utils.CourtWidthMeters, utils.CourtHeightMeters
	return Reference{
		Width:  w,
		Height: h,
		Points: []detect.Point{
			//left baseline
			{X: 0, Y: 0},
			{X: 0, Y: 0.91},
			{X: 0, Y: 5.18},
			{X: 0, Y: 10},
			{X: 0, Y: 14.1},
			{X: 0, Y: h},
			//middle line
			{X: w / 2, Y: h},
			{X: w / 2, Y: 0},
			//left free throw line
			{X: freeThrowDistance, Y: 5.18},
			{X: freeThrowDistance, Y: 10},
			//right baseline
			{X: w, Y: h},
			{X: w, Y: 14.1},
			{X: w, Y: 10},
			{X: w, Y: 5.18},
			{X: w, Y: 0.91},
			{X: w, Y: 0},
			//right free throw line
			{X: w - freeThrowDistance, Y: 5.18},
			{X: w - freeThrowDistance, Y: 10},
		},
	}
}

//Corners returns the four court corners clockwise from the origin
func (r Reference) Corners() []detect.Point {
	return []detect.Point{{X: 0, Y: 0}, {X: r.Width, Y: 0}, {X: r.Width, Y: r.Height}, {X: 0, Y: r.Height}}
}

//InBounds reports whether p lies on the court, allowing margin meters outside the lines
func (r Reference) InBounds(p detect.Point, margin float64) bool {
	return p.X >= -margin && p.X <= r.Width+margin && p.Y >= -margin && p.Y <= r.Height+margin
}

//Clamp moves p onto the court
func (r Reference) Clamp(p detect.Point) detect.Point {
	return detect.Point{X: clamp(p.X, 0, r.Width), Y: clamp(p.Y, 0, r.Height)}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
