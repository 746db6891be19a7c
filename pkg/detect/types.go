//Package detect holds the per-frame detector output consumed by the pipeline.
package detect

import "math"

//Point is a 2D point, image pixels or court meters depending on context
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

//Dist returns the Euclidean distance between two points
func (p Point) Dist(o Point) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

//BBox is an axis-aligned bounding box in image pixels
type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

//Valid reports whether the box is finite and has a positive area
func (b BBox) Valid() bool {
	for _, v := range []float64{b.X1, b.Y1, b.X2, b.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.X2 > b.X1 && b.Y2 > b.Y1
}

func (b BBox) Width() float64  { return b.X2 - b.X1 }
func (b BBox) Height() float64 { return b.Y2 - b.Y1 }
func (b BBox) Area() float64   { return b.Width() * b.Height() }

//Size is the side of the square with the same area, used to compare ball sizes
func (b BBox) Size() float64 { return math.Sqrt(b.Area()) }

func (b BBox) Center() Point {
	return Point{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2}
}

//Foot is the bottom-center of the box, the on-court location proxy of a player
func (b BBox) Foot() Point {
	return Point{X: (b.X1 + b.X2) / 2, Y: b.Y2}
}

//Contains reports whether p lies inside the box (edges included)
func (b BBox) Contains(p Point) bool {
	return p.X >= b.X1 && p.X <= b.X2 && p.Y >= b.Y1 && p.Y <= b.Y2
}

//Intersect returns the overlapping box and false when the boxes do not overlap
func (b BBox) Intersect(o BBox) (BBox, bool) {
	r := BBox{
		X1: math.Max(b.X1, o.X1),
		Y1: math.Max(b.Y1, o.Y1),
		X2: math.Min(b.X2, o.X2),
		Y2: math.Min(b.Y2, o.Y2),
	}
	if r.X2 <= r.X1 || r.Y2 <= r.Y1 {
		return BBox{}, false
	}
	return r, true
}

//IoU returns intersection over union of two boxes
func (b BBox) IoU(o BBox) float64 {
	inter, ok := b.Intersect(o)
	if !ok {
		return 0
	}
	union := b.Area() + o.Area() - inter.Area()
	if union <= 0 {
		return 0
	}
	return inter.Area() / union
}

//IntersectionRatio returns which part of b's area lies inside o
func (b BBox) IntersectionRatio(o BBox) float64 {
	inter, ok := b.Intersect(o)
	if !ok || b.Area() <= 0 {
		return 0
	}
	return inter.Area() / b.Area()
}

//Lerp interpolates linearly between two boxes by center and size, t in [0,1]
func Lerp(a, b BBox, t float64) BBox {
	ca, cb := a.Center(), b.Center()
	cx := ca.X + (cb.X-ca.X)*t
	cy := ca.Y + (cb.Y-ca.Y)*t
	w := a.Width() + (b.Width()-a.Width())*t
	h := a.Height() + (b.Height()-a.Height())*t
	return BBox{X1: cx - w/2, Y1: cy - h/2, X2: cx + w/2, Y2: cy + h/2}
}

//Detection is one detector output box for one frame
type Detection struct {
	Box        BBox    `json:"box"`
	Confidence float64 `json:"conf"`
	Class      int     `json:"class"`
	//Feature is an optional appearance signature (mean torso color), filled by the video layer
	Feature []float64 `json:"feature,omitempty"`
}

//Keypoint is one court landmark slot. A slot the detector could not find has zero confidence
type Keypoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"conf"`
}

//Present reports whether the slot holds a usable point
func (k Keypoint) Present(minConfidence float64) bool {
	if k.Confidence <= 0 || k.Confidence < minConfidence {
		return false
	}
	return !math.IsNaN(k.X) && !math.IsNaN(k.Y) && !math.IsInf(k.X, 0) && !math.IsInf(k.Y, 0)
}

func (k Keypoint) Point() Point { return Point{X: k.X, Y: k.Y} }

//Frame is all detector output for a single video frame
type Frame struct {
	Index    int         `json:"frame"`
	Players  []Detection `json:"players,omitempty"`
	Ball     []Detection `json:"ball,omitempty"`
	Referees []Detection `json:"referees,omitempty"`
	Court    []Keypoint  `json:"court,omitempty"`
}
