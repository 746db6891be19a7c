//Package tracking assigns persistent identities to detected players and the ball
//and cleans up the ball trajectory.
package tracking

import (
	"sort"

	"github.com/chenBenjamin97/basketball-analyzer/pkg/detect"
)

//Object is one tracked box in one frame
type Object struct {
	ID           int         `json:"id"`
	Box          detect.BBox `json:"box"`
	Confidence   float64     `json:"conf"`
	Feature      []float64   `json:"feature,omitempty"`
	Interpolated bool        `json:"interpolated,omitempty"`
}

//FrameObjects maps identity to the object observed in one frame.
//Only identities observed (or interpolated) in that frame are keys
type FrameObjects map[int]Object

//Get returns the object for id and false when it was not observed this frame
func (f FrameObjects) Get(id int) (Object, bool) {
	o, ok := f[id]
	return o, ok
}

//IDs returns the identities of the frame in increasing order
func (f FrameObjects) IDs() []int {
	ids := make([]int, 0, len(f))
	for id := range f {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (f FrameObjects) clone() FrameObjects {
	out := make(FrameObjects, len(f))
	for id, o := range f {
		out[id] = o
	}
	return out
}
