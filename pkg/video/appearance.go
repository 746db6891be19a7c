package video

import (
	"image"

	"github.com/chenBenjamin97/basketball-analyzer/pkg/detect"
	"gocv.io/x/gocv"
)

//FillAppearance sets the Feature of every player detection to the mean B,G,R of its torso.
//The torso is the middle third of the box, trying to catch the uniform only
func FillAppearance(frame *gocv.Mat, f *detect.Frame) {
	width, height := frame.Cols(), frame.Rows()

	for i := range f.Players {
		box := clampBox(f.Players[i].Box, width, height)
		boxWidth, boxHeight := box.Dx(), box.Dy()
		roiRect := image.Rect(box.Min.X+boxWidth/3, box.Min.Y+boxHeight/3, box.Max.X-boxWidth/3, box.Max.Y-boxHeight/3)
		if roiRect.Empty() {
			f.Players[i].Feature = nil
			continue
		}

		roi := frame.Region(roiRect)
		avg := roi.Mean()
		roi.Close()

		f.Players[i].Feature = []float64{avg.Val1, avg.Val2, avg.Val3}
	}
}

//clampBox converts a detector box to pixels and fixes values out of frame's range
func clampBox(b detect.BBox, frameWidth, frameHeight int) image.Rectangle {
	r := image.Rect(int(b.X1), int(b.Y1), int(b.X2), int(b.Y2))
	return r.Intersect(image.Rect(0, 0, frameWidth, frameHeight))
}
