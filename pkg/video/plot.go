package video

import (
	"fmt"
	"image"
	"image/color"

	"github.com/chenBenjamin97/basketball-analyzer/pkg/detect"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/utils"
	"gocv.io/x/gocv"
)

var lightUniformTeamColor = color.RGBA{0, 255, 0, 0}
var darkUniformTeamColor = color.RGBA{255, 0, 0, 0}
var unknownTeamColor = color.RGBA{128, 128, 128, 0}
var ballColor = color.RGBA{0, 165, 255, 0}
var keypointColor = color.RGBA{255, 0, 255, 0}
var whiteRGB = color.RGBA{255, 255, 255, 0}

//Renderer plots a FrameView above its video frame
type Renderer struct {
	//MinKeypointConfidence hides court keypoints the detector was unsure about
	MinKeypointConfidence float64
}

func teamColor(teamID int) color.RGBA {
	switch teamID {
	case utils.DarkTeamID:
		return darkUniformTeamColor
	case utils.LightTeamID:
		return lightUniformTeamColor
	}
	return unknownTeamColor
}

func pixelRect(b detect.BBox) image.Rectangle {
	return image.Rect(int(b.X1), int(b.Y1), int(b.X2), int(b.Y2))
}

//Draw plots every layer of view on frame
func (r Renderer) Draw(frame *gocv.Mat, view FrameView) {
	for _, kp := range view.Court.Keypoints {
		if kp.Present(r.MinKeypointConfidence) {
			gocv.Circle(frame, image.Pt(int(kp.X), int(kp.Y)), 5, keypointColor, -1)
		}
	}

	for _, id := range view.Players.IDs() {
		obj := view.Players[id]
		teamID, ok := view.Teams.Get(id)
		if !ok {
			teamID = utils.NoTeam
		}

		secondLine := ""
		if k, ok := view.Kinematics.Get(id); ok {
			secondLine = fmt.Sprintf("%.1f | %.1fm", k.Speed, k.Distance)
		}
		plotPersonOnFrame(frame, pixelRect(obj.Box), id, secondLine, teamColor(teamID))

		if id == view.Possessor {
			plotPossessor(frame, pixelRect(obj.Box))
		}
	}

	for _, obj := range view.Ball {
		gocv.Rectangle(frame, pixelRect(obj.Box), ballColor, 2)
	}

	plotControlBar(frame, view.Share)

	if view.Caption != "" {
		gocv.PutText(frame, view.Caption, image.Pt(20, 40), gocv.FontHersheyPlain, 2, whiteRGB, 2)
	}
}

//plotPersonOnFrame plots given bounding box and writes above it the ID and given second line
func plotPersonOnFrame(frame *gocv.Mat, boundingBoxRect image.Rectangle, id int, secondLine string, plotColor color.RGBA) {
	gocv.Rectangle(frame, boundingBoxRect, plotColor, 3)

	textToPutFirstLine := fmt.Sprintf("ID: %d", id)
	startPointFirstLine := image.Pt(boundingBoxRect.Min.X, boundingBoxRect.Min.Y-20)
	startPointSecondLine := image.Pt(boundingBoxRect.Min.X, boundingBoxRect.Min.Y-5)

	textWidth := gocv.GetTextSize(textToPutFirstLine, gocv.FontHersheyPlain, 1, 2).X
	if w := gocv.GetTextSize(secondLine, gocv.FontHersheyPlain, 1, 2).X; w > textWidth {
		textWidth = w
	}
	textBackgroundRect := image.Rect(startPointFirstLine.X, startPointFirstLine.Y-15, startPointFirstLine.X+textWidth+10, startPointFirstLine.Y+20)

	gocv.Rectangle(frame, textBackgroundRect, plotColor, -1) //thickness -1 == filled rectangle
	gocv.PutText(frame, textToPutFirstLine, startPointFirstLine, gocv.FontHersheyPlain, 1, whiteRGB, 2)
	if secondLine != "" {
		gocv.PutText(frame, secondLine, startPointSecondLine, gocv.FontHersheyPlain, 1, whiteRGB, 2)
	}
}

//plotPossessor marks the ball holder with an ellipse under the feet
func plotPossessor(frame *gocv.Mat, box image.Rectangle) {
	center := image.Pt((box.Min.X+box.Max.X)/2, box.Max.Y)
	axes := image.Pt(box.Dx()/2+5, box.Dx()/6+3)
	gocv.Ellipse(frame, center, axes, 0, 0, 360, ballColor, 3)
}

//plotControlBar draws the running ball control share of both teams in the bottom right corner
func plotControlBar(frame *gocv.Mat, share [2]float64) {
	if share[0]+share[1] == 0 {
		return
	}

	const barWidth, barHeight = 300, 24
	origin := image.Pt(frame.Cols()-barWidth-20, frame.Rows()-barHeight-20)
	split := origin.X + int(share[0]*barWidth)

	gocv.Rectangle(frame, image.Rect(origin.X, origin.Y, split, origin.Y+barHeight), darkUniformTeamColor, -1)
	gocv.Rectangle(frame, image.Rect(split, origin.Y, origin.X+barWidth, origin.Y+barHeight), lightUniformTeamColor, -1)

	text := fmt.Sprintf("%.0f%% - %.0f%%", share[0]*100, share[1]*100)
	gocv.PutText(frame, text, image.Pt(origin.X+5, origin.Y+barHeight-6), gocv.FontHersheyPlain, 1.2, whiteRGB, 2)
}
