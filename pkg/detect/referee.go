package detect

//minCorrespondingRatio is the overlap needed on both axes before two boxes are treated as the same person
const minCorrespondingRatio = 0.75

//correspondingBoxes returns true in case of overlap of more than minCorrespondingRatio on both axes of one of given boxes
func correspondingBoxes(b1, b2 BBox) bool {
	inter, ok := b1.Intersect(b2)
	if !ok {
		return false //given boxes do not overlap at all
	}

	covers := func(b BBox) bool {
		return inter.Width() >= minCorrespondingRatio*b.Width() && inter.Height() >= minCorrespondingRatio*b.Height()
	}

	return covers(b1) || covers(b2)
}

//RemoveReferees drops player detections matching a referee box of the same frame.
//The detector reports referees separately but the player model often fires on them too
func RemoveReferees(f Frame) Frame {
	if len(f.Referees) == 0 || len(f.Players) == 0 {
		return f
	}

	players := make([]Detection, 0, len(f.Players))
mainLoop:
	for _, p := range f.Players {
		for _, r := range f.Referees {
			if correspondingBoxes(p.Box, r.Box) {
				continue mainLoop
			}
		}
		players = append(players, p)
	}

	f.Players = players
	return f
}
