package video

import (
	"fmt"

	"github.com/chenBenjamin97/basketball-analyzer/pkg/utils"
	"gocv.io/x/gocv"
)

//FrameBatch holds decoded frames with global indices First, First+1, ...
//Close must be called once the batch is done with, it frees every Mat
type FrameBatch struct {
	First int
	Mats  []gocv.Mat
}

func (b *FrameBatch) Close() {
	if b == nil {
		return
	}
	for i := range b.Mats {
		b.Mats[i].Close()
	}
	b.Mats = nil
}

//BatchReader reads a video file frame batch by frame batch
type BatchReader struct {
	cap    *gocv.VideoCapture
	fps    float64
	width  int
	height int
	next   int
	last   int
}

//OpenReader opens path positioned at startTime. An empty endTime reads to the end of the file
func OpenReader(path, startTime, endTime string) (*BatchReader, error) {
	cap, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("OpenReader: Error opening '%s', got '%v'", path, err)
	}

	r := &BatchReader{
		cap:    cap,
		fps:    cap.Get(gocv.VideoCaptureFPS),
		width:  int(cap.Get(gocv.VideoCaptureFrameWidth)),
		height: int(cap.Get(gocv.VideoCaptureFrameHeight)),
		last:   -1,
	}
	if r.fps <= 0 {
		cap.Close()
		return nil, fmt.Errorf("OpenReader: '%s' reports no frame rate", path)
	}

	if r.next, r.last, err = utils.FrameRange(startTime, endTime, r.fps); err != nil {
		cap.Close()
		return nil, fmt.Errorf("OpenReader: %w", err)
	}
	if r.next > 0 {
		cap.Set(gocv.VideoCapturePosFrames, float64(r.next))
	}

	return r, nil
}

func (r *BatchReader) FPS() float64 { return r.fps }

func (r *BatchReader) Size() (int, int) { return r.width, r.height }

//Range returns the first frame index and the last one (-1 when unbounded)
func (r *BatchReader) Range() (int, int) { return r.next, r.last }

//Read decodes the n frames starting at first. Frames between the previous read and first are skipped,
//going back is not possible
func (r *BatchReader) Read(first, n int) (*FrameBatch, error) {
	if first < r.next {
		return nil, fmt.Errorf("BatchReader: asked for frame %d, next decodable frame is %d: %w", first, r.next, utils.ErrMisaligned)
	}
	if first > r.next {
		r.cap.Grab(first - r.next)
		r.next = first
	}

	batch := &FrameBatch{First: first, Mats: make([]gocv.Mat, 0, n)}
	for i := 0; i < n; i++ {
		mat := gocv.NewMat()
		if !r.cap.Read(&mat) || mat.Empty() {
			mat.Close()
			batch.Close()
			return nil, fmt.Errorf("BatchReader: video ended at frame %d, detections go up to %d", r.next, first+n-1)
		}
		batch.Mats = append(batch.Mats, mat)
		r.next++
	}
	return batch, nil
}

func (r *BatchReader) Close() error {
	return r.cap.Close()
}
