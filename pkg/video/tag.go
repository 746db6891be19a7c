package video

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path"
	"strings"

	"github.com/chenBenjamin97/basketball-analyzer/pkg/config"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/court"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/detect"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/export"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/pipeline"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/store"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/stub"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

//Analyzer runs whole videos through the pipeline and saves everything it produces:
//the tagged video, the tactical stream and the run's rows in the store
type Analyzer struct {
	cfg   config.Config
	store *store.Store
	stubs *stub.Store
	log   logrus.FieldLogger
}

//NewAnalyzer creates an Analyzer. st and stubs are optional
func NewAnalyzer(cfg config.Config, st *store.Store, stubs *stub.Store, log logrus.FieldLogger) *Analyzer {
	return &Analyzer{cfg: cfg, store: st, stubs: stubs, log: log}
}

//Tag analyzes a video from the source directory. The tagged video is saved in the ready directory
//under the same name with the production format's extension. srcVideoName should include file's extension
func (a *Analyzer) Tag(ctx context.Context, srcVideoName string) (string, error) {
	base := strings.TrimSuffix(srcVideoName, path.Ext(srcVideoName))
	return a.Analyze(ctx, config.Input{
		Video:  path.Join(a.cfg.Directory.Source, srcVideoName),
		Output: path.Join(a.cfg.Directory.Ready, base+"."+a.cfg.Video.ProdFormat),
	})
}

//Analyze runs one input and returns its run id. Detections come from in.Detections when set, otherwise
//from the detector process above in.Video. Frames of in.Video give the players' appearance and get tagged into in.Output
func (a *Analyzer) Analyze(ctx context.Context, in config.Input) (string, error) {
	source := in.Video
	if source == "" {
		source = in.Detections
	}
	if source == "" {
		return "", errors.New("Analyze: Error, neither a video nor a detections file was given")
	}

	var reader *BatchReader
	fps := a.cfg.Kinematics.FrameRate
	if in.Video != "" {
		var err error
		if reader, err = OpenReader(in.Video, a.cfg.Video.StartTime, a.cfg.Video.EndTime); err != nil {
			return "", err
		}
		defer reader.Close()
		fps = reader.FPS()
	}

	first, last, err := utils.FrameRange(a.cfg.Video.StartTime, a.cfg.Video.EndTime, fps)
	if err != nil {
		return "", fmt.Errorf("Analyze: %w", err)
	}

	runID := uuid.NewString()
	if a.store != nil {
		if runID, err = a.store.CreateRun(ctx, source); err != nil {
			return "", err
		}
	}
	log := a.log.WithFields(logrus.Fields{"run": runID, "source": source})

	out, err := a.run(ctx, log, runID, in, reader, first, last, fps)
	if ferr := a.finish(ctx, runID, out, err); ferr != nil {
		log.Errorf("Analyze: Error saving run's results, got '%v'", ferr)
	}
	if err != nil {
		return runID, err
	}

	log.WithField("frames", out.frames).Info("Analyze: Done")
	return runID, nil
}

//finalState is what a run leaves for the store after its last batch
type finalState struct {
	state  pipeline.State
	frames int
}

func (a *Analyzer) run(ctx context.Context, log logrus.FieldLogger, runID string, in config.Input, reader *BatchReader, first, last int, fps float64) (finalState, error) {
	var out finalState

	src, closeSrc, err := a.detections(ctx, log, in)
	if err != nil {
		return out, err
	}
	defer closeSrc()
	src = detect.Clip(src, first, last)

	tactical, err := export.NewTacticalStreamer(path.Join(a.cfg.Directory.Tactical, runID+".jsonl"))
	if err != nil {
		return out, err
	}
	defer tactical.Close()

	sinks := pipeline.Sinks{tactical, pipeline.SinkFunc(func(_ context.Context, _ []detect.Frame, res pipeline.Result) error {
		out.frames += res.Len()
		return nil
	})}
	if a.store != nil {
		sinks = append(sinks, eventSink{store: a.store, runID: runID})
	}

	var render *renderSink
	if reader != nil {
		withFrames := &appearanceSource{src: src, reader: reader}
		defer withFrames.release()
		src = withFrames

		if a.cfg.Video.Render && in.Output != "" {
			if render, err = newRenderSink(withFrames, path.Join(a.cfg.Directory.Temp, runID+".avi"), fps); err != nil {
				return out, err
			}
			render.renderer.MinKeypointConfidence = a.cfg.Court.MinConfidence
			defer os.Remove(render.path) //remove '.avi' temp file at the end of this function
			defer render.Close()
			sinks = append(sinks, render)
		}
	}

	cfg := a.cfg.Config
	cfg.Kinematics.FrameRate = fps
	p := pipeline.New(cfg, court.DefaultReference(), a.stubs, log)

	if out.state, err = p.Run(ctx, pipeline.NewState(), src, sinks); err != nil {
		return out, err
	}
	if err := tactical.Close(); err != nil {
		return out, err
	}

	if render != nil {
		if err := render.Close(); err != nil {
			return out, err
		}
		//Convert to from 'avi' to the production format. example:ffmpeg -i testBasketball.avi testBasketball.mp4
		cmd := exec.CommandContext(ctx, "ffmpeg", "-y", "-i", render.path, in.Output)
		if output, err := cmd.CombinedOutput(); err != nil {
			return out, fmt.Errorf("Analyze: Error from ffmpeg, got '%v': %s", err, output)
		}
	}

	return out, nil
}

//finish saves the totals of the run and marks it done, failed or canceled
func (a *Analyzer) finish(ctx context.Context, runID string, out finalState, runErr error) error {
	if a.store == nil {
		return nil
	}
	ctx = context.WithoutCancel(ctx)

	status := store.StatusDone
	switch {
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		status = store.StatusCanceled
	case runErr != nil:
		status = store.StatusFailed
	}

	if err := a.store.SavePlayerStats(ctx, runID, out.state.Kinematics.Totals()); err != nil {
		return err
	}
	if err := a.store.SaveTeamControl(ctx, runID, out.state.Control); err != nil {
		return err
	}
	return a.store.FinishRun(ctx, runID, out.frames, status)
}

//detections picks the detection source of in. The returned func releases it
func (a *Analyzer) detections(ctx context.Context, log logrus.FieldLogger, in config.Input) (detect.Source, func(), error) {
	batchSize := a.cfg.Video.BatchSize

	if in.Detections != "" {
		f, err := os.Open(in.Detections)
		if err != nil {
			return nil, nil, fmt.Errorf("Analyze: Error opening detections, got '%v'", err)
		}
		return detect.NewLineSource(f, batchSize), func() { f.Close() }, nil
	}

	key := ""
	if a.stubs != nil {
		var err error
		if key, err = detectionsKey(in.Video, a.cfg.Detector); err != nil {
			return nil, nil, err
		}

		var frames []detect.Frame
		ok, err := a.stubs.Load(key, &frames)
		if err != nil {
			log.Warnf("Analyze: Ignoring unreadable cached detections, got '%v'", err)
		} else if ok {
			log.WithField("frames", len(frames)).Info("Analyze: Using cached detections")
			return detect.NewSliceSource(frames, batchSize), func() {}, nil
		}
	}

	proc, err := StartDetector(ctx, a.cfg.Detector, in.Video, batchSize, log)
	if err != nil {
		return nil, nil, err
	}

	var src detect.Source = proc
	if key != "" {
		src = &recordSource{src: proc, stubs: a.stubs, key: key}
	}
	return src, func() { proc.Close() }, nil
}

//appearanceSource reads the video frames of every detection batch, fills the players' appearance
//from them and keeps them until the render sink takes them or the next batch is read
type appearanceSource struct {
	src     detect.Source
	reader  *BatchReader
	pending *FrameBatch
}

func (a *appearanceSource) Next(ctx context.Context) ([]detect.Frame, error) {
	a.release()

	frames, err := a.src.Next(ctx)
	if err != nil {
		return nil, err
	}

	batch, err := a.reader.Read(frames[0].Index, len(frames))
	if err != nil {
		return nil, err
	}

	out := make([]detect.Frame, len(frames))
	for i, f := range frames {
		f.Players = append([]detect.Detection(nil), f.Players...) //cached detections must not change
		FillAppearance(&batch.Mats[i], &f)
		out[i] = f
	}
	a.pending = batch

	return out, nil
}

//take hands the frames of the last batch over to the caller, who must close them
func (a *appearanceSource) take() *FrameBatch {
	b := a.pending
	a.pending = nil
	return b
}

func (a *appearanceSource) release() {
	a.pending.Close()
	a.pending = nil
}

//renderSink plots every completed batch on its frames and writes them to an XVID (== MPEG-4 codec) '.avi' file
type renderSink struct {
	frames   *appearanceSource
	writer   *gocv.VideoWriter
	path     string
	renderer Renderer
	overlay  overlay
}

func newRenderSink(frames *appearanceSource, tmpVideoPath string, fps float64) (*renderSink, error) {
	width, height := frames.reader.Size()
	writer, err := gocv.VideoWriterFile(tmpVideoPath, "XVID", fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("newRenderSink: Error, got '%v'", err)
	}
	return &renderSink{frames: frames, writer: writer, path: tmpVideoPath}, nil
}

func (s *renderSink) Consume(_ context.Context, _ []detect.Frame, res pipeline.Result) error {
	batch := s.frames.take()
	defer batch.Close()

	if batch == nil || batch.First != res.FirstFrame || len(batch.Mats) != res.Len() {
		return fmt.Errorf("renderSink: frames do not match batch at %d: %w", res.FirstFrame, utils.ErrMisaligned)
	}

	for i, view := range s.overlay.views(res) {
		s.renderer.Draw(&batch.Mats[i], view)
		if err := s.writer.Write(batch.Mats[i]); err != nil {
			return fmt.Errorf("renderSink: Error writing frame %d, got '%v'", view.Frame, err)
		}
	}
	return nil
}

//Close finishes the '.avi' file. Calling it again is a no-op
func (s *renderSink) Close() error {
	if s.writer == nil {
		return nil
	}
	err := s.writer.Close()
	s.writer = nil
	return err
}

//eventSink appends every batch's events to the run in the store
type eventSink struct {
	store *store.Store
	runID string
}

func (s eventSink) Consume(ctx context.Context, _ []detect.Frame, res pipeline.Result) error {
	return s.store.AppendEvents(ctx, s.runID, res.Events)
}
