package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/chenBenjamin97/basketball-analyzer/pkg/config"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/detect"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/stub"
	"github.com/sirupsen/logrus"
)

//DetectorProcess runs the external detector above a video and reads its standard output:
//one JSON frame per line, any other line is a log print of the detector and gets skipped.
//Its standard error goes to our log at debug level
type DetectorProcess struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.WriteCloser
	lines  *detect.LineSource
	done   bool
}

//StartDetector starts cfg.Command with videoPath appended as its last argument
func StartDetector(ctx context.Context, cfg config.Detector, videoPath string, batchSize int, log logrus.FieldLogger) (*DetectorProcess, error) {
	if len(cfg.Command) == 0 {
		return nil, errors.New("StartDetector: Error, no detector command configured")
	}

	args := append(append([]string{}, cfg.Command[1:]...), videoPath)
	cmd := exec.CommandContext(ctx, cfg.Command[0], args...)
	cmd.Dir = cfg.Workdir

	stderr := log.WithField("component", "detector").WriterLevel(logrus.DebugLevel)
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stderr.Close()
		return nil, fmt.Errorf("StartDetector: Error, got '%v'", err)
	}

	if err := cmd.Start(); err != nil {
		stderr.Close()
		return nil, fmt.Errorf("StartDetector: Error, got '%v'", err)
	}

	return &DetectorProcess{
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
		lines:  detect.NewLineSource(stdout, batchSize),
	}, nil
}

func (d *DetectorProcess) Next(ctx context.Context) ([]detect.Frame, error) {
	frames, err := d.lines.Next(ctx)
	if errors.Is(err, io.EOF) && !d.done {
		if werr := d.wait(); werr != nil {
			return nil, werr
		}
	}
	return frames, err
}

func (d *DetectorProcess) wait() error {
	d.done = true
	defer d.stderr.Close()

	if err := d.cmd.Wait(); err != nil {
		return fmt.Errorf("DetectorProcess: Error waiting detector's process, got '%v'", err)
	}
	return nil
}

//Close stops the detector if it is still running
func (d *DetectorProcess) Close() error {
	if d.done {
		return nil
	}
	if d.cmd.Process != nil {
		d.cmd.Process.Kill()
	}
	d.wait()
	return nil
}

//recordSource passes batches through and saves all of them to the stub store once src is exhausted
type recordSource struct {
	src    detect.Source
	stubs  *stub.Store
	key    string
	frames []detect.Frame
}

func (r *recordSource) Next(ctx context.Context) ([]detect.Frame, error) {
	frames, err := r.src.Next(ctx)
	if errors.Is(err, io.EOF) {
		if serr := r.stubs.Save(r.key, r.frames); serr != nil {
			return nil, serr
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	r.frames = append(r.frames, frames...)
	return frames, nil
}

//detectionsKey identifies a detector run by the video file and the command
func detectionsKey(videoPath string, cfg config.Detector) (string, error) {
	info, err := os.Stat(videoPath)
	if err != nil {
		return "", fmt.Errorf("detectionsKey: %w", err)
	}
	return stub.Key("detections", struct {
		Path    string
		Size    int64
		ModTime int64
		Command []string
	}{videoPath, info.Size(), info.ModTime().UnixNano(), cfg.Command})
}
