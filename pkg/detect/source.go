package detect

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

//Source hands out contiguous batches of detected frames. Next returns io.EOF once exhausted
type Source interface {
	Next(ctx context.Context) ([]Frame, error)
}

//SliceSource serves frames already held in memory (cached detections, tests)
type SliceSource struct {
	frames    []Frame
	batchSize int
	pos       int
}

//NewSliceSource splits frames into batches of batchSize
func NewSliceSource(frames []Frame, batchSize int) *SliceSource {
	if batchSize <= 0 {
		batchSize = len(frames)
	}
	return &SliceSource{frames: frames, batchSize: batchSize}
}

func (s *SliceSource) Next(ctx context.Context) ([]Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.frames) {
		return nil, io.EOF
	}

	end := s.pos + s.batchSize
	if end > len(s.frames) {
		end = len(s.frames)
	}
	batch := s.frames[s.pos:end]
	s.pos = end

	return batch, nil
}

//LineSource parses detector output written as one JSON object per frame.
//Lines that are not JSON objects (progress prints of the detector) are skipped
type LineSource struct {
	scanner   *bufio.Scanner
	batchSize int
	line      int
}

//NewLineSource reads frames from r, batchSize frames at a time
func NewLineSource(r io.Reader, batchSize int) *LineSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if batchSize <= 0 {
		batchSize = 1
	}
	return &LineSource{scanner: scanner, batchSize: batchSize}
}

func (s *LineSource) Next(ctx context.Context) ([]Frame, error) {
	batch := make([]Frame, 0, s.batchSize)

	for len(batch) < s.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, fmt.Errorf("LineSource: read error at line %d, got '%v'", s.line, err)
			}
			break
		}
		s.line++

		text := bytes.TrimSpace(s.scanner.Bytes())
		if len(text) == 0 || text[0] != '{' { //log print of the detector, skip it
			continue
		}

		var f Frame
		if err := json.Unmarshal(text, &f); err != nil {
			return nil, fmt.Errorf("LineSource: invalid frame at line %d, got '%v'", s.line, err)
		}
		batch = append(batch, f)
	}

	if len(batch) == 0 {
		return nil, io.EOF
	}

	return batch, nil
}

//WriteLines encodes frames in the format LineSource reads
func WriteLines(w io.Writer, frames []Frame) error {
	for _, f := range frames {
		b, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("WriteLines: frame %d, got '%v'", f.Index, err)
		}
		if _, err := w.Write(append(b, '\n')); err != nil {
			return err
		}
	}
	return nil
}
