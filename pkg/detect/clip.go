package detect

import (
	"context"
	"io"
)

//ClipSource keeps only frames with first <= Index <= last. A negative last means no upper bound
type ClipSource struct {
	src   Source
	first int
	last  int
	done  bool
}

func Clip(src Source, first, last int) *ClipSource {
	return &ClipSource{src: src, first: first, last: last}
}

func (c *ClipSource) Next(ctx context.Context) ([]Frame, error) {
	for !c.done {
		frames, err := c.src.Next(ctx)
		if err != nil {
			return nil, err
		}

		kept := make([]Frame, 0, len(frames))
		for _, f := range frames {
			if c.last >= 0 && f.Index > c.last {
				c.done = true
				break
			}
			if f.Index >= c.first {
				kept = append(kept, f)
			}
		}

		if len(kept) > 0 {
			return kept, nil
		}
	}
	return nil, io.EOF
}
