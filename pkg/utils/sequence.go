package utils

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

//ErrMisaligned marks per-frame sequences that do not line up with the batch they belong to.
//It is a wiring bug, callers must not try to recover from it
var ErrMisaligned = errors.New("misaligned per-frame sequence")

//CheckAligned makes sure every named sequence length equals want
func CheckAligned(want int, lengths map[string]int) error {
	names := make([]string, 0, len(lengths))
	for name := range lengths {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if lengths[name] != want {
			return fmt.Errorf("%w: %s has %d frames, batch has %d", ErrMisaligned, name, lengths[name], want)
		}
	}

	return nil
}

//ParseTimestamp parses "HH:MM:SS", "MM:SS" or plain seconds ("90", "12.5") into seconds
func ParseTimestamp(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("ParseTimestamp: empty timestamp")
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("ParseTimestamp: too many fields in '%s'", s)
	}

	total := 0.0
	for _, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("ParseTimestamp: invalid field '%s' in '%s'", part, s)
		}
		total = total*60 + v
	}

	return total, nil
}

//FrameRange converts optional start/end timestamps into frame indices at fps.
//An empty start is frame 0, an empty end is -1 (no upper bound)
func FrameRange(start, end string, fps float64) (int, int, error) {
	first, last := 0, -1
	if start != "" {
		sec, err := ParseTimestamp(start)
		if err != nil {
			return 0, 0, err
		}
		first = int(sec * fps)
	}
	if end != "" {
		sec, err := ParseTimestamp(end)
		if err != nil {
			return 0, 0, err
		}
		last = int(sec * fps)
		if last < first {
			return 0, 0, fmt.Errorf("FrameRange: end '%s' is before start '%s'", end, start)
		}
	}
	return first, last, nil
}
