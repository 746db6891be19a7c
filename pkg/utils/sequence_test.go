package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAligned(t *testing.T) {
	require.NoError(t, CheckAligned(3, map[string]int{"players": 3, "ball": 3}))

	err := CheckAligned(3, map[string]int{"players": 3, "ball": 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMisaligned)
	assert.Contains(t, err.Error(), "ball")
}

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		err  bool
	}{
		{"90", 90, false},
		{"1:30", 90, false},
		{"01:02:03", 3723, false},
		{"12.5", 12.5, false},
		{"", 0, true},
		{"a:10", 0, true},
		{"1:2:3:4", 0, true},
		{"-5", 0, true},
	}

	for _, c := range cases {
		got, err := ParseTimestamp(c.in)
		if c.err {
			assert.Error(t, err, c.in)
			continue
		}
		require.NoError(t, err, c.in)
		assert.InDelta(t, c.want, got, 1e-9, c.in)
	}
}

func TestFrameRange(t *testing.T) {
	first, last, err := FrameRange("", "", 30)
	require.NoError(t, err)
	assert.Equal(t, 0, first)
	assert.Equal(t, -1, last)

	first, last, err = FrameRange("0:02", "3.5", 30)
	require.NoError(t, err)
	assert.Equal(t, 60, first)
	assert.Equal(t, 105, last)

	_, _, err = FrameRange("10", "5", 30)
	assert.Error(t, err)
	_, _, err = FrameRange("x", "", 30)
	assert.Error(t, err)
}
