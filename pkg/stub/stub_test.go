package stub

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Name  string      `json:"name"`
	Count map[int]int `json:"count"`
}

func TestKeyIsStable(t *testing.T) {
	in := entry{Name: "a", Count: map[int]int{3: 1, 1: 2, 2: 3}}

	k1, err := Key("batch-0", in)
	require.NoError(t, err)
	k2, err := Key("batch-0", entry{Name: "a", Count: map[int]int{2: 3, 1: 2, 3: 1}})
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	k3, err := Key("batch-0", entry{Name: "b"})
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)

	k4, err := Key("batch-1", in)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k4)
}

func TestLoadMiss(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	var got entry
	ok, err := s.Load("nothing", &got)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveThenLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "stubs")
	s, err := New(dir)
	require.NoError(t, err)

	want := entry{Name: "ball", Count: map[int]int{1: 4}}
	require.NoError(t, s.Save("k", want))

	var got entry
	ok, err := s.Load("k", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 1, "temp files must not be left behind")
}

func TestSaveIsByteStable(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	v := entry{Name: "x", Count: map[int]int{5: 1, 2: 2, 9: 3}}
	require.NoError(t, s.Save("a", v))
	require.NoError(t, s.Save("b", v))

	a, err := os.ReadFile(s.path("a"))
	require.NoError(t, err)
	b, err := os.ReadFile(s.path("b"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestLoadCorruptEntry(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.path("bad"), []byte("{not json"), 0o644))

	var got entry
	_, err = s.Load("bad", &got)
	assert.Error(t, err)
}
