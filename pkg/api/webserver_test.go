package api

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/chenBenjamin97/basketball-analyzer/pkg/config"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/kinematics"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/possession"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/store"
	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAnalyzer struct {
	mu     sync.Mutex
	tagged []string
}

func (f *fakeAnalyzer) Tag(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tagged = append(f.tagged, name)
	return "run-" + name, nil
}

type fixture struct {
	cfg      config.Config
	store    *store.Store
	analyzer *fakeAnalyzer
	server   *Server
	router   *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()

	cfg := config.Default()
	cfg.Directory.Source = filepath.Join(root, "source")
	cfg.Directory.Ready = filepath.Join(root, "ready")
	require.NoError(t, os.MkdirAll(cfg.Directory.Source, 0755))
	require.NoError(t, os.MkdirAll(cfg.Directory.Ready, 0755))

	log, _ := test.NewNullLogger()
	st, err := store.Open(filepath.Join(root, "runs.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	f := &fixture{cfg: cfg, store: st, analyzer: &fakeAnalyzer{}}
	f.server = NewServer(context.Background(), cfg, st, f.analyzer, log)
	f.router = f.server.SetRouter()
	return f
}

func (f *fixture) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func uploadRequest(t *testing.T, name string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("video", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/Upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestVideosNames(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.cfg.Directory.Ready, "b.mp4"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(f.cfg.Directory.Ready, "a.mp4"), nil, 0644))

	w := f.get(t, "/api/ReadyVideosNames")
	require.Equal(t, http.StatusOK, w.Code)
	var names []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &names))
	assert.Equal(t, []string{"a.mp4", "b.mp4"}, names)

	w = f.get(t, "/api/UserUploadsVideosNames")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestPlay(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.cfg.Directory.Ready, "game.mp4"), []byte("tagged"), 0644))

	cases := []struct {
		target string
		status int
	}{
		{"/api/Play?name=game&analyzed=true", http.StatusOK},
		{"/api/Play?name=game&analyzed=false", http.StatusNotFound},
		{"/api/Play?name=game", http.StatusNotAcceptable},
		{"/api/Play?analyzed=true", http.StatusNotAcceptable},
	}
	for _, c := range cases {
		w := f.get(t, c.target)
		assert.Equal(t, c.status, w.Code, c.target)
	}

	w := f.get(t, "/api/Play?name=game&analyzed=true")
	assert.Equal(t, "tagged", w.Body.String())
	assert.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
}

func TestUploadStartsAnalysis(t *testing.T) {
	f := newFixture(t)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, uploadRequest(t, "game.mp4", []byte("video bytes")))
	require.Equal(t, http.StatusAccepted, w.Code)
	f.server.Wait()

	saved, err := os.ReadFile(filepath.Join(f.cfg.Directory.Source, "game.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "video bytes", string(saved))
	assert.Equal(t, []string{"game.mp4"}, f.analyzer.tagged)

	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, uploadRequest(t, "game.mp4", []byte("again")))
	assert.Equal(t, http.StatusNotAcceptable, w.Code)
	f.server.Wait()
	assert.Len(t, f.analyzer.tagged, 1)
}

func TestUploadWithoutFile(t *testing.T) {
	f := newFixture(t)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/Upload", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunsEndpoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.store.CreateRun(ctx, "game.mp4")
	require.NoError(t, err)
	events := []possession.Event{{Kind: possession.Pass, Frame: 19, From: 1, To: 2, FromTeam: 0, ToTeam: 0}}
	require.NoError(t, f.store.AppendEvents(ctx, id, events))
	totals := []kinematics.Total{{Player: 1, Distance: 3.9, MaxSpeed: 10.8, Frames: 40}}
	require.NoError(t, f.store.SavePlayerStats(ctx, id, totals))
	require.NoError(t, f.store.SaveTeamControl(ctx, id, possession.ControlState{Team: 0, Frames: [2]int{30, 10}}))
	require.NoError(t, f.store.FinishRun(ctx, id, 40, store.StatusDone))

	w := f.get(t, "/api/runs")
	require.Equal(t, http.StatusOK, w.Code)
	var runs []store.Run
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
	assert.Equal(t, store.StatusDone, runs[0].Status)

	w = f.get(t, "/api/runs/"+id+"/events")
	require.Equal(t, http.StatusOK, w.Code)
	var gotEvents []possession.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &gotEvents))
	assert.Equal(t, events, gotEvents)

	w = f.get(t, "/api/runs/"+id+"/players")
	require.Equal(t, http.StatusOK, w.Code)
	var gotTotals []kinematics.Total
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &gotTotals))
	assert.Equal(t, totals, gotTotals)

	w = f.get(t, "/api/runs/"+id+"/control")
	require.Equal(t, http.StatusOK, w.Code)
	var control []store.TeamControl
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &control))
	require.Len(t, control, 2)
	assert.InDelta(t, 0.75, control[0].Share, 1e-9)
	assert.InDelta(t, 0.25, control[1].Share, 1e-9)
}

func TestRunsEndpointsUnknownRun(t *testing.T) {
	f := newFixture(t)
	for _, target := range []string{"/api/runs/nope", "/api/runs/nope/events", "/api/runs/nope/players", "/api/runs/nope/control"} {
		assert.Equal(t, http.StatusNotFound, f.get(t, target).Code, target)
	}
}

func TestRunWithoutRowsReturnsEmptyList(t *testing.T) {
	f := newFixture(t)
	id, err := f.store.CreateRun(context.Background(), "game.mp4")
	require.NoError(t, err)

	w := f.get(t, "/api/runs/"+id+"/events")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}
