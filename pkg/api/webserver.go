package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/chenBenjamin97/basketball-analyzer/pkg/config"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/kinematics"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/possession"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/store"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

//Analyzer tags an uploaded video from the source directory
type Analyzer interface {
	Tag(ctx context.Context, srcVideoName string) (string, error)
}

//Runs is the read side of the results store
type Runs interface {
	ListRuns(ctx context.Context) ([]store.Run, error)
	GetRun(ctx context.Context, id string) (store.Run, error)
	Events(ctx context.Context, runID string) ([]possession.Event, error)
	PlayerStats(ctx context.Context, runID string) ([]kinematics.Total, error)
	TeamControl(ctx context.Context, runID string) ([]store.TeamControl, error)
}

//Server holds what the handlers need. Analyses started by uploads live under ctx
type Server struct {
	ctx      context.Context
	cfg      config.Config
	runs     Runs
	analyzer Analyzer
	log      logrus.FieldLogger
	wg       sync.WaitGroup
}

func NewServer(ctx context.Context, cfg config.Config, runs Runs, analyzer Analyzer, log logrus.FieldLogger) *Server {
	return &Server{ctx: ctx, cfg: cfg, runs: runs, analyzer: analyzer, log: log}
}

//Wait blocks until every analysis started by an upload has returned
func (s *Server) Wait() {
	s.wg.Wait()
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		log.WithFields(logrus.Fields{
			"method":  ctx.Request.Method,
			"path":    ctx.Request.URL.Path,
			"status":  ctx.Writer.Status(),
			"latency": time.Since(start),
		}).Debug("api: Request")
	}
}

func (s *Server) SetRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))

	//serve html pages to client
	if staticPath := s.cfg.Frontend.StaticFilesPath; staticPath != "" {
		r.Static("/client", staticPath)
		r.StaticFile("/", path.Join(staticPath, "home_page/dist/index.html"))
	}

	apiRoutes := r.Group("/api")

	apiRoutes.GET("/ReadyVideosNames", func(ctx *gin.Context) {
		if names, err := utils.ListDir(s.cfg.Directory.Ready); err != nil {
			ctx.Status(http.StatusInternalServerError)
		} else {
			ctx.JSON(http.StatusOK, names)
		}
	})

	apiRoutes.GET("/UserUploadsVideosNames", func(ctx *gin.Context) {
		if names, err := utils.ListDir(s.cfg.Directory.Source); err != nil {
			ctx.Status(http.StatusInternalServerError)
		} else {
			ctx.JSON(http.StatusOK, names)
		}
	})

	apiRoutes.GET("/Play", s.play)
	apiRoutes.POST("/Upload", s.upload)

	runs := apiRoutes.Group("/runs")
	runs.GET("", func(ctx *gin.Context) {
		list, err := s.runs.ListRuns(ctx.Request.Context())
		if err != nil {
			s.log.Errorf("api/runs: Error, got '%v'", err)
			ctx.Status(http.StatusInternalServerError)
			return
		}
		ctx.JSON(http.StatusOK, list)
	})
	runs.GET("/:id", func(ctx *gin.Context) {
		if run, ok := s.findRun(ctx); ok {
			ctx.JSON(http.StatusOK, run)
		}
	})
	runs.GET("/:id/events", runResource(s, s.runs.Events))
	runs.GET("/:id/players", runResource(s, s.runs.PlayerStats))
	runs.GET("/:id/control", runResource(s, s.runs.TeamControl))

	return r
}

//findRun writes the error response itself and returns false when the run can not be served
func (s *Server) findRun(ctx *gin.Context) (store.Run, bool) {
	run, err := s.runs.GetRun(ctx.Request.Context(), ctx.Param("id"))
	if errors.Is(err, store.ErrRunNotFound) {
		ctx.Status(http.StatusNotFound)
		return run, false
	}
	if err != nil {
		s.log.Errorf("api/runs: Error, got '%v'", err)
		ctx.Status(http.StatusInternalServerError)
		return run, false
	}
	return run, true
}

func runResource[T any](s *Server, get func(ctx context.Context, runID string) ([]T, error)) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		run, ok := s.findRun(ctx)
		if !ok {
			return
		}

		rows, err := get(ctx.Request.Context(), run.ID)
		if err != nil {
			s.log.Errorf("api/runs: Error reading '%s' of run '%s', got '%v'", ctx.FullPath(), run.ID, err)
			ctx.Status(http.StatusInternalServerError)
			return
		}
		if rows == nil {
			rows = []T{}
		}
		ctx.JSON(http.StatusOK, rows)
	}
}

func (s *Server) play(ctx *gin.Context) {
	videoName := ctx.Query("name")
	if videoName == "" {
		ctx.Status(http.StatusNotAcceptable) //missing url parameter
		return
	}

	analyzed := ctx.Query("analyzed")
	if analyzed != "true" && analyzed != "false" {
		ctx.Status(http.StatusNotAcceptable) //missing url parameter
		return
	}

	dir := s.cfg.Directory.Source
	if analyzed == "true" {
		dir = s.cfg.Directory.Ready
	}
	videoPath := path.Join(dir, filepath.Base(videoName)+"."+s.cfg.Video.ProdFormat)

	if _, err := os.Stat(videoPath); err != nil {
		if os.IsNotExist(err) {
			ctx.Status(http.StatusNotFound)
		} else {
			ctx.Status(http.StatusInternalServerError)
		}
		return
	}

	ctx.Header("Content-Type", "video/mp4")
	http.ServeFile(ctx.Writer, ctx.Request, videoPath)
}

func (s *Server) upload(ctx *gin.Context) {
	fHeader, err := ctx.FormFile("video")
	if err != nil {
		ctx.Status(http.StatusBadRequest)
		return
	}
	name := filepath.Base(fHeader.Filename)

	if existNames, err := utils.ListDir(s.cfg.Directory.Source); err != nil {
		ctx.Status(http.StatusInternalServerError)
		return
	} else if utils.InSlice(name, existNames) {
		ctx.Status(http.StatusNotAcceptable)
		return
	}

	s.log.Infof("api/Upload: Received new file: name - '%s', size - %v Bytes", name, fHeader.Size)

	srcFilePath := path.Join(s.cfg.Directory.Source, name)
	if err := ctx.SaveUploadedFile(fHeader, srcFilePath); err != nil {
		s.log.Errorf("api/Upload: Could not write '%s' file, got '%v'", srcFilePath, err)
		ctx.Status(http.StatusInternalServerError)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if runID, err := s.analyzer.Tag(s.ctx, name); err != nil {
			s.log.WithField("run", runID).Errorf("api/Upload: Analyzing '%s' failed, got '%v'", name, err)
		}
	}()

	ctx.Status(http.StatusAccepted)
}
