package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/chenBenjamin97/basketball-analyzer/pkg/api"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/config"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/logging"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/store"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/stub"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/utils"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/video"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

//flagKeys maps every command line flag to the configuration key it overrides
var flagKeys = map[string]string{
	"file":       "input.video",
	"detections": "input.detections",
	"output":     "input.output",
	"start-time": "video.start_time",
	"end-time":   "video.end_time",
	"stub-path":  "directory.stubs",
	"log-file":   "log.file",
	"verbose":    "log.verbose",
	"serve":      "http.serve",
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		logrus.Fatalf("Error: %v", err)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("basketball-analyzer", pflag.ExitOnError)
	configFile := flags.String("config", "", "configuration file (default ./config.yaml)")
	flags.String("file", "", "video to analyze")
	flags.String("detections", "", "JSON-lines detections file, used instead of running the detector")
	flags.String("output", "", "where to write the tagged video")
	flags.String("start-time", "", "start analyzing at HH:MM:SS, MM:SS or seconds")
	flags.String("end-time", "", "stop analyzing at HH:MM:SS, MM:SS or seconds")
	flags.String("stub-path", "", "directory of cached stage results")
	flags.String("log-file", "", "also write logs to this rotated file")
	flags.Bool("verbose", false, "debug logging")
	flags.Bool("serve", false, "serve the web interface instead of analyzing a single input")
	if err := flags.Parse(args); err != nil {
		return err
	}

	v := viper.New()
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return err
		}
	}

	cfg, err := config.Load(v, *configFile)
	if err != nil {
		return err
	}

	log, logCloser, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	//create missing directories from configuration
	if err := utils.EnsureDirs(cfg.Directory.Root, cfg.Directory.Source, cfg.Directory.Ready, cfg.Directory.Stubs,
		cfg.Directory.Temp, cfg.Directory.Tactical, filepath.Dir(cfg.Store.Path)); err != nil {
		log.Errorf("Error: %v", err)
		return err
	}

	st, err := store.Open(cfg.Store.Path, log)
	if err != nil {
		log.Errorf("Error: Could not open the store, got '%v'", err)
		return err
	}
	defer st.Close()

	var stubs *stub.Store
	if cfg.Directory.Stubs != "" {
		if stubs, err = stub.New(cfg.Directory.Stubs); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	analyzer := video.NewAnalyzer(cfg, st, stubs, log)

	if cfg.HTTP.Serve {
		return serve(ctx, cfg, st, analyzer, log)
	}

	runID, err := analyzer.Analyze(ctx, cfg.Input)
	if err != nil {
		log.WithField("run", runID).Errorf("Error: Analysis failed, got '%v'", err)
		return err
	}
	log.WithField("run", runID).Info("Analysis finished")
	return nil
}

func serve(ctx context.Context, cfg config.Config, st *store.Store, analyzer *video.Analyzer, log logrus.FieldLogger) error {
	server := api.NewServer(ctx, cfg, st, analyzer, log)
	srv := &http.Server{Addr: ":" + cfg.HTTP.Port, Handler: server.SetRouter()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("Error: Shutting down http server, got '%v'", err)
		}
	}()

	log.Infof("Listening on :%s", cfg.HTTP.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	//wait for analyses started by uploads, they stop on the same signal
	server.Wait()
	return nil
}
