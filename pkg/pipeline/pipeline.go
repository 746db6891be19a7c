package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/chenBenjamin97/basketball-analyzer/pkg/court"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/detect"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/kinematics"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/possession"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/stub"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/team"
	"github.com/chenBenjamin97/basketball-analyzer/pkg/tracking"
	"github.com/sirupsen/logrus"
)

//Config gathers the tunables of every stage
type Config struct {
	Tracking   tracking.Config        `mapstructure:"tracking"`
	Ball       tracking.BallConfig    `mapstructure:"ball"`
	Refiner    tracking.RefinerConfig `mapstructure:"refiner"`
	Court      court.Config           `mapstructure:"court"`
	Team       team.Config            `mapstructure:"team"`
	Possession possession.Config      `mapstructure:"possession"`
	Kinematics kinematics.Config      `mapstructure:"kinematics"`
}

func DefaultConfig() Config {
	return Config{
		Tracking:   tracking.DefaultConfig(),
		Ball:       tracking.DefaultBallConfig(),
		Refiner:    tracking.DefaultRefinerConfig(),
		Court:      court.DefaultConfig(),
		Team:       team.DefaultConfig(),
		Possession: possession.DefaultConfig(),
		Kinematics: kinematics.DefaultConfig(),
	}
}

//Sink receives every completed batch in order
type Sink interface {
	Consume(ctx context.Context, frames []detect.Frame, res Result) error
}

type SinkFunc func(ctx context.Context, frames []detect.Frame, res Result) error

func (f SinkFunc) Consume(ctx context.Context, frames []detect.Frame, res Result) error {
	return f(ctx, frames, res)
}

//Sinks hands a batch to every sink in order and stops at the first error
type Sinks []Sink

func (s Sinks) Consume(ctx context.Context, frames []detect.Frame, res Result) error {
	for _, sink := range s {
		if err := sink.Consume(ctx, frames, res); err != nil {
			return err
		}
	}
	return nil
}

type Pipeline struct {
	players    *tracking.PlayerTracker
	ball       *tracking.BallTracker
	refiner    *tracking.Refiner
	projector  *court.Projector
	assigner   *team.Assigner
	possession *possession.Tracker
	kinematics *kinematics.Engine
	stubs      *stub.Store
	log        logrus.FieldLogger
}

//New builds the stages. stubs may be nil to always recompute
func New(cfg Config, ref court.Reference, stubs *stub.Store, log logrus.FieldLogger) *Pipeline {
	return &Pipeline{
		players:    tracking.NewPlayerTracker(cfg.Tracking, log.WithField("stage", "players")),
		ball:       tracking.NewBallTracker(cfg.Ball, log.WithField("stage", "ball")),
		refiner:    tracking.NewRefiner(cfg.Refiner, log.WithField("stage", "refiner")),
		projector:  court.NewProjector(cfg.Court, ref, log.WithField("stage", "court")),
		assigner:   team.NewAssigner(cfg.Team, log.WithField("stage", "team")),
		possession: possession.NewTracker(cfg.Possession, log.WithField("stage", "possession")),
		kinematics: kinematics.NewEngine(cfg.Kinematics, log.WithField("stage", "kinematics")),
		stubs:      stubs,
		log:        log,
	}
}

type cached struct {
	Result Result `json:"result"`
	State  State  `json:"state"`
}

//RunBatch runs every stage over frames. state is left untouched, the returned state is
//the one to hand to the next batch
func (p *Pipeline) RunBatch(state State, frames []detect.Frame) (Result, State, error) {
	if len(frames) == 0 {
		return Result{FirstFrame: state.NextFrame}, state, nil
	}
	if err := checkContiguous(state, frames); err != nil {
		return Result{}, state, err
	}

	var key string
	if p.stubs != nil {
		var err error
		key, err = stub.Key(fmt.Sprintf("batch-%d", frames[0].Index), struct {
			State  State          `json:"state"`
			Frames []detect.Frame `json:"frames"`
		}{state, frames})
		if err != nil {
			return Result{}, state, fmt.Errorf("RunBatch: %w", err)
		}

		var hit cached
		ok, err := p.stubs.Load(key, &hit)
		if err != nil {
			p.log.WithField("key", key).Warnf("RunBatch: Error reading stub, got '%v'", err)
		}
		if ok {
			p.log.WithField("key", key).Debug("RunBatch: Using stub")
			return hit.Result, hit.State, nil
		}
	}

	next, err := state.Clone()
	if err != nil {
		return Result{}, state, fmt.Errorf("RunBatch: %w", err)
	}

	res := p.run(&next, frames)
	if err := res.Check(len(frames)); err != nil {
		return Result{}, state, fmt.Errorf("RunBatch: %w", err)
	}

	if p.stubs != nil {
		if err := p.stubs.Save(key, cached{Result: res, State: next}); err != nil {
			p.log.WithField("key", key).Warnf("RunBatch: Error saving stub, got '%v'", err)
		}
	}

	return res, next, nil
}

func checkContiguous(state State, frames []detect.Frame) error {
	first := frames[0].Index
	if state.Started && first != state.NextFrame {
		return fmt.Errorf("%w: batch starts at frame %d, expected %d", ErrMisaligned, first, state.NextFrame)
	}
	for i, f := range frames {
		if f.Index != first+i {
			return fmt.Errorf("%w: frame %d at batch position %d, expected %d", ErrMisaligned, f.Index, i, first+i)
		}
	}
	return nil
}

//run executes the stages in order, each one only reading what earlier ones produced
func (p *Pipeline) run(state *State, raw []detect.Frame) Result {
	first := raw[0].Index

	frames := make([]detect.Frame, len(raw))
	for i, f := range raw {
		frames[i] = detect.RemoveReferees(f)
	}

	res := Result{FirstFrame: first}
	res.Players = p.players.Track(&state.Players, frames)
	res.Ball = p.refiner.Refine(&state.Refiner, p.ball.Track(&state.Ball, frames), first)
	res.Court, res.Positions = p.projector.Project(&state.Court, frames, res.Players)
	res.Teams = p.assigner.Assign(&state.Teams, res.Players)
	res.Possession = p.possession.Track(&state.Possession, res.Players, res.Ball)
	res.Events = possession.Detect(&state.Events, res.Possession, res.Teams, first)
	res.Control = possession.Control(&state.Control, res.Possession, res.Teams)
	res.Kinematics = p.kinematics.Compute(&state.Kinematics, res.Positions, first)

	state.Started = true
	state.NextFrame = first + len(frames)

	return res
}

//Run pulls batches from src until it is exhausted or ctx is cancelled. The returned state
//covers exactly the batches that completed, sink included
func (p *Pipeline) Run(ctx context.Context, state State, src detect.Source, sink Sink) (State, error) {
	for batch := 0; ; batch++ {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		frames, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return state, nil
		}
		if err != nil {
			return state, fmt.Errorf("Run: reading batch %d: %w", batch, err)
		}

		res, next, err := p.RunBatch(state, frames)
		if err != nil {
			return state, err
		}

		if sink != nil {
			if err := sink.Consume(ctx, frames, res); err != nil {
				return state, fmt.Errorf("Run: batch %d: %w", batch, err)
			}
		}

		p.log.WithFields(logrus.Fields{"batch": batch, "first": res.FirstFrame, "frames": len(frames), "events": len(res.Events)}).Info("Run: Batch done")
		state = next
	}
}
