package main

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/swarm/config"
	"github.com/pthm-cable/swarm/sim"
	"github.com/pthm-cable/swarm/telemetry"
)

// FitnessEvaluator runs headless simulations and scores the mean frame time.
type FitnessEvaluator struct {
	params       *ParamVector
	configPath   string
	warmupFrames int
	frames       int
	seeds        []int64
	workers      int

	mu          sync.Mutex
	bestFitness float64
	last        evalResult
}

// evalResult summarizes one parameter vector across all seeds.
type evalResult struct {
	MeanTickUS float64
	StdTickUS  float64
	Contacts   int
	Particles  int
}

// NewFitnessEvaluator creates a new evaluator. Every run reloads the config
// from configPath so evaluations never share state.
func NewFitnessEvaluator(params *ParamVector, configPath string, warmupFrames, frames int, seeds []int64, workers int) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:       params,
		configPath:   configPath,
		warmupFrames: warmupFrames,
		frames:       max(frames, 1),
		seeds:        seeds,
		workers:      workers,
		bestFitness:  math.Inf(1),
	}
}

// Last returns the summary of the most recent evaluation.
func (fe *FitnessEvaluator) Last() evalResult {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.last
}

// Evaluate returns the mean frame time in microseconds for x (lower = better).
// Seeds run one after another; concurrent runs would share cores and skew
// the timings. A run that fails to start scores +Inf.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	ticks := make([]float64, 0, len(fe.seeds))
	var res evalResult
	for _, seed := range fe.seeds {
		r, err := fe.runSimulation(x, seed)
		if err != nil {
			fmt.Printf("run failed (seed %d): %v\n", seed, err)
			fe.record(evalResult{MeanTickUS: math.Inf(1)})
			return math.Inf(1)
		}
		ticks = append(ticks, r.avgTickUS)
		res.Contacts += r.contacts
		res.Particles += r.particles
	}

	res.MeanTickUS, res.StdTickUS = meanStd(ticks)
	res.Particles /= max(len(fe.seeds), 1)
	fe.record(res)
	return res.MeanTickUS
}

func (fe *FitnessEvaluator) record(res evalResult) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	fe.last = res
	if res.MeanTickUS < fe.bestFitness {
		fe.bestFitness = res.MeanTickUS
	}
}

// runResult holds the results from a single simulation run.
type runResult struct {
	avgTickUS float64
	contacts  int
	particles int
}

// runSimulation executes one headless run. The perf window holds exactly the
// measured frames, so warmup frames fall out of it.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) (runResult, error) {
	cfg, err := config.Load(fe.configPath)
	if err != nil {
		return runResult{}, err
	}
	fe.params.ApplyToConfig(cfg, x)

	perf := telemetry.NewPerfCollector(fe.frames)
	s, err := sim.New(cfg, sim.Options{Seed: seed, Workers: fe.workers, Perf: perf})
	if err != nil {
		return runResult{}, err
	}
	defer s.Close()

	var params sim.SimParam
	params.DeltaTime = cfg.Derived.DT32
	params.ViewportSize = s.Viewport()

	var res runResult
	total := fe.warmupFrames + fe.frames
	for i := 0; i < total; i++ {
		snap, err := s.Step(params.FrameInput())
		if err != nil {
			return runResult{}, fmt.Errorf("frame %d: %w", i, err)
		}
		params.Observe(snap)
		if i >= fe.warmupFrames {
			res.contacts += snap.Stats.Contacts
			res.particles = snap.Count
		}
	}

	res.avgTickUS = float64(perf.Stats().AvgTickDuration.Nanoseconds()) / 1e3
	return res, nil
}

// meanStd returns the mean and sample standard deviation; a single value has
// zero spread.
func meanStd(values []float64) (mean, std float64) {
	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	}
	return stat.MeanStdDev(values, nil)
}
