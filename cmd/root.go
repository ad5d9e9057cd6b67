package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/intersection-sim/intersection-sim/sim"
	"github.com/intersection-sim/intersection-sim/sim/trace"
	"github.com/intersection-sim/intersection-sim/sim/workload"
)

var (
	// run control
	seed              int64   // Seed for vehicle generation
	simulationHorizon float64 // Total simulated time (in seconds)
	logLevel          string  // Log verbosity level
	configPath        string  // Optional scenario YAML
	traceLevel        string  // Decision trace verbosity
	traceDB           string  // SQLite file to store the trace in
	printSummary      bool    // Print the trace summary after the metrics

	// engine
	timeStep        float64 // Simulation step (in seconds)
	lanesPerDir     int     // Lanes in each direction of each road
	laneWidth       float64 // Lane width (in metres)
	speedLimit      float64 // Lane speed limit (in m/s)
	granularity     float64 // Reservation tile side (in metres)
	batchStrategy   string  // Batch reordering strategy
	batchInterval   float64 // Seconds between batches
	deadlineMargin  float64 // Seconds a confirmation needs before arrival
	lookahead       float64 // Batch only arrivals within this horizon; 0 = all
	aczCapacity     float64 // Exit zone length (in metres); 0 = ungated
	aczDwell        float64 // Seconds a vehicle stays in the exit zone
	rejectBackoff   float64 // Seconds a rejected vehicle must wait
	maxFutureTime   float64 // Furthest accepted arrival, relative to now
	cleanUpInterval int     // Steps between grid cleanups

	// workload
	arrivalProcess    string  // poisson, constant or gamma
	arrivalCV         float64 // Coefficient of variation for gamma arrivals
	rate              float64 // Vehicles per second per incoming lane
	leadTime          float64 // Seconds between a first request and its arrival
	proposals         int     // Proposals per request
	cancelProbability float64 // Chance a confirmed vehicle cancels
	maxRetries        int     // Rejects before a vehicle gives up
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "intersection-sim",
	Short: "Reservation-based intersection manager simulator",
}

// runCmd executes the simulation using parameters from the scenario file and CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the intersection simulation",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Unknown trace level %q. Valid: none, decisions, zones", traceLevel)
		}

		sc, err := resolveScenario(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		var tr *trace.SimulationTrace
		if trace.TraceLevel(traceLevel) != trace.TraceLevelNone && traceLevel != "" {
			tr = trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevel(traceLevel)})
		} else if traceDB != "" {
			logrus.Warnf("--trace-db has no effect without --trace")
		}

		logrus.Infof("Starting simulation: seed=%d horizon=%.1fs strategy=%s rate=%.3f/lane/s",
			sc.seed, sc.horizon, sc.engine.Batch.Strategy, sc.workload.Rate)
		start := time.Now()

		s := sim.NewSimulator(sc.engine, sc.workload, sc.horizon, sim.NewSimulationKey(sc.seed), tr)
		s.Run()
		s.Metrics.Print()
		logrus.Infof("Wall time: %s", time.Since(start))

		if tr != nil {
			if printSummary {
				printTraceSummary(trace.Summarize(tr))
			}
			if traceDB != "" {
				if err := saveTrace(cmd.Context(), traceDB, tr); err != nil {
					logrus.Fatalf("%v", err)
				}
				logrus.Infof("Trace %s saved to %s", tr.RunID, traceDB)
			}
		}
		logrus.Info("Simulation complete.")
	},
}

// scenario is the fully resolved input of one run.
type scenario struct {
	seed     int64
	horizon  float64
	engine   sim.EngineConfig
	workload workload.Config
}

// resolveScenario layers defaults, the scenario file and explicitly set
// flags, in that order, and validates the result.
func resolveScenario(cmd *cobra.Command) (scenario, error) {
	sc := scenario{
		seed:     seed,
		horizon:  simulationHorizon,
		engine:   sim.DefaultEngineConfig(),
		workload: workload.DefaultConfig(),
	}
	if configPath != "" {
		b, err := sim.LoadScenarioBundle(configPath)
		if err != nil {
			return sc, err
		}
		if err := b.Validate(); err != nil {
			return sc, fmt.Errorf("invalid scenario config: %w", err)
		}
		b.ApplyTo(&sc.engine, &sc.workload)
		if b.Seed != nil && !cmd.Flags().Changed("seed") {
			sc.seed = *b.Seed
		}
		if b.Horizon != nil && !cmd.Flags().Changed("horizon") {
			sc.horizon = *b.Horizon
		}
	}

	changed := cmd.Flags().Changed
	overrides := []struct {
		flag  string
		apply func()
	}{
		{"time-step", func() { sc.engine.TimeStep = timeStep }},
		{"lanes-per-direction", func() { sc.engine.Layout.LanesPerDirection = lanesPerDir }},
		{"lane-width", func() { sc.engine.Layout.LaneWidth = laneWidth }},
		{"speed-limit", func() { sc.engine.Layout.SpeedLimit = speedLimit }},
		{"granularity", func() { sc.engine.Grid.Granularity = granularity }},
		{"batch-strategy", func() { sc.engine.Batch.Strategy = batchStrategy }},
		{"batch-interval", func() { sc.engine.Batch.Interval = batchInterval }},
		{"deadline-margin", func() { sc.engine.Batch.DeadlineMargin = deadlineMargin }},
		{"lookahead", func() { sc.engine.Batch.Lookahead = lookahead }},
		{"acz-capacity", func() { sc.engine.ACZ.Capacity = aczCapacity }},
		{"acz-dwell", func() { sc.engine.ACZ.Dwell = aczDwell }},
		{"reject-backoff", func() { sc.engine.Policy.RejectBackoff = rejectBackoff }},
		{"max-future-reservation-time", func() { sc.engine.Policy.MaxFutureReservationTime = maxFutureTime }},
		{"cleanup-interval", func() { sc.engine.Policy.CleanUpInterval = cleanUpInterval }},
		{"arrival-process", func() { sc.workload.Process = arrivalProcess }},
		{"arrival-cv", func() { sc.workload.CV = arrivalCV }},
		{"rate", func() { sc.workload.Rate = rate }},
		{"lead-time", func() { sc.workload.LeadTime = leadTime }},
		{"proposals", func() { sc.workload.ProposalsPerRequest = proposals }},
		{"cancel-probability", func() { sc.workload.CancelProbability = cancelProbability }},
		{"max-retries", func() { sc.workload.MaxRetries = maxRetries }},
	}
	for _, o := range overrides {
		if changed(o.flag) {
			o.apply()
		}
	}

	if sc.horizon <= 0 {
		return sc, fmt.Errorf("horizon must be > 0, got %v", sc.horizon)
	}
	if err := sc.engine.Validate(); err != nil {
		return sc, fmt.Errorf("invalid engine config: %w", err)
	}
	if err := sc.workload.Validate(); err != nil {
		return sc, fmt.Errorf("invalid workload config: %w", err)
	}
	return sc, nil
}

func saveTrace(ctx context.Context, path string, tr *trace.SimulationTrace) error {
	store, err := trace.OpenStore(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Save(ctx, tr)
}

func printTraceSummary(s *trace.TraceSummary) {
	fmt.Println("=== Trace Summary ===")
	fmt.Printf("Decisions            : %d\n", s.TotalDecisions)
	fmt.Printf("Confirmed            : %d\n", s.ConfirmedCount)
	fmt.Printf("Rejected             : %d\n", s.RejectedCount)
	reasons := make([]string, 0, len(s.RejectReasons))
	for r := range s.RejectReasons {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Printf("  %-26s: %d\n", r, s.RejectReasons[r])
	}
	fmt.Printf("Delay mean/std/max   : %.3f / %.3f / %.3f s\n", s.MeanDelay, s.StdDevDelay, s.MaxDelay)
	fmt.Printf("Peak Zone Usage      : %.1f%%\n", s.PeakZoneUsage*100)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	registerRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

// registerRunFlags binds the run flags to cmd, resetting every flag variable
// to its default.
func registerRunFlags(cmd *cobra.Command) {
	engine := sim.DefaultEngineConfig()
	wl := workload.DefaultConfig()

	cmd.Flags().Int64Var(&seed, "seed", 42, "Seed for vehicle generation")
	cmd.Flags().Float64Var(&simulationHorizon, "horizon", 300, "Total simulated time (in seconds)")
	cmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to a scenario YAML file")
	cmd.Flags().StringVar(&traceLevel, "trace", "none", "Decision trace level (none, decisions, zones)")
	cmd.Flags().StringVar(&traceDB, "trace-db", "", "SQLite file to save the trace to")
	cmd.Flags().BoolVar(&printSummary, "summary", true, "Print a trace summary when tracing")

	// Engine
	cmd.Flags().Float64Var(&timeStep, "time-step", engine.TimeStep, "Simulation step (in seconds)")
	cmd.Flags().IntVar(&lanesPerDir, "lanes-per-direction", engine.Layout.LanesPerDirection, "Lanes in each direction of each road")
	cmd.Flags().Float64Var(&laneWidth, "lane-width", engine.Layout.LaneWidth, "Lane width (in metres)")
	cmd.Flags().Float64Var(&speedLimit, "speed-limit", engine.Layout.SpeedLimit, "Lane speed limit (in m/s)")
	cmd.Flags().Float64Var(&granularity, "granularity", engine.Grid.Granularity, "Reservation tile side (in metres)")
	cmd.Flags().StringVar(&batchStrategy, "batch-strategy", engine.Batch.Strategy, "Batch reordering strategy (fcfs, lane-grouped)")
	cmd.Flags().Float64Var(&batchInterval, "batch-interval", engine.Batch.Interval, "Seconds between batches")
	cmd.Flags().Float64Var(&deadlineMargin, "deadline-margin", engine.Batch.DeadlineMargin, "Seconds a confirmation needs before arrival")
	cmd.Flags().Float64Var(&lookahead, "lookahead", engine.Batch.Lookahead, "Batch only arrivals within this many seconds; 0 = all")
	cmd.Flags().Float64Var(&aczCapacity, "acz-capacity", engine.ACZ.Capacity, "Exit zone length (in metres); 0 leaves exits ungated")
	cmd.Flags().Float64Var(&aczDwell, "acz-dwell", engine.ACZ.Dwell, "Seconds a vehicle stays in the exit zone")
	cmd.Flags().Float64Var(&rejectBackoff, "reject-backoff", engine.Policy.RejectBackoff, "Seconds a rejected vehicle must wait before asking again")
	cmd.Flags().Float64Var(&maxFutureTime, "max-future-reservation-time", engine.Policy.MaxFutureReservationTime, "Furthest accepted arrival (in seconds from now)")
	cmd.Flags().IntVar(&cleanUpInterval, "cleanup-interval", engine.Policy.CleanUpInterval, "Steps between grid cleanups; 0 disables")

	// Workload
	cmd.Flags().StringVar(&arrivalProcess, "arrival-process", wl.Process, "Arrival process (poisson, constant, gamma)")
	cmd.Flags().Float64Var(&arrivalCV, "arrival-cv", wl.CV, "Coefficient of variation for gamma arrivals")
	cmd.Flags().Float64Var(&rate, "rate", wl.Rate, "Vehicles per second per incoming lane")
	cmd.Flags().Float64Var(&leadTime, "lead-time", wl.LeadTime, "Seconds between a vehicle's first request and its arrival")
	cmd.Flags().IntVar(&proposals, "proposals", wl.ProposalsPerRequest, "Proposals per request")
	cmd.Flags().Float64Var(&cancelProbability, "cancel-probability", wl.CancelProbability, "Chance a confirmed vehicle cancels")
	cmd.Flags().IntVar(&maxRetries, "max-retries", wl.MaxRetries, "Rejects before a vehicle gives up")
}
