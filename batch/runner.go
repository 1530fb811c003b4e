package batch

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/calvey/bankgrid/config"
	"github.com/calvey/bankgrid/metrics"
	"github.com/calvey/bankgrid/sim"
)

// retrySeedOffset perturbs the seed when a failed trial is retried.
const retrySeedOffset = 0x9e3779b9

// Runner executes a full sweep. Trials share no mutable state; the only
// cross-trial coordination is the slot-indexed result collection.
type Runner struct {
	cfg *config.Config

	// Progress, if set, is invoked after every finished trial with the
	// completed and total trial counts. Called from worker goroutines.
	Progress func(done, total int)
}

// NewRunner creates a runner for the given configuration.
func NewRunner(cfg *config.Config) *Runner {
	return &Runner{cfg: cfg}
}

// FailedTrial records a trial that produced no rows after its retry.
// Failures stay visible in the result instead of being silently dropped.
type FailedTrial struct {
	UID   int64
	Label string
	Err   error
}

// Result is the aggregated outcome of a batch run.
type Result struct {
	Rows      []metrics.Row
	AgentRows []metrics.AgentRow
	Failed    []FailedTrial

	Combinations int
	Trials       int
	Elapsed      time.Duration
}

// trialOutput holds one trial's rows, slot-indexed so aggregation order
// is deterministic regardless of worker scheduling.
type trialOutput struct {
	rows   []metrics.Row
	agents []metrics.AgentRow
	failed *FailedTrial
}

// Run validates the configuration, executes every (combination, trial)
// pair and aggregates the rows. A validation failure aborts before any
// simulation work starts.
func (r *Runner) Run() (*Result, error) {
	if err := r.cfg.Validate(); err != nil {
		return nil, err
	}

	baseSeed := r.cfg.Run.Seed
	if baseSeed == 0 {
		baseSeed = time.Now().UnixNano()
	}

	combos := Enumerate(r.cfg)
	iters := r.cfg.Run.Iterations
	total := len(combos) * iters

	workers := r.cfg.Run.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > total {
		workers = total
	}

	slog.Info("batch starting",
		"combinations", len(combos),
		"iterations", iters,
		"steps", r.cfg.Run.Steps,
		"workers", workers,
		"seed", baseSeed,
	)

	start := time.Now()
	outputs := make([]trialOutput, total)
	var done atomic.Int64

	runJob := func(job int) {
		// The uid derives from the job index, not an allocation order, so
		// the uid and seed of every trial are independent of worker
		// scheduling and a fixed batch seed reproduces parallel runs.
		comb := combos[job/iters]
		outputs[job] = r.runTrialWithRetry(comb, int64(job)+1, baseSeed)
		if r.Progress != nil {
			r.Progress(int(done.Add(1)), total)
		}
	}

	if workers <= 1 {
		for job := 0; job < total; job++ {
			runJob(job)
		}
	} else {
		jobs := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for job := range jobs {
					runJob(job)
				}
			}()
		}
		for job := 0; job < total; job++ {
			jobs <- job
		}
		close(jobs)
		wg.Wait()
	}

	res := &Result{
		Combinations: len(combos),
		Trials:       total,
		Elapsed:      time.Since(start),
	}
	for _, out := range outputs {
		res.Rows = append(res.Rows, out.rows...)
		res.AgentRows = append(res.AgentRows, out.agents...)
		if out.failed != nil {
			res.Failed = append(res.Failed, *out.failed)
		}
	}

	slog.Info("batch complete",
		"trials", res.Trials,
		"rows", len(res.Rows),
		"failed", len(res.Failed),
		"elapsed", res.Elapsed.Round(time.Millisecond),
	)

	return res, nil
}

// runTrialWithRetry runs one trial and retries once with a fresh seed on
// failure. A second failure is recorded as missing, never silently
// dropped.
func (r *Runner) runTrialWithRetry(comb Combination, uid, baseSeed int64) trialOutput {
	seed := baseSeed + uid

	rows, agents, err := r.runTrial(comb, uid, seed)
	if err != nil {
		slog.Warn("trial failed, retrying with fresh seed", "uid", uid, "combination", comb.Label(), "error", err)
		rows, agents, err = r.runTrial(comb, uid, seed+retrySeedOffset)
	}
	if err != nil {
		slog.Error("trial failed after retry, recording as missing", "uid", uid, "combination", comb.Label(), "error", err)
		return trialOutput{failed: &FailedTrial{UID: uid, Label: comb.Label(), Err: err}}
	}
	return trialOutput{rows: rows, agents: agents}
}

// runTrial constructs a fresh model and advances it through the step
// budget, sampling metrics per step or only after the final step. A
// panicking trial is converted to an error so the batch survives it.
func (r *Runner) runTrial(comb Combination, uid, seed int64) (rows []metrics.Row, agents []metrics.AgentRow, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			rows, agents = nil, nil
			err = fmt.Errorf("trial panicked: %v", rec)
		}
	}()

	mc, err := comb.Apply(r.cfg.Model)
	if err != nil {
		return nil, nil, err
	}

	m, err := sim.New(mc, sim.Options{UID: uid, Seed: seed})
	if err != nil {
		return nil, nil, fmt.Errorf("creating model: %w", err)
	}

	perStep := r.cfg.Run.Collect == config.CollectSteps
	for s := 0; s < r.cfg.Run.Steps; s++ {
		m.Step()
		if perStep {
			rows = append(rows, metrics.Collect(m))
			if r.cfg.Run.CollectAgent {
				agents = append(agents, metrics.CollectAgents(m)...)
			}
		}
	}
	if !perStep {
		rows = append(rows, metrics.Collect(m))
		if r.cfg.Run.CollectAgent {
			agents = append(agents, metrics.CollectAgents(m)...)
		}
	}

	return rows, agents, nil
}

// GiniByGroup buckets Gini values by (init_people, trade_threshold), the
// grouping the distribution histograms are rendered over. Keys double as
// series file names.
func GiniByGroup(rows []metrics.Row) map[string][]float64 {
	groups := make(map[string][]float64)
	for _, row := range rows {
		label := fmt.Sprintf("gini_people-%d_trade-%d", row.InitPeople, row.TradeThreshold)
		groups[label] = append(groups[label], row.Gini)
	}
	return groups
}
