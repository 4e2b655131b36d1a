package loadgen

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ecomlab/shoplt/report"
	ui "github.com/gizak/termui/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type runner struct {
	lf    Flags
	sc    Scenario
	stats *Stats

	// rl limits task rate across all users, nil for unlimited.
	rl *rate.Limiter

	started  atomic.Int64
	stop     chan struct{}
	stopOnce sync.Once
}

// Run spawns users of scenario profiles and drives them until duration or number of tasks is exhausted,
// or ctx is canceled. Summary is printed to lf.Output when run is over.
func Run(ctx context.Context, lf Flags, sc Scenario) error {
	lf.Prepare()

	plan, err := spawnPlan(lf.Users, sc.Profiles)
	if err != nil {
		return err
	}

	if sc.Stats == nil {
		sc.Stats = NewStats(lf.SlowResponse)
	}

	r := &runner{
		lf:    lf,
		sc:    sc,
		stats: sc.Stats,
		stop:  make(chan struct{}),
	}

	if lf.RateLimit > 0 {
		r.rl = rate.NewLimiter(rate.Limit(lf.RateLimit), lf.Users)
	}

	if lf.Duration > 0 {
		var cancel func()

		ctx, cancel = context.WithTimeout(ctx, lf.Duration)
		defer cancel()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var uiDone chan struct{}

	if lf.LiveUI {
		if err := ui.Init(); err != nil {
			return fmt.Errorf("failed to initialize termui: %w", err)
		}

		// Log lines would break the dashboard.
		logger := Logger
		Logger = zap.NewNop().Sugar()

		defer func() {
			Logger = logger
		}()

		uiDone = make(chan struct{})

		go func() {
			defer close(uiDone)

			r.liveUI(ctx, cancel)
		}()
	}

	r.stats.Start()

	Logger.Infow("starting load",
		"users", lf.Users,
		"spawnRate", lf.SpawnRate,
		"duration", lf.Duration,
		"number", lf.Number,
	)

	err = r.spawn(ctx, plan)

	cancel()

	if uiDone != nil {
		<-uiDone
		ui.Close()
	}

	r.stats.Print(lf.Output)

	if sc.Transport != nil {
		sc.Transport.Print(lf.Output)
	}

	if lf.CSVPrefix != "" {
		if csvErr := report.WriteCSVFiles(lf.CSVPrefix, r.stats.Rows(), r.stats.Failures()); csvErr != nil && err == nil {
			err = csvErr
		}
	}

	return err
}

func (r *runner) spawn(ctx context.Context, plan []int) error {
	g, ctx := errgroup.WithContext(ctx)
	spawner := rate.NewLimiter(rate.Limit(r.lf.SpawnRate), 1)

	for i, pi := range plan {
		if r.stopped() {
			break
		}

		if err := spawner.Wait(ctx); err != nil {
			break
		}

		p := r.sc.Profiles[pi]
		id := i + 1

		g.Go(func() error {
			return r.runUser(ctx, id, p)
		})
	}

	return g.Wait()
}

func (r *runner) stopped() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

// acquire reserves a task from number budget.
func (r *runner) acquire() bool {
	if r.lf.Number <= 0 {
		return true
	}

	n := r.started.Add(1)

	if n >= int64(r.lf.Number) {
		r.stopOnce.Do(func() { close(r.stop) })
	}

	return n <= int64(r.lf.Number)
}

// sleep waits for d, it returns false if run is over.
func (r *runner) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil && !r.stopped()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return !r.stopped()
	case <-ctx.Done():
		return false
	case <-r.stop:
		return false
	}
}

func (r *runner) runUser(ctx context.Context, id int, p Profile) error {
	u := p.NewUser(id)

	if s, ok := u.(Starter); ok {
		if err := s.OnStart(ctx); err != nil {
			if ctx.Err() == nil {
				Logger.Warnw("user failed to start", "profile", p.Name, "user", id, "error", err)
			}

			return nil
		}
	}

	if s, ok := u.(Stopper); ok {
		defer s.OnStop()
	}

	ts, err := NewTaskSet(u.Tasks())
	if err != nil {
		return fmt.Errorf("profile %q: %w", p.Name, err)
	}

	wait := u.WaitTime()
	if wait == nil {
		wait = Constant(0)
	}

	r.stats.userStarted()
	defer r.stats.userStopped()

	rnd := rand.New(rand.NewPCG(uint64(id), uint64(time.Now().UnixNano()))) //nolint:gosec // Not for security.

	for {
		if ctx.Err() != nil || r.stopped() {
			return nil
		}

		if r.rl != nil {
			if err := r.rl.Wait(ctx); err != nil {
				return nil
			}
		}

		if !r.acquire() {
			return nil
		}

		r.do(ctx, ts.Pick(rnd))

		if !r.sleep(ctx, wait(rnd)) {
			return nil
		}
	}
}

func (r *runner) do(ctx context.Context, t Task) {
	defer r.stats.taskDone()

	defer func() {
		if rec := recover(); rec != nil {
			r.stats.TaskError(t.Name, fmt.Errorf("panic: %v", rec))
			Logger.Errorw("task panicked", "task", t.Name, "panic", rec)
		}
	}()

	if err := t.Do(ctx); err != nil && ctx.Err() == nil {
		r.stats.TaskError(t.Name, err)
		Logger.Debugw("task failed", "task", t.Name, "error", err)
	}
}
