package loadgen_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ecomlab/shoplt/loadgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUser struct {
	stats   *loadgen.Stats
	started *atomic.Int64
	stopped *atomic.Int64
	failOn  int
	id      int
}

func (u *fakeUser) OnStart(context.Context) error {
	if u.id == u.failOn {
		return errors.New("setup failed")
	}

	u.started.Add(1)

	return nil
}

func (u *fakeUser) OnStop() {
	u.stopped.Add(1)
}

func (u *fakeUser) Tasks() []loadgen.Task {
	return []loadgen.Task{
		{Name: "browse", Weight: 3, Do: func(context.Context) error {
			u.stats.Report(loadgen.Result{Method: "GET", Name: "/products", Elapsed: time.Millisecond})

			return nil
		}},
		{Name: "fail", Weight: 1, Do: func(context.Context) error {
			u.stats.Report(loadgen.Result{Method: "POST", Name: "/users", Elapsed: time.Millisecond, Err: errors.New("status 500")})

			return errors.New("unexpected")
		}},
		{Name: "panic", Weight: 1, Do: func(context.Context) error {
			panic("oops")
		}},
	}
}

func (u *fakeUser) WaitTime() loadgen.WaitTimeFunc {
	return loadgen.Constant(100 * time.Microsecond)
}

func TestRun_number(t *testing.T) {
	out := bytes.NewBuffer(nil)
	stats := loadgen.NewStats(time.Second)
	prefix := filepath.Join(t.TempDir(), "run")

	var started, stopped atomic.Int64

	lf := loadgen.Flags{
		Users:     4,
		SpawnRate: 1000,
		Number:    200,
		CSVPrefix: prefix,
		Output:    out,
	}

	require.NoError(t, loadgen.Run(context.Background(), lf, loadgen.Scenario{
		Stats: stats,
		Profiles: []loadgen.Profile{
			{Name: "fake", Weight: 1, NewUser: func(id int) loadgen.User {
				return &fakeUser{stats: stats, started: &started, stopped: &stopped, id: id, failOn: 4}
			}},
		},
	}))

	assert.Positive(t, started.Load())
	assert.LessOrEqual(t, started.Load(), int64(3))
	assert.Equal(t, started.Load(), stopped.Load())
	assert.Equal(t, 200, stats.Tasks())
	assert.Equal(t, 0, stats.Users())

	taskErrors := stats.TaskErrors()
	assert.Positive(t, taskErrors["fail: unexpected"])
	assert.Positive(t, taskErrors["panic: panic: oops"])

	assert.Contains(t, out.String(), "Total requests:")

	for _, name := range []string{prefix + "_stats.csv", prefix + "_failures.csv"} {
		b, err := os.ReadFile(name)
		require.NoError(t, err)
		assert.NotEmpty(t, b)
	}

	failures, err := os.ReadFile(prefix + "_failures.csv")
	require.NoError(t, err)
	assert.Contains(t, string(failures), "POST,/users,status 500,")
}

func TestRun_duration(t *testing.T) {
	out := bytes.NewBuffer(nil)
	stats := loadgen.NewStats(time.Second)

	var started, stopped atomic.Int64

	start := time.Now()

	require.NoError(t, loadgen.Run(context.Background(), loadgen.Flags{
		Users:    2,
		Duration: 200 * time.Millisecond,
		Output:   out,
	}, loadgen.Scenario{
		Stats: stats,
		Profiles: []loadgen.Profile{
			{Name: "fake", Weight: 1, NewUser: func(id int) loadgen.User {
				return &fakeUser{stats: stats, started: &started, stopped: &stopped, id: id}
			}},
		},
	}))

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, started.Load(), stopped.Load())
	assert.Positive(t, stats.Tasks())
}

func TestRun_invalid(t *testing.T) {
	err := loadgen.Run(context.Background(), loadgen.Flags{Output: bytes.NewBuffer(nil)}, loadgen.Scenario{})
	assert.ErrorIs(t, err, loadgen.ErrNoProfiles)
}
