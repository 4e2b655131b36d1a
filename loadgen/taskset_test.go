package loadgen_test

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/ecomlab/shoplt/loadgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context) error { return nil }

func TestTaskSet_Pick(t *testing.T) {
	ts, err := loadgen.NewTaskSet([]loadgen.Task{
		{Name: "a", Weight: 5, Do: noop},
		{Name: "b", Weight: 3, Do: noop},
		{Name: "off", Weight: 0, Do: noop},
		{Name: "c", Weight: 2, Do: noop},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, ts.Len())

	rnd := rand.New(rand.NewPCG(1, 2))
	counts := map[string]int{}

	const n = 100000
	for i := 0; i < n; i++ {
		counts[ts.Pick(rnd).Name]++
	}

	assert.Zero(t, counts["off"])
	assert.InDelta(t, 0.5, float64(counts["a"])/n, 0.02)
	assert.InDelta(t, 0.3, float64(counts["b"])/n, 0.02)
	assert.InDelta(t, 0.2, float64(counts["c"])/n, 0.02)
}

func TestNewTaskSet_invalid(t *testing.T) {
	_, err := loadgen.NewTaskSet(nil)
	assert.ErrorIs(t, err, loadgen.ErrNoTasks)

	_, err = loadgen.NewTaskSet([]loadgen.Task{{Name: "a", Weight: 0, Do: noop}})
	assert.ErrorIs(t, err, loadgen.ErrNoTasks)

	_, err = loadgen.NewTaskSet([]loadgen.Task{{Name: "a", Weight: -1, Do: noop}})
	assert.ErrorIs(t, err, loadgen.ErrNegWeight)
}

func TestBetween(t *testing.T) {
	rnd := rand.New(rand.NewPCG(3, 4))
	w := loadgen.Between(time.Second, 3*time.Second)

	for i := 0; i < 1000; i++ {
		d := w(rnd)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, 3*time.Second)
	}

	assert.Equal(t, 2*time.Second, loadgen.Between(2*time.Second, time.Second)(rnd))
	assert.Equal(t, time.Duration(0), loadgen.Constant(0)(rnd))
}

type nopUser struct{}

func (nopUser) Tasks() []loadgen.Task { return []loadgen.Task{{Name: "noop", Weight: 1, Do: noop}} }
func (nopUser) WaitTime() loadgen.WaitTimeFunc { return nil }

func newNopUser(int) loadgen.User { return nopUser{} }

func TestSpawnPlan(t *testing.T) {
	plan, err := loadgen.SpawnPlan(8, []loadgen.Profile{
		{Name: "primary", Weight: 3, NewUser: newNopUser},
		{Name: "health", Weight: 1, NewUser: newNopUser},
		{Name: "checkout", Weight: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 1, 0, 0, 0, 1, 0}, plan)

	plan, err = loadgen.SpawnPlan(1, []loadgen.Profile{
		{Name: "primary", Weight: 3, NewUser: newNopUser},
		{Name: "health", Weight: 1, NewUser: newNopUser},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, plan)

	_, err = loadgen.SpawnPlan(1, []loadgen.Profile{{Name: "off", Weight: 0, NewUser: newNopUser}})
	assert.ErrorIs(t, err, loadgen.ErrNoProfiles)

	_, err = loadgen.SpawnPlan(1, []loadgen.Profile{{Name: "broken", Weight: 1}})
	assert.ErrorIs(t, err, loadgen.ErrNoConstructor)

	_, err = loadgen.SpawnPlan(1, []loadgen.Profile{{Name: "neg", Weight: -1, NewUser: newNopUser}})
	assert.ErrorIs(t, err, loadgen.ErrNegWeight)
}
