package loadgen

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"
)

// Errors returned by task set and scenario validation.
var (
	ErrNoTasks       = errors.New("loadgen: no tasks with positive weight")
	ErrNegWeight     = errors.New("loadgen: negative weight")
	ErrNoProfiles    = errors.New("loadgen: no profiles with positive weight")
	ErrNoConstructor = errors.New("loadgen: profile has no user constructor")
)

// WaitTimeFunc returns think time of a user between consecutive tasks.
type WaitTimeFunc func(rnd *rand.Rand) time.Duration

// Between returns uniformly distributed wait time in [min, max].
func Between(minWait, maxWait time.Duration) WaitTimeFunc {
	if maxWait <= minWait {
		return Constant(minWait)
	}

	return func(rnd *rand.Rand) time.Duration {
		return minWait + time.Duration(rnd.Int64N(int64(maxWait-minWait)+1))
	}
}

// Constant returns fixed wait time.
func Constant(d time.Duration) WaitTimeFunc {
	return func(*rand.Rand) time.Duration {
		return d
	}
}

// TaskSet picks tasks at random proportionally to their weights.
type TaskSet struct {
	tasks      []Task
	cumulative []int
	total      int
}

// NewTaskSet creates a task set, tasks with zero weight are never picked.
func NewTaskSet(tasks []Task) (*TaskSet, error) {
	ts := TaskSet{}

	for _, t := range tasks {
		if t.Weight < 0 {
			return nil, fmt.Errorf("%w: task %q", ErrNegWeight, t.Name)
		}

		if t.Weight == 0 {
			continue
		}

		ts.total += t.Weight
		ts.tasks = append(ts.tasks, t)
		ts.cumulative = append(ts.cumulative, ts.total)
	}

	if ts.total == 0 {
		return nil, ErrNoTasks
	}

	return &ts, nil
}

// Pick returns a random task.
func (ts *TaskSet) Pick(rnd *rand.Rand) Task {
	n := rnd.IntN(ts.total) + 1

	return ts.tasks[sort.SearchInts(ts.cumulative, n)]
}

// Len returns number of tasks that can be picked.
func (ts *TaskSet) Len() int {
	return len(ts.tasks)
}

// spawnPlan distributes users among profiles with smooth weighted round-robin,
// it returns profile index for every user in spawn order.
func spawnPlan(users int, profiles []Profile) ([]int, error) {
	total := 0

	for _, p := range profiles {
		if p.Weight < 0 {
			return nil, fmt.Errorf("%w: profile %q", ErrNegWeight, p.Name)
		}

		if p.Weight > 0 && p.NewUser == nil {
			return nil, fmt.Errorf("%w: %q", ErrNoConstructor, p.Name)
		}

		total += p.Weight
	}

	if total == 0 {
		return nil, ErrNoProfiles
	}

	current := make([]int, len(profiles))
	plan := make([]int, 0, users)

	for len(plan) < users {
		best := -1

		for i, p := range profiles {
			if p.Weight == 0 {
				continue
			}

			current[i] += p.Weight

			if best == -1 || current[i] > current[best] {
				best = i
			}
		}

		current[best] -= total
		plan = append(plan, best)
	}

	return plan, nil
}
