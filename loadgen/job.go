package loadgen

import (
	"context"
	"io"
	"time"
)

// Result is an outcome of a single request made by a simulated user.
type Result struct {
	Method  string
	Name    string
	Elapsed time.Duration
	Size    int64

	// Err is nil for a successful request, it describes failure reason otherwise.
	Err error
}

// Reporter receives request outcomes.
type Reporter interface {
	Report(r Result)
}

// Reporters fans out results to each of its elements.
type Reporters []Reporter

// Report implements Reporter.
func (rs Reporters) Report(r Result) {
	for _, rep := range rs {
		rep.Report(r)
	}
}

// Task is a weighted unit of simulated user behavior.
type Task struct {
	Name   string
	Weight int

	// Do runs task body, it reports request outcomes on its own.
	// Returned error is counted as a task error, not as a request failure.
	Do func(ctx context.Context) error
}

// User is an instance of simulated user.
//
// User is driven by a single goroutine, so it does not need to synchronize its own state.
type User interface {
	Tasks() []Task
	WaitTime() WaitTimeFunc
}

// Starter is implemented by users that need initialization.
type Starter interface {
	OnStart(ctx context.Context) error
}

// Stopper is implemented by users that need cleanup.
type Stopper interface {
	OnStop()
}

// Profile describes a kind of simulated users.
type Profile struct {
	Name string

	// Weight controls share of users spawned with this profile, zero disables profile.
	Weight int

	NewUser func(id int) User
}

// TransportStats exposes transport level stats.
type TransportStats interface {
	RequestCounts() map[string]int
	Metrics() map[string]map[string]float64
	Print(w io.Writer)
}

// Scenario is a set of user profiles with shared stats.
type Scenario struct {
	Profiles []Profile
	Stats    *Stats

	// Transport is optional.
	Transport TransportStats
}
