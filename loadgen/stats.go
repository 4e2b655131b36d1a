package loadgen

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ecomlab/shoplt/report"
	"github.com/vearutop/dynhist-go"
)

type entry struct {
	method, name string

	requests int
	failures int
	slow     int
	bytes    int64

	sumMs, minMs, maxMs float64

	precise *dynhist.Collector
	errors  map[string]int
}

func newEntry(method, name string) *entry {
	return &entry{
		method:  method,
		name:    name,
		precise: &dynhist.Collector{BucketsLimit: 100, WeightFunc: dynhist.LatencyWidth},
		errors:  map[string]int{},
	}
}

func (e *entry) add(r Result, ms float64, slow bool) {
	if e.requests == 0 || ms < e.minMs {
		e.minMs = ms
	}

	if ms > e.maxMs {
		e.maxMs = ms
	}

	e.requests++
	e.sumMs += ms
	e.bytes += r.Size
	e.precise.Add(ms)

	if slow {
		e.slow++
	}

	if r.Err != nil {
		e.failures++
		e.errors[r.Err.Error()]++
	}
}

func (e *entry) row(elapsed float64) report.StatsRow {
	row := report.StatsRow{
		Method:   e.method,
		Name:     e.name,
		Requests: e.requests,
		Failures: e.failures,
		Min:      e.minMs,
		Max:      e.maxMs,
	}

	if e.requests == 0 {
		return row
	}

	row.Avg = e.sumMs / float64(e.requests)
	row.AvgSize = float64(e.bytes) / float64(e.requests)
	row.Median = e.precise.Percentile(50)
	row.P90 = e.precise.Percentile(90)
	row.P95 = e.precise.Percentile(95)
	row.P99 = e.precise.Percentile(99)

	if elapsed > 0 {
		row.RPS = float64(e.requests) / elapsed
		row.FailuresPerSec = float64(e.failures) / elapsed
	}

	return row
}

// Stats aggregates request outcomes by method and name.
type Stats struct {
	mu sync.Mutex

	start time.Time
	slow  time.Duration

	entries map[string]*entry
	total   *entry

	// hist is a coarse latency distribution for the summary.
	hist dynhist.Collector

	rollMin, rollMax float64
	rollCount        int

	taskErrors map[string]int

	users atomic.Int64
	tasks atomic.Int64
}

// NewStats creates stats, responses slower than slow are counted separately.
func NewStats(slow time.Duration) *Stats {
	return &Stats{
		start:      time.Now(),
		slow:       slow,
		entries:    map[string]*entry{},
		total:      newEntry("", report.AggregatedName),
		hist:       dynhist.Collector{BucketsLimit: 10, WeightFunc: dynhist.LatencyWidth},
		taskErrors: map[string]int{},
	}
}

// Start resets elapsed time used for rates.
func (s *Stats) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.start = time.Now()
}

// Elapsed returns time since start.
func (s *Stats) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return time.Since(s.start)
}

// Report implements Reporter.
func (s *Stats) Report(r Result) {
	ms := report.Ms(r.Elapsed)
	slow := s.slow > 0 && r.Elapsed >= s.slow

	s.mu.Lock()
	defer s.mu.Unlock()

	k := r.Method + " " + r.Name

	e, ok := s.entries[k]
	if !ok {
		e = newEntry(r.Method, r.Name)
		s.entries[k] = e
	}

	e.add(r, ms, slow)
	s.total.add(r, ms, slow)
	s.hist.Add(ms)

	if s.rollCount == 0 || ms < s.rollMin {
		s.rollMin = ms
	}

	if ms > s.rollMax {
		s.rollMax = ms
	}

	s.rollCount++
}

// TaskError counts an error returned by a task.
func (s *Stats) TaskError(task string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.taskErrors[task+": "+err.Error()]++
}

// TaskErrors returns counts of task errors by task name and message.
func (s *Stats) TaskErrors() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make(map[string]int, len(s.taskErrors))
	for k, v := range s.taskErrors {
		res[k] = v
	}

	return res
}

// Users returns number of currently running users.
func (s *Stats) Users() int {
	return int(s.users.Load())
}

// Tasks returns number of finished tasks.
func (s *Stats) Tasks() int {
	return int(s.tasks.Load())
}

func (s *Stats) userStarted() { s.users.Add(1) }
func (s *Stats) userStopped() { s.users.Add(-1) }
func (s *Stats) taskDone()    { s.tasks.Add(1) }

// Rows returns per request stats sorted by name and method, followed by aggregated row.
func (s *Stats) Rows() []report.StatsRow {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := time.Since(s.start).Seconds()
	rows := make([]report.StatsRow, 0, len(s.entries)+1)

	for _, e := range s.entries {
		rows = append(rows, e.row(elapsed))
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}

		return rows[i].Method < rows[j].Method
	})

	return append(rows, s.total.row(elapsed))
}

// Failures returns failure reasons sorted by occurrences.
func (s *Stats) Failures() []report.FailureRow {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []report.FailureRow

	for _, e := range s.entries {
		for reason, cnt := range e.errors {
			rows = append(rows, report.FailureRow{Method: e.method, Name: e.name, Error: reason, Occurrences: cnt})
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Occurrences != rows[j].Occurrences {
			return rows[i].Occurrences > rows[j].Occurrences
		}

		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}

		return rows[i].Error < rows[j].Error
	})

	return rows
}

// Counts returns number of requests by name, total and failed requests.
func (s *Stats) Counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make(map[string]int, len(s.entries)+2)

	for _, e := range s.entries {
		res[e.name] += e.requests
	}

	res["tot"] = s.total.requests
	res["fail"] = s.total.failures

	return res
}

// Percentile returns latency percentile of all requests in milliseconds.
func (s *Stats) Percentile(p float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.total.requests == 0 {
		return 0
	}

	return s.total.precise.Percentile(p)
}

// RollingMinMax returns min and max latency in milliseconds since previous call.
func (s *Stats) RollingMinMax() (minMs, maxMs float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	minMs, maxMs = s.rollMin, s.rollMax
	s.rollMin, s.rollMax, s.rollCount = 0, 0, 0

	return minMs, maxMs
}

// Print writes summary.
func (s *Stats) Print(w io.Writer) {
	rows := s.Rows()
	total := rows[len(rows)-1]

	s.mu.Lock()
	elapsed := time.Since(s.start)
	slow := s.total.slow
	dist := ""

	if s.total.requests > 0 {
		dist = s.hist.String()
	}
	s.mu.Unlock()

	_, _ = fmt.Fprintln(w, "Requests per second:", fmt.Sprintf("%.2f", total.RPS))
	_, _ = fmt.Fprintln(w, "Total requests:", total.Requests)
	_, _ = fmt.Fprintln(w, "Failed requests:", total.Failures)
	_, _ = fmt.Fprintln(w, "Finished tasks:", s.Tasks())
	_, _ = fmt.Fprintln(w, "Time spent:", elapsed.Round(time.Millisecond).String())
	_, _ = fmt.Fprintln(w)

	if err := report.StatsTable(w, rows); err != nil {
		Logger.Warnw("failed to print stats table", "error", err)
	}

	_, _ = fmt.Fprintln(w)

	if total.Requests > 0 {
		_, _ = fmt.Fprintln(w, "Request latency distribution in ms:")
		_, _ = fmt.Fprintln(w, dist)
		_, _ = fmt.Fprintln(w, "Request latency percentiles:")
		_, _ = fmt.Fprintf(w, "99%%: %.2fms\n", total.P99)
		_, _ = fmt.Fprintf(w, "95%%: %.2fms\n", total.P95)
		_, _ = fmt.Fprintf(w, "90%%: %.2fms\n", total.P90)
		_, _ = fmt.Fprintf(w, "50%%: %.2fms\n\n", total.Median)
	}

	_, _ = fmt.Fprintln(w, "Requests with latency more than "+s.slow.String()+":", slow)

	if failures := s.Failures(); len(failures) > 0 {
		_, _ = fmt.Fprintln(w, "\nFailures:")

		for _, f := range failures {
			_, _ = fmt.Fprintf(w, "%d %s %s: %s\n", f.Occurrences, f.Method, f.Name, f.Error)
		}
	}

	if taskErrors := s.TaskErrors(); len(taskErrors) > 0 {
		_, _ = fmt.Fprintln(w, "\nTask errors:")

		keys := make([]string, 0, len(taskErrors))
		for k := range taskErrors {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		for _, k := range keys {
			_, _ = fmt.Fprintf(w, "%d %s\n", taskErrors[k], k)
		}
	}
}
