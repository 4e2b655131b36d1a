package loadgen_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/ecomlab/shoplt/loadgen"
	"github.com/ecomlab/shoplt/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats_Rows(t *testing.T) {
	s := loadgen.NewStats(time.Second)

	s.Report(loadgen.Result{Method: "GET", Name: "/products", Elapsed: 10 * time.Millisecond, Size: 100})
	s.Report(loadgen.Result{Method: "GET", Name: "/products", Elapsed: 30 * time.Millisecond, Size: 300})
	s.Report(loadgen.Result{Method: "POST", Name: "/users", Elapsed: 2 * time.Second, Err: errors.New("status 503")})
	s.Report(loadgen.Result{Method: "GET", Name: "/categories", Elapsed: 20 * time.Millisecond})

	rows := s.Rows()
	require.Len(t, rows, 4)

	assert.Equal(t, "/categories", rows[0].Name)
	assert.Equal(t, "/products", rows[1].Name)
	assert.Equal(t, "/users", rows[2].Name)
	assert.Equal(t, report.AggregatedName, rows[3].Name)

	p := rows[1]
	assert.Equal(t, "GET", p.Method)
	assert.Equal(t, 2, p.Requests)
	assert.Equal(t, 0, p.Failures)
	assert.InDelta(t, 20.0, p.Avg, 0.001)
	assert.InDelta(t, 10.0, p.Min, 0.001)
	assert.InDelta(t, 30.0, p.Max, 0.001)
	assert.InDelta(t, 200.0, p.AvgSize, 0.001)

	total := rows[3]
	assert.Equal(t, 4, total.Requests)
	assert.Equal(t, 1, total.Failures)
	assert.InDelta(t, 2000.0, total.Max, 0.001)

	assert.Equal(t, []report.FailureRow{
		{Method: "POST", Name: "/users", Error: "status 503", Occurrences: 1},
	}, s.Failures())

	counts := s.Counts()
	assert.Equal(t, 4, counts["tot"])
	assert.Equal(t, 1, counts["fail"])
	assert.Equal(t, 2, counts["/products"])

	minMs, maxMs := s.RollingMinMax()
	assert.InDelta(t, 10.0, minMs, 0.001)
	assert.InDelta(t, 2000.0, maxMs, 0.001)

	minMs, maxMs = s.RollingMinMax()
	assert.Zero(t, minMs)
	assert.Zero(t, maxMs)
}

func TestStats_Print(t *testing.T) {
	s := loadgen.NewStats(time.Second)

	s.Report(loadgen.Result{Method: "GET", Name: "/products", Elapsed: 1500 * time.Millisecond})
	s.Report(loadgen.Result{Method: "GET", Name: "/products/{id}", Elapsed: time.Millisecond, Err: errors.New("status 500")})
	s.TaskError("get product", errors.New("boom"))

	out := bytes.NewBuffer(nil)
	s.Print(out)

	assert.Contains(t, out.String(), "Total requests: 2")
	assert.Contains(t, out.String(), "Failed requests: 1")
	assert.Contains(t, out.String(), "Requests with latency more than 1s: 1")
	assert.Contains(t, out.String(), "1 GET /products/{id}: status 500")
	assert.Contains(t, out.String(), "1 get product: boom")
	assert.Equal(t, map[string]int{"get product: boom": 1}, s.TaskErrors())
}

func TestStats_empty(t *testing.T) {
	s := loadgen.NewStats(time.Second)

	rows := s.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, 0, rows[0].Requests)
	assert.Zero(t, s.Percentile(99))
	assert.Empty(t, s.Failures())
}
