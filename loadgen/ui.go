package loadgen

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/ecomlab/shoplt/report"
	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
)

const plotTailSize = 48

// liveUI renders dashboard until ctx is done, q or ctrl+c calls quit.
func (r *runner) liveUI(ctx context.Context, quit func()) {
	uiEvents := ui.PollEvents()

	rates := make(map[string][]float64, 10)

	rpsPlot := widgets.NewPlot()
	rpsPlot.SetRect(0, 7, 100, 15)
	rpsPlot.ShowAxes = false
	rpsPlot.HorizontalScale = 2

	latencyPlot := widgets.NewPlot()
	latencyPlot.SetRect(0, 15, 100, 30)
	latencyPlot.Data = [][]float64{0: {}, 1: {}}
	latencyPlot.HorizontalScale = 2
	latencyPlot.Title = "Min/Max Latency, ms"

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case e := <-uiEvents:
			switch e.ID {
			case "q", "<C-c>":
				quit()
			}

			continue
		case <-ticker.C:
		case <-ctx.Done():
			return
		}

		drawables := make([]ui.Drawable, 0, 5)
		elaDur := r.stats.Elapsed()
		ela := elaDur.Seconds()

		latencyPercentiles := widgets.NewParagraph()
		latencyPercentiles.Title = "Latency, ms (q to quit)"
		latencyPercentiles.Text = ""

		for _, p := range []float64{100, 99, 95, 90, 50} {
			latencyPercentiles.Text += fmt.Sprintf("%.0f%%: %.2fms\n", p, r.stats.Percentile(p))
		}

		latencyPercentiles.SetRect(0, 0, 30, 7)

		drawables = append(drawables, latencyPercentiles)

		counts := r.stats.Counts()

		if r.sc.Transport != nil {
			for k, v := range r.sc.Transport.RequestCounts() {
				counts[k] = v
			}
		}

		requestCounters := widgets.NewParagraph()
		requestCounters.Title = "Request Count"
		requestCounters.Text = ""
		requestCounters.SetRect(30, 0, 75, 7)

		drawables = append(drawables, requestCounters)

		users := widgets.NewParagraph()
		users.Title = "Users"
		users.Text = strconv.Itoa(r.stats.Users()) + " running\n" +
			strconv.Itoa(r.stats.Tasks()) + " tasks done\n" +
			elaDur.Round(time.Second).String() + " passed\n"
		users.SetRect(75, 0, 100, 7)

		drawables = append(drawables, users)

		rpsPlot.DataLabels = make([]string, 0, len(counts))
		rpsPlot.Data = make([][]float64, 0, len(counts))

		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		for _, name := range keys {
			cnt := counts[name]
			requestCounters.Text += fmt.Sprintf("%s: %d\n", name, cnt)

			rates[name] = append(rates[name], float64(cnt)/ela)
			if len(rates[name]) < 2 {
				continue
			}

			if len(rates[name]) > plotTailSize {
				rates[name] = rates[name][len(rates[name])-plotTailSize:]
			}

			rpsPlot.DataLabels = append(rpsPlot.DataLabels, name)
			rpsPlot.Data = append(rpsPlot.Data, rates[name])
		}

		rpsPlot.Title = fmt.Sprintf("Requests per second: %.2f (total requests: %d)", float64(counts["tot"])/ela, counts["tot"])

		minMs, maxMs := r.stats.RollingMinMax()
		latencyPlot.Data[0] = append(latencyPlot.Data[0], minMs)
		latencyPlot.Data[1] = append(latencyPlot.Data[1], maxMs)

		if len(latencyPlot.Data[0]) > plotTailSize {
			latencyPlot.Data[0] = latencyPlot.Data[0][len(latencyPlot.Data[0])-plotTailSize:]
			latencyPlot.Data[1] = latencyPlot.Data[1][len(latencyPlot.Data[1])-plotTailSize:]
		}

		if len(latencyPlot.Data[0]) > 1 {
			drawables = append(drawables, latencyPlot)
		}

		if len(rpsPlot.Data) > 0 {
			drawables = append(drawables, rpsPlot)
		}

		drawables = append(drawables, statsTable(r.stats.Rows()))

		ui.Render(drawables...)
	}
}

func statsTable(rows []report.StatsRow) *widgets.Table {
	t := widgets.NewTable()
	t.Title = "Requests"
	t.Rows = [][]string{{"Type", "Name", "# reqs", "# fails", "Median", "90%", "Max", "req/s"}}

	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Method, r.Name, strconv.Itoa(r.Requests), strconv.Itoa(r.Failures),
			fmt.Sprintf("%.0f", r.Median), fmt.Sprintf("%.0f", r.P90), fmt.Sprintf("%.0f", r.Max),
			fmt.Sprintf("%.2f", r.RPS),
		})
	}

	t.SetRect(0, 30, 100, 32+2*len(t.Rows))

	return t
}
