package loadgen

import (
	"github.com/alecthomas/kingpin/v2"
	"github.com/bool64/dev/version"
)

// Register sets up flags as command line options.
func (lf *Flags) Register() {
	kingpin.CommandLine.Help = "E-commerce load tester with weighted simulated users"

	kingpin.Version(version.Info().Version)

	kingpin.Flag("host", "Base URL of the target gateway (env SHOPLT_HOST).").
		Envar("SHOPLT_HOST").Default("http://localhost:9090").StringVar(&lf.Host)
	kingpin.Flag("users", "Number of simulated users.").
		Short('u').Default("10").IntVar(&lf.Users)
	kingpin.Flag("spawn-rate", "Number of users to start per second.").
		Short('r').Default("2").Float64Var(&lf.SpawnRate)
	kingpin.Flag("number", "Max number of tasks to run, 0 is infinite.").
		PlaceHolder("0").IntVar(&lf.Number)
	kingpin.Flag("rate-limit", "Rate limit, in tasks per second, 0 disables limit (default).").
		Default("0").IntVar(&lf.RateLimit)
	kingpin.Flag("duration", "Max duration of load testing, 0 is infinite.").
		Short('t').PlaceHolder("1m").DurationVar(&lf.Duration)
	kingpin.Flag("slow", "Min duration of slow response.").
		Default("1s").DurationVar(&lf.SlowResponse)
	kingpin.Flag("live-ui", "Show live ui with statistics (interactive mode), headless otherwise.").
		BoolVar(&lf.LiveUI)
	kingpin.Flag("csv", "Store stats in PREFIX_stats.csv and PREFIX_failures.csv.").
		PlaceHolder("PREFIX").StringVar(&lf.CSVPrefix)
}
