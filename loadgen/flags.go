package loadgen

import (
	"io"
	"os"
	"time"
)

// Flags control load testing.
type Flags struct {
	Host         string
	Users        int
	SpawnRate    float64
	Number       int
	RateLimit    int
	Duration     time.Duration
	SlowResponse time.Duration
	LiveUI       bool
	CSVPrefix    string

	Output io.Writer
}

// Prepare sets conditional defaults.
func (lf *Flags) Prepare() {
	if lf.Number == 0 && lf.Duration == 0 {
		lf.Duration = time.Minute
	}

	if lf.Users <= 0 {
		lf.Users = 1
	}

	// Non-positive spawn rate starts all users within a second.
	if lf.SpawnRate <= 0 {
		lf.SpawnRate = float64(lf.Users)
	}

	if lf.SlowResponse <= 0 {
		lf.SlowResponse = time.Second
	}

	if lf.Output == nil {
		lf.Output = os.Stdout
	}
}
