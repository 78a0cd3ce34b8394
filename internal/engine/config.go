package engine

import (
	"fmt"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"

	"mad-engine/internal/config"
	"mad-engine/internal/diag"
)

// Config holds the engine settings read from the run configuration.
type Config struct {
	// Period is the fixed tick period.
	Period time.Duration
	// Workers is the worker count; 0 selects DefaultWorkerCount.
	Workers int
	Policy  Policy
	// LogLevel is one of the diag level names.
	LogLevel string
	// LogFile receives the merged journal at shutdown when set.
	LogFile string
	// RecordFile receives the merged records at shutdown when set.
	RecordFile string
	// TickLimit stops the engine after that many ticks; 0 means no limit.
	TickLimit uint64
}

// DefaultConfig returns the settings used for absent keys.
func DefaultConfig() Config {
	return Config{
		Period:   time.Millisecond,
		Policy:   PolicyAdaptive,
		LogLevel: diag.LevelStatus,
	}
}

// ConfigFromMap reads the engine settings from m.
func ConfigFromMap(m config.Map) (Config, error) {
	c := DefaultConfig()
	c.Period = m.Micros(config.KeyModelTicks, c.Period)
	c.Workers = m.Int(config.KeyWorkers, c.Workers)
	if c.Workers < 0 {
		return c, fmt.Errorf("engine: negative worker count %d", c.Workers)
	}
	policy, err := ParsePolicy(m.String(config.KeyPolicy, ""))
	if err != nil {
		return c, err
	}
	c.Policy = policy
	c.LogLevel = m.String(config.KeyLogLevel, c.LogLevel)
	c.LogFile = m.String(config.KeyLogFile, "")
	c.RecordFile = m.RecordPath()
	if n := m.Int64(config.KeyTickLimit, 0); n > 0 {
		c.TickLimit = uint64(n)
	}
	return c, nil
}

// DefaultWorkerCount is one less than the number of logical CPUs, leaving
// a core for the control goroutine, and never less than one.
func DefaultWorkerCount() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		n = runtime.NumCPU()
	}
	return max(1, n-1)
}
