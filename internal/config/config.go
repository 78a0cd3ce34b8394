package config

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrMissing reports a required key that is absent from a Map.
var ErrMissing = errors.New("config: missing key")

// Map is a flat view of the run configuration. Nested file sections are
// flattened into dotted keys such as "Model.Width".
type Map map[string]string

// Clone returns a copy that can be modified without touching m.
func (m Map) Clone() Map {
	if m == nil {
		return Map{}
	}
	return maps.Clone(m)
}

// Merge copies every entry of other into m, overwriting existing keys.
func (m Map) Merge(other Map) {
	for k, v := range other {
		m[k] = v
	}
}

// Set parses a "key=value" assignment into m.
func (m Map) Set(assignment string) error {
	key, value, ok := strings.Cut(assignment, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("config: invalid assignment %q, expected key=value", assignment)
	}
	m[key] = strings.TrimSpace(value)
	return nil
}

// Has reports whether key is present.
func (m Map) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// String returns the value for key or def when absent.
func (m Map) String(key, def string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return def
}

// Require returns the value for key or an error wrapping ErrMissing.
func (m Map) Require(key string) (string, error) {
	v, ok := m[key]
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissing, key)
	}
	return v, nil
}

// Int returns the integer value for key. Unparseable values yield def.
func (m Map) Int(key string, def int) int {
	v, ok := m[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

// Int64 is the int64 form of Int.
func (m Map) Int64(key string, def int64) int64 {
	v, ok := m[key]
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return def
	}
	return n
}

// Bool returns the boolean value for key.
func (m Map) Bool(key string, def bool) bool {
	v, ok := m[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

// Duration parses a Go duration string ("250ms") for key.
func (m Map) Duration(key string, def time.Duration) time.Duration {
	v, ok := m[key]
	if !ok {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return d
}

// Micros reads key as an integer count of microseconds.
func (m Map) Micros(key string, def time.Duration) time.Duration {
	v, ok := m[key]
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		return def
	}
	return time.Duration(n) * time.Microsecond
}

// Keys used across the engine, the runner and the sims.
const (
	KeySim                 = "Model.Sim"
	KeyWidth               = "Model.Width"
	KeyHeight              = "Model.Height"
	KeyModelTicks          = "Model.ModelTicks"
	KeySeed                = "Model.Seed"
	KeyWorkers             = "Engine.Workers"
	KeyPolicy              = "Engine.Policy"
	KeyLogLevel            = "Engine.LogLevel"
	KeyLogFile             = "Engine.LogFile"
	KeyTickLimit           = "Engine.TickLimit"
	KeyInitializer         = "Execution.Initializer"
	KeyInitializerLocation = "Execution.InitializerLocation"
	KeyRecordLocation      = "PostProcessing.RecordLocation"
	KeyRecordFile          = "PostProcessing.RecordFile"
)

// RecordPath joins the record location and file name the way the runner
// expects. It returns "" when no record file is configured.
func (m Map) RecordPath() string {
	file := m.String(KeyRecordFile, "")
	if file == "" {
		return ""
	}
	return filepath.Join(m.String(KeyRecordLocation, ""), file)
}
