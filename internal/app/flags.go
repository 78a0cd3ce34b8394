package app

import (
	"flag"
	"fmt"
	"strings"

	"mad-engine/internal/config"
)

// Config represents the command-line parameters shared by the viewer and the
// headless runner.
type Config struct {
	Sim      string
	Settings string
	Control  string
	Scale    int
	TPS      int
	Seed     int64
	Sets     []string
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	return &Config{Sim: "life", Settings: config.DefaultSettingsFile, Scale: 3, TPS: 60, Seed: 42}
}

// Bind attaches the configuration to the provided FlagSet.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.StringVar(&c.Sim, "sim", c.Sim, "simulation to run")
	fs.StringVar(&c.Settings, "settings", c.Settings, "settings file naming ConfigFilePath")
	fs.IntVar(&c.Scale, "scale", c.Scale, "pixel scale multiplier")
	fs.IntVar(&c.TPS, "tps", c.TPS, "frames per second")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "seed for random initializers")
	fs.Func("set", "override a configuration key, as key=value (repeatable)", func(v string) error {
		if !strings.Contains(v, "=") {
			return fmt.Errorf("want key=value, got %q", v)
		}
		c.Sets = append(c.Sets, v)
		return nil
	})
}

// Map builds the run configuration: the layered files when a control file
// was given, then the flag values that were set, then every -set override.
func (c *Config) Map(set map[string]bool) (config.Map, error) {
	m := config.Map{}
	if c.Control != "" {
		loaded, err := config.Load(c.Settings, c.Control)
		if err != nil {
			return nil, err
		}
		m = loaded
	}
	if set["sim"] || !m.Has(config.KeySim) {
		m[config.KeySim] = c.Sim
	}
	if set["seed"] || !m.Has(config.KeySeed) {
		m[config.KeySeed] = fmt.Sprint(c.Seed)
	}
	for _, s := range c.Sets {
		if err := m.Set(s); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Visited returns the names of the flags set on the command line.
func Visited(fs *flag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}
