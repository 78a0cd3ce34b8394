package particle

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"mad-engine/internal/config"
	"mad-engine/internal/core"
	"mad-engine/internal/engine"
	"mad-engine/internal/initializer"
	"mad-engine/internal/runner"
)

// Keys read by the static initializers.
const (
	KeyCount = "Model.Particles"
	KeySpeed = "Model.Speed"
)

// Initializers are the static placements. random is the default.
var Initializers = initializer.NewRegistry[Operation]("random")

func placement(place func(s *Support, cfg config.Map)) initializer.Factory[Operation] {
	return func(carrier any, cfg config.Map) (initializer.Initializer[Operation], error) {
		s, ok := carrier.(*Support)
		if !ok {
			return nil, fmt.Errorf("particle: carrier is %T, want *particle.Support", carrier)
		}
		return initializer.Funcs[Operation]{
			Init: func() error {
				place(s, cfg)
				return nil
			},
			Inject: s.SignalInitialCells,
		}, nil
	}
}

// Single places one particle on the left of the middle row, heading right
// at Model.Speed.
func Single(s *Support, cfg config.Map) {
	s.Place(1, s.H/2, Particle{Name: "p0", Horizontal: 1, Mass: 1, Speed: cfg.Int(KeySpeed, 5), Type: Photon})
}

// Pair places two particles on the middle row heading for each other.
func Pair(s *Support, cfg config.Map) {
	speed := cfg.Int(KeySpeed, 5)
	y := s.H / 2
	s.Place(1, y, Particle{Name: "left", Horizontal: 1, Mass: 1, Speed: speed, Type: Electron})
	s.Place(s.W-2, y, Particle{Name: "right", Horizontal: -1, Mass: 1, Speed: speed, Type: Gluon})
}

// Random scatters Model.Particles random particles, one per fifty cells by
// default.
func Random(s *Support, cfg config.Map) {
	rng := core.NewRNG(cfg.Int64(config.KeySeed, 42))
	count := cfg.Int(KeyCount, max(1, s.Len()/50))
	for i := range count {
		s.Place(rng.IntN(s.W), rng.IntN(s.H), RandomParticle(rng, "p"+strconv.Itoa(i)))
	}
}

// Sim is the particle runner plus a text command to launch particles while
// it runs.
type Sim struct {
	*runner.Runner[Operation, Record]
	support *Support

	mu  sync.Mutex
	rng *core.RNG
}

// NewRunner builds a particle run from cfg.
func NewRunner(cfg config.Map, opts ...runner.Option) (*Sim, error) {
	s := NewSupport(cfg.Int(config.KeyWidth, 100), cfg.Int(config.KeyHeight, 100))
	r, err := runner.New(runner.Spec[Operation, Record]{
		Name:         "particle",
		Carrier:      s,
		Factory:      Factory,
		Initializers: Initializers,
		Header:       Header,
	}, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Sim{Runner: r, support: s, rng: core.NewRNG(cfg.Int64(config.KeySeed, 42) - 1)}, nil
}

// Support is the box the sim runs on.
func (s *Sim) Support() *Support { return s.support }

// Launch drops p onto the cell at (x, y) in the next tick.
func (s *Sim) Launch(x, y int, p Particle) error {
	if x < 0 || y < 0 || x >= s.support.W || y >= s.support.H {
		return fmt.Errorf("particle: launch at (%d,%d) outside the %dx%d box", x, y, s.support.W, s.support.H)
	}
	return s.Inject(func(cb *engine.Callback[Operation]) {
		s.support.Drop(cb, y*s.support.W+x, p)
	})
}

// Command understands
//
//	launch                        a random particle on a random cell
//	launch x y h v speed [type]   a particle heading along (h, v)
func (s *Sim) Command(line string) error {
	f := strings.Fields(line)
	if len(f) == 0 || f[0] != "launch" {
		return fmt.Errorf("particle: unknown command %q", line)
	}
	args := f[1:]

	s.mu.Lock()
	name := fmt.Sprintf("k%d", s.support.Launched()+1)
	if len(args) == 0 {
		p := RandomParticle(s.rng, name)
		x, y := s.rng.IntN(s.support.W), s.rng.IntN(s.support.H)
		s.mu.Unlock()
		return s.Launch(x, y, p)
	}
	s.mu.Unlock()

	if len(args) != 5 && len(args) != 6 {
		return fmt.Errorf("particle: want launch x y h v speed [type], got %q", line)
	}
	var n [5]int
	for i, a := range args[:5] {
		v, err := strconv.Atoi(a)
		if err != nil {
			return fmt.Errorf("particle: launch: %w", err)
		}
		n[i] = v
	}
	p := Particle{Name: name, Horizontal: n[2], Vertical: n[3], Speed: n[4], Mass: 1, Type: Photon}
	if len(args) == 6 {
		t, err := ParseType(args[5])
		if err != nil {
			return err
		}
		p.Type = t
	}
	return s.Launch(n[0], n[1], p)
}

func init() {
	Initializers.Register("random", placement(Random))
	Initializers.Register("single", placement(Single))
	Initializers.Register("pair", placement(Pair))

	core.Register("particle", func(cfg config.Map) (core.Sim, error) {
		s, err := NewRunner(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

var (
	_ core.Sim       = (*Sim)(nil)
	_ core.Commander = (*Sim)(nil)
	_ engine.Carrier = (*Support)(nil)
)
