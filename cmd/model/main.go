// Command model runs a sim headless until a signal, an empty line or q on
// stdin, or a configured tick or time limit stops it. Other lines are handed
// to sims that take commands, such as "launch" for the particle sim.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/automaxprocs/maxprocs"

	"mad-engine/internal/app"
	"mad-engine/internal/config"
	"mad-engine/internal/core"
	"mad-engine/internal/diag"
	"mad-engine/internal/render"
	_ "mad-engine/internal/sims/briansbrain"
	_ "mad-engine/internal/sims/elementary"
	_ "mad-engine/internal/sims/life"
	_ "mad-engine/internal/sims/particle"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("model", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg := app.NewConfig()
	cfg.Bind(fs)
	ticks := fs.Uint64("ticks", 0, "stop after this many ticks (0 = no limit)")
	duration := fs.Duration("duration", 0, "stop after this long (0 = no limit)")
	display := fs.Duration("display", 0, "print the model window at this interval (0 = off)")
	win := render.Window{W: 64, H: 32}
	fs.Func("window", "display window as x,y,w,h", func(v string) error {
		var err error
		win, err = parseWindow(v)
		return err
	})
	verbose := fs.Bool("v", false, "log diagnostics to stderr")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: model [flags] [control-file]\n\nsims: %s\n\n", strings.Join(core.Names(), ", "))
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	cfg.Control = fs.Arg(0)

	level := diag.ParseLevel(diag.LevelStatus)
	if *verbose {
		level = diag.ParseLevel(diag.LevelDiagnostic)
	}
	log := diag.NewConsole(stderr, level)

	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, a ...any) {
		log.Debug().Logf(format, a...)
	}))
	defer undo()
	if err != nil {
		log.Warning().Err(err).Log("could not adjust GOMAXPROCS")
	}

	m, err := cfg.Map(app.Visited(fs))
	if err != nil {
		log.Err().Err(err).Log("configuration failed")
		return 1
	}
	if *ticks > 0 {
		m[config.KeyTickLimit] = strconv.FormatUint(*ticks, 10)
	}

	log.Debug().Str("keys", strings.Join(m.Keys(), ",")).Log("configuration loaded")

	name := m.String(config.KeySim, cfg.Sim)
	sim, err := core.New(name, m)
	if err != nil {
		log.Err().Err(err).Log("cannot build sim")
		return 1
	}

	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}
	if err := sim.Start(ctx); err != nil {
		log.Err().Err(err).Str("sim", name).Log("start failed")
		return 1
	}
	size := sim.Size()
	log.Info().Str("sim", name).Int("width", size.W).Int("height", size.H).Log("running")

	go readCommands(stdin, sim, log)

	var frames <-chan time.Time
	if *display > 0 {
		t := time.NewTicker(*display)
		defer t.Stop()
		frames = t.C
	}
	var cells []uint8
	for running := true; running; {
		select {
		case <-sim.Done():
			running = false
		case <-frames:
			cells = sim.Snapshot(cells)
			st := sim.Stats()
			fmt.Fprintf(stdout, "tick %d work %d\n", st.Iterations, st.TotalWork)
			if err := render.Text(stdout, cells, size, win, render.GlyphsFor(name)); err != nil {
				log.Err().Err(err).Log("display failed")
			}
		}
	}

	stats := sim.Wait()
	fmt.Fprintln(stdout, stats.String())
	if stats.Err != nil {
		log.Err().Err(stats.Err).Log("run failed")
		return 1
	}
	return 0
}

// readCommands quits sim on an empty line or q and passes every other line
// to sim when it is a core.Commander. EOF does not quit.
func readCommands(r io.Reader, sim core.Sim, log *diag.Logger) {
	if r == nil {
		return
	}
	cmd, _ := sim.(core.Commander)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "" || line == "q" || line == "quit":
			sim.Quit()
			return
		case cmd == nil:
			log.Warning().Str("line", line).Log("sim takes no commands")
		default:
			if err := cmd.Command(line); err != nil {
				log.Warning().Err(err).Log("command failed")
			}
		}
	}
}

func parseWindow(v string) (render.Window, error) {
	parts := strings.Split(v, ",")
	if len(parts) != 4 {
		return render.Window{}, fmt.Errorf("want x,y,w,h, got %q", v)
	}
	var n [4]int
	for i, p := range parts {
		x, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return render.Window{}, fmt.Errorf("window: %w", err)
		}
		n[i] = x
	}
	return render.Window{X: n[0], Y: n[1], W: n[2], H: n[3]}, nil
}
