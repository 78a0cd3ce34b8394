//go:build ebiten

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/automaxprocs/maxprocs"

	"mad-engine/internal/app"
	"mad-engine/internal/config"
	"mad-engine/internal/core"
	"mad-engine/internal/diag"
	_ "mad-engine/internal/sims/briansbrain"
	_ "mad-engine/internal/sims/elementary"
	_ "mad-engine/internal/sims/life"
	_ "mad-engine/internal/sims/particle"
)

func main() {
	cfg := app.NewConfig()
	cfg.Bind(flag.CommandLine)
	flag.Parse()
	cfg.Control = flag.Arg(0)

	log := diag.NewConsole(os.Stderr, diag.ParseLevel(diag.LevelStatus))
	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, a ...any) {
		log.Debug().Logf(format, a...)
	}))
	defer undo()
	if err != nil {
		log.Warning().Err(err).Log("could not adjust GOMAXPROCS")
	}

	m, err := cfg.Map(app.Visited(flag.CommandLine))
	if err != nil {
		fatal(log, "configuration failed", err)
	}
	sim, err := core.New(m.String(config.KeySim, cfg.Sim), m)
	if err != nil {
		fatal(log, "cannot build sim", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := sim.Start(ctx); err != nil {
		fatal(log, "start failed", err)
	}

	game := app.New(sim, cfg.Scale)
	size := sim.Size()

	ebiten.SetWindowTitle("mad-engine - " + sim.Name())
	ebiten.SetTPS(cfg.TPS)
	ebiten.SetWindowSize(size.W*cfg.Scale, size.H*cfg.Scale)

	err = ebiten.RunGame(game)
	stats := sim.Wait()
	fmt.Println(stats.String())
	if err != nil && !errors.Is(err, ebiten.Termination) {
		fatal(log, "viewer failed", err)
	}
}

func fatal(log *diag.Logger, msg string, err error) {
	log.Err().Err(err).Log(msg)
	os.Exit(1)
}
