package main

import (
	"flag"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-motion/engine"
	"github.com/Carmen-Shannon/oxy-motion/engine/scene"
	"github.com/Carmen-Shannon/oxy-motion/server"
)

// headlessTickRate is how often the served viewer advances playback.
const headlessTickRate = 60

func runServe(args []string) error {
	var o options
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	o.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, logger, fetcher, err := o.setup()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	// No window or renderer: the engine only drives playback for the control API.
	sc := scene.NewScene("motion", scene.WithActive(true))
	app := o.newApp(ctx, cfg, logger, fetcher, sc)
	defer app.Close()

	eng := engine.NewEngine(
		engine.WithScene(0, sc),
		engine.WithUpdateCallback(app.Update),
		engine.WithRenderFrameLimit(headlessTickRate),
		engine.WithLogger(logger),
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		eng.Run()
	}()

	srv := server.NewServer(cfg.DataDir,
		server.WithAddr(cfg.Server.Addr),
		server.WithApp(app),
		server.WithLogger(logger),
	)
	err = srv.Start(ctx)
	eng.Quit()
	wg.Wait()
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
