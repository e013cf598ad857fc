package main

import (
	"context"
	"flag"
	"fmt"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-motion/common"
	"github.com/Carmen-Shannon/oxy-motion/engine"
	"github.com/Carmen-Shannon/oxy-motion/engine/camera"
	"github.com/Carmen-Shannon/oxy-motion/engine/renderer"
	"github.com/Carmen-Shannon/oxy-motion/engine/scene"
	"github.com/Carmen-Shannon/oxy-motion/engine/viewer"
	"github.com/Carmen-Shannon/oxy-motion/engine/window"
	"github.com/Carmen-Shannon/oxy-motion/server"
)

// GLFW must be driven from the main thread.
func init() {
	runtime.LockOSThread()
}

func runView(args []string) error {
	var o options
	var addr string
	fs := flag.NewFlagSet("view", flag.ContinueOnError)
	o.register(fs)
	fs.StringVar(&addr, "addr", "", "also serve the control API on this address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, logger, fetcher, err := o.setup()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	win, err := window.NewWindow(
		window.WithTitle(cfg.Viewer.Title),
		window.WithSize(cfg.Viewer.Width, cfg.Viewer.Height),
	)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	defer win.Close()

	present := renderer.PresentModeVSync
	if !cfg.Viewer.VSync {
		present = renderer.PresentModeUncapped
	}
	msaa := renderer.MSAAOff
	if cfg.Viewer.MSAA {
		msaa = renderer.MSAA4x
	}
	rend, err := renderer.NewRenderer(renderer.BackendTypeWGPU, win,
		renderer.WithPresentMode(present),
		renderer.WithMSAA(msaa),
		renderer.WithClearColor(common.ColorBackground),
	)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	defer rend.Release()

	cam := camera.NewCamera(
		camera.WithFovDegrees(45),
		camera.WithAspect(float32(win.Width())/float32(max(win.Height(), 1))),
		camera.WithNear(0.1),
		camera.WithFar(1000),
		camera.WithController(camera.NewCameraController(
			camera.WithTarget(0, 0, 0),
			camera.WithEye(0, 2, 3),
			camera.WithRadiusBounds(0.5, 100),
		)),
	)
	sc := scene.NewScene("motion",
		scene.WithActive(true),
		scene.WithCamera(cam),
		scene.WithBackground(common.ColorBackground),
	)

	app := o.newApp(ctx, cfg, logger, fetcher, sc)
	defer app.Close()

	eng := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithRenderer(rend),
		engine.WithScene(0, sc),
		engine.WithUpdateCallback(app.Update),
		engine.WithProfiling(cfg.Viewer.Profiling),
		engine.WithRenderFrameLimit(cfg.Viewer.FrameLimit),
		engine.WithLogger(logger),
	)

	bindInput(ctx, win, app)
	win.SetUpdateCallback(titleUpdater(win, cfg.Viewer.Title, app))

	if addr != "" {
		srv := server.NewServer(cfg.DataDir,
			server.WithAddr(addr),
			server.WithApp(app),
			server.WithLogger(logger),
		)
		go func() {
			if err := srv.Start(ctx); err != nil {
				logger.Error("control server stopped", "err", err)
			}
		}()
	}
	go func() {
		select {
		case <-ctx.Done():
			win.RequestClose()
		case <-eng.Done():
		}
	}()

	logger.Info("viewer started", "file", o.file, "mode", app.Mode())
	eng.Run()
	return nil
}

// bindInput routes window input to the app. Keys are handled in order on one goroutine so a
// slow reload never blocks the message loop.
func bindInput(ctx context.Context, win window.Window, app viewer.App) {
	keys := make(chan int, 64)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case k := <-keys:
				app.HandleKey(ctx, k)
			}
		}
	}()

	win.SetKeyDownCallback(func(keyCode int) {
		select {
		case keys <- keyCode:
		default:
		}
	})
	win.SetMouseDragCallback(func(button int, dx, dy float32) {
		if button == common.MouseButtonLeft {
			app.Orbit(dx, dy)
		}
	})
	win.SetScrollCallback(app.Zoom)
}

// titleUpdater mirrors the prompt and frame into the title bar, at most ten times a second.
func titleUpdater(win window.Window, base string, app viewer.App) func() {
	var last string
	var next time.Time
	return func() {
		now := time.Now()
		if now.Before(next) {
			return
		}
		next = now.Add(100 * time.Millisecond)

		st := app.State()
		title := fmt.Sprintf("%s | %s | frame %d/%d", base, st.Prompt, st.Frame, st.MaxFrame)
		if st.Mode == viewer.ModeSingle {
			title = fmt.Sprintf("%s | %s | sample %d/%d | frame %d/%d", base, st.Prompt, st.Sample+1, st.SampleCount, st.Frame, st.MaxFrame)
		}
		if st.Error != "" {
			title += " | " + st.Error
		}
		if title != last {
			win.SetTitle(title)
			last = title
		}
	}
}
