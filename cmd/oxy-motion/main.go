// Command oxy-motion views, serves and plots human motion skeleton data.
//
// Usage:
//
//	oxy-motion view  [-config path] [-env path] [-file name] [-compare] [-addr addr]
//	oxy-motion serve [-config path] [-env path] [-file name] [-compare]
//	oxy-motion plot  [-config path] [-env path] -file name [-sample n] [-joint j] -out path.png
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Carmen-Shannon/oxy-motion/config"
	"github.com/Carmen-Shannon/oxy-motion/engine/motion"
	"github.com/Carmen-Shannon/oxy-motion/engine/playback"
	"github.com/Carmen-Shannon/oxy-motion/engine/registry"
	"github.com/Carmen-Shannon/oxy-motion/engine/scene"
	"github.com/Carmen-Shannon/oxy-motion/engine/viewer"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "view":
		err = runView(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "plot":
		err = runPlot(os.Args[2:])
	case "-h", "-help", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		slog.Error("oxy-motion failed", "cmd", os.Args[1], "err", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: oxy-motion <command> [flags]

commands:
  view   open the skeleton viewer window
  serve  serve motion files and the control API
  plot   plot a joint's ground-plane trajectory`)
}

// common flags shared by every command
type options struct {
	configPath string
	envPath    string
	file       string
	compare    bool
}

func (o *options) register(fs *flag.FlagSet) {
	fs.StringVar(&o.configPath, "config", "", "YAML config file")
	fs.StringVar(&o.envPath, "env", ".env", ".env file with OXY_MOTION_* overrides")
	fs.StringVar(&o.file, "file", "", "motion file name (default from config)")
	fs.BoolVar(&o.compare, "compare", false, "compare several motion files side by side")
}

// setup loads the environment and config, installs the default logger and builds the fetcher.
func (o *options) setup() (*config.Config, *slog.Logger, motion.Fetcher, error) {
	if err := config.LoadEnv(o.envPath); err != nil {
		return nil, nil, nil, err
	}
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	if o.file == "" {
		o.file = cfg.DefaultFile
	}

	var fetcher motion.Fetcher
	if cfg.MotionsURL != "" {
		fetcher = motion.NewHTTPFetcher(cfg.MotionsURL, motion.WithTimeout(cfg.FetchTimeout))
		logger.Info("fetching motions over http", "url", cfg.MotionsURL)
	} else {
		fetcher = motion.NewFileFetcher(cfg.DataDir)
	}
	return cfg, logger, fetcher, nil
}

// newApp builds the viewer state over sc and loads the initial file.
func (o *options) newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, fetcher motion.Fetcher, sc scene.Scene) viewer.App {
	mode := viewer.ModeSingle
	var reg registry.Registry
	if o.compare {
		mode = viewer.ModeCompare
		files, err := motion.ListFiles(cfg.DataDir)
		if err != nil || len(files) == 0 {
			logger.Warn("no motion files discovered, comparing the selected file only", "data_dir", cfg.DataDir, "err", err)
			files = []string{o.file}
		}
		regOptions := []registry.RegistryBuilderOption{
			registry.WithFileOptions(files...),
			registry.WithFetchTimeout(cfg.FetchTimeout),
			registry.WithLogger(logger),
		}
		if cfg.FetchWorkers > 0 {
			regOptions = append(regOptions, registry.WithFetchWorkers(cfg.FetchWorkers))
		}
		reg = registry.NewRegistry(sc, fetcher, regOptions...)
	}

	appOptions := []viewer.AppBuilderOption{
		viewer.WithMode(mode),
		viewer.WithLogger(logger),
		viewer.WithClock(playback.NewClock(playback.WithFPS(cfg.Viewer.FPS))),
	}
	if reg != nil {
		appOptions = append(appOptions, viewer.WithRegistry(reg))
	}
	app := viewer.NewApp(sc, fetcher, appOptions...)

	// A failed initial load leaves an empty viewer; L retries.
	if err := app.Load(ctx, o.file); err != nil {
		logger.Warn("initial load failed", "file", o.file, "err", err)
	}
	return app
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
