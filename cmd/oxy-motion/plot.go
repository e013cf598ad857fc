package main

import (
	"flag"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-motion/engine/skeleton"
	"github.com/Carmen-Shannon/oxy-motion/plot"
)

func runPlot(args []string) error {
	var o options
	var sample, joint int
	var out string
	fs := flag.NewFlagSet("plot", flag.ContinueOnError)
	o.register(fs)
	fs.IntVar(&sample, "sample", 0, "sample index")
	fs.IntVar(&joint, "joint", skeleton.RootJoint, "joint index (0 = pelvis)")
	fs.StringVar(&out, "out", "", "output image (default <file>_s<sample>_j<joint>.png)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	_, logger, fetcher, err := o.setup()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	src, err := fetcher.Fetch(ctx, o.file)
	if err != nil {
		return err
	}
	s, ok := src.Sample(sample)
	if !ok {
		return fmt.Errorf("plot: %s has %d samples, no sample %d", o.file, src.Len(), sample)
	}
	if out == "" {
		base := strings.TrimSuffix(filepath.Base(o.file), filepath.Ext(o.file))
		out = fmt.Sprintf("%s_s%d_j%d.png", base, sample, joint)
	}

	title := fmt.Sprintf("%s sample %d joint %d", o.file, sample, joint)
	if err := plot.Trajectory(s, joint, title, out); err != nil {
		return err
	}
	logger.Info("trajectory plotted", "file", o.file, "sample", sample, "joint", joint, "out", out)
	return nil
}
