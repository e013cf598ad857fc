// Package plot renders joint trajectories of a motion sample to image files.
package plot

import (
	"errors"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/Carmen-Shannon/oxy-motion/engine/motion"
)

// ErrJoint is returned for a joint index outside the skeleton.
var ErrJoint = errors.New("plot: joint index out of range")

// TrajectoryXYs projects a joint's path onto the ground plane as (x, z) points in frame order.
//
// Parameters:
//   - sample: the motion sample
//   - joint: the joint index
//
// Returns:
//   - plotter.XYs: one point per frame
//   - error: ErrJoint if the joint does not exist
func TrajectoryXYs(sample motion.Sample, joint int) (plotter.XYs, error) {
	if joint < 0 || joint >= len(sample) {
		return nil, fmt.Errorf("%w: %d", ErrJoint, joint)
	}
	path := sample.Trajectory(joint)
	pts := make(plotter.XYs, len(path))
	for i, p := range path {
		pts[i] = plotter.XY{X: float64(p[0]), Y: float64(p[2])}
	}
	return pts, nil
}

// Trajectory saves a scatter and line plot of a joint's ground-plane path. The image format
// follows the file extension of path (png, svg, pdf, ...).
//
// Parameters:
//   - sample: the motion sample
//   - joint: the joint index
//   - title: the plot title
//   - path: the output file
//
// Returns:
//   - error: error if the sample is empty, the joint is unknown or the file cannot be written
func Trajectory(sample motion.Sample, joint int, title, path string) error {
	pts, err := TrajectoryXYs(sample, joint)
	if err != nil {
		return err
	}
	if len(pts) == 0 {
		return fmt.Errorf("plot: sample has no frames")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "z"
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("plot: line: %w", err)
	}
	line.Color = color.RGBA{B: 255, A: 255}

	s, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("plot: scatter: %w", err)
	}
	s.GlyphStyle.Color = color.RGBA{R: 255, A: 255}
	s.GlyphStyle.Radius = vg.Points(2)
	p.Add(line, s)

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("plot: save %s: %w", path, err)
	}
	return nil
}
