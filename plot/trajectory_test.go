package plot_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-motion/engine/motion/motiontest"
	"github.com/Carmen-Shannon/oxy-motion/plot"
)

func TestTrajectoryXYs(t *testing.T) {
	s := motiontest.Sample(4, 0)
	pts, err := plot.TrajectoryXYs(s, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(pts) != 4 {
		t.Fatalf("len = %d", len(pts))
	}
	for f, p := range pts {
		want := s.Position(3, f)
		if p.X != float64(want[0]) || p.Y != float64(want[2]) {
			t.Errorf("frame %d = (%v, %v), want (%v, %v)", f, p.X, p.Y, want[0], want[2])
		}
	}

	if _, err := plot.TrajectoryXYs(s, 22); !errors.Is(err, plot.ErrJoint) {
		t.Errorf("joint 22 err = %v", err)
	}
}

func TestTrajectoryWritesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "root.png")
	if err := plot.Trajectory(motiontest.Sample(10, 0), 0, "root", path); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(b, []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}
}
