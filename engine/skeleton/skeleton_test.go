package skeleton_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-motion/common"
	"github.com/Carmen-Shannon/oxy-motion/engine/motion"
	"github.com/Carmen-Shannon/oxy-motion/engine/motion/motiontest"
	"github.com/Carmen-Shannon/oxy-motion/engine/scene"
	"github.com/Carmen-Shannon/oxy-motion/engine/skeleton"
)

func TestTopology(t *testing.T) {
	seen := make(map[[2]int]bool)
	for i, pair := range skeleton.Bones {
		if pair[0] < 0 || pair[0] >= skeleton.JointCount || pair[1] < 0 || pair[1] >= skeleton.JointCount {
			t.Fatalf("bone %d joins out-of-range joints %v", i, pair)
		}
		if seen[pair] {
			t.Fatalf("bone %d duplicates %v", i, pair)
		}
		seen[pair] = true
	}
	if skeleton.Bones[12] != [2]int{12, 15} || skeleton.Bones[20] != [2]int{19, 21} {
		t.Errorf("unexpected bone order: %v", skeleton.Bones)
	}
}

func TestNewRegistersObjects(t *testing.T) {
	sc := scene.NewScene("test")
	v := skeleton.New(sc, common.ColorRed, common.ColorBlue)
	if got := sc.Count(); got != skeleton.JointCount+skeleton.BoneCount {
		t.Fatalf("scene count = %d, want %d", got, skeleton.JointCount+skeleton.BoneCount)
	}
	v.Destroy()
	if got := sc.Count(); got != 0 {
		t.Fatalf("scene count after Destroy = %d, want 0", got)
	}
	v.Destroy()
	if v.Built() {
		t.Error("Built = true after Destroy")
	}
}

func TestUpdatePoseReadBack(t *testing.T) {
	sc := scene.NewScene("test")
	v := skeleton.New(sc, common.ColorRed, common.ColorBlue)
	sample := motiontest.Sample(5, 10)

	for f := 0; f < 5; f++ {
		v.UpdatePose(sample, f)
		for j := 0; j < skeleton.JointCount; j++ {
			p := v.JointPosition(j)
			for a := 0; a < motion.AxisCount; a++ {
				if want := sample[j][a][f]; p[a] != want {
					t.Fatalf("frame %d joint %d axis %d = %v, want %v", f, j, a, p[a], want)
				}
			}
		}
		for i, pair := range skeleton.Bones {
			a, b := v.BoneEndpoints(i)
			if a != v.JointPosition(pair[0]) || b != v.JointPosition(pair[1]) {
				t.Fatalf("frame %d bone %d endpoints %v %v do not match joints %v", f, i, a, b, pair)
			}
		}
	}
}

func TestUpdatePoseIdempotent(t *testing.T) {
	sc := scene.NewScene("test")
	v := skeleton.New(sc, common.ColorRed, common.ColorBlue)
	sample := motiontest.Sample(3, 0)

	v.UpdatePose(sample, 2)
	first := sc.LineVertices()
	v.UpdatePose(sample, 2)
	second := sc.LineVertices()
	if len(first) != len(second) {
		t.Fatalf("vertex count changed: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("vertex %d changed: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestUpdatePoseWrapsFrame(t *testing.T) {
	sc := scene.NewScene("test")
	v := skeleton.New(sc, common.ColorRed, common.ColorBlue)
	sample := motiontest.Sample(5, 0)

	v.UpdatePose(sample, 6)
	got := v.JointPosition(4)
	want := sample.Position(4, 1)
	if got != want {
		t.Fatalf("frame 6 of 5 = %v, want frame 1 %v", got, want)
	}
}

func TestUpdatePoseNoOps(t *testing.T) {
	sc := scene.NewScene("test")
	v := skeleton.New(sc, common.ColorRed, common.ColorBlue)
	sample := motiontest.Sample(2, 1)
	v.UpdatePose(sample, 0)
	before := v.Root()

	v.UpdatePose(nil, 1)
	if v.Root() != before {
		t.Error("nil sample changed the pose")
	}

	v.Destroy()
	v.UpdatePose(sample, 1)
	if sc.Count() != 0 {
		t.Error("UpdatePose on destroyed view re-registered objects")
	}
}

func TestSetColorsAndVisibility(t *testing.T) {
	sc := scene.NewScene("test", scene.WithGrid(0, 0), scene.WithAxes(0))
	v := skeleton.New(sc, common.ColorRed, common.ColorBlue)
	v.SetColors(0x00ff00, 0xffff00)

	j, b := v.Colors()
	if j != 0x00ff00 || b != 0xffff00 {
		t.Fatalf("Colors = %v %v", j, b)
	}
	green := common.Color(0x00ff00).RGB()
	yellow := common.Color(0xffff00).RGB()
	var greens, yellows int
	for _, vert := range sc.LineVertices() {
		switch vert.Color {
		case green:
			greens++
		case yellow:
			yellows++
		default:
			t.Fatalf("unexpected vertex color %v", vert.Color)
		}
	}
	// markers are three crossing lines, bones one line, two vertices each
	if greens != skeleton.JointCount*6 || yellows != skeleton.BoneCount*2 {
		t.Fatalf("greens=%d yellows=%d", greens, yellows)
	}

	v.SetVisible(false)
	if v.Visible() {
		t.Error("Visible = true after SetVisible(false)")
	}
	if n := len(sc.LineVertices()); n != 0 {
		t.Fatalf("hidden view still drew %d vertices", n)
	}
	v.SetVisible(true)
	if n := len(sc.LineVertices()); n == 0 {
		t.Fatal("visible view drew nothing")
	}
}
