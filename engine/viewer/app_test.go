package viewer_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/Carmen-Shannon/oxy-motion/common"
	"github.com/Carmen-Shannon/oxy-motion/engine/camera"
	"github.com/Carmen-Shannon/oxy-motion/engine/motion"
	"github.com/Carmen-Shannon/oxy-motion/engine/motion/motiontest"
	"github.com/Carmen-Shannon/oxy-motion/engine/scene"
	"github.com/Carmen-Shannon/oxy-motion/engine/skeleton"
	"github.com/Carmen-Shannon/oxy-motion/engine/viewer"
)

const objectsPerView = skeleton.JointCount + skeleton.BoneCount

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newSingle(t *testing.T, options ...viewer.AppBuilderOption) (viewer.App, scene.Scene, string) {
	t.Helper()
	dir := t.TempDir()
	motiontest.WriteFile(t, dir, "a.json",
		[]motion.Sample{motiontest.Sample(5, 0), motiontest.Sample(3, 100)},
		[]string{"walk", ""},
	)
	sc := scene.NewScene("test")
	options = append([]viewer.AppBuilderOption{viewer.WithLogger(quiet)}, options...)
	app := viewer.NewApp(sc, motion.NewFileFetcher(dir), options...)
	t.Cleanup(app.Close)
	if err := app.Load(context.Background(), "a.json"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return app, sc, dir
}

func TestSingleLoadAndScrub(t *testing.T) {
	app, sc, _ := newSingle(t)

	st := app.State()
	if st.Mode != viewer.ModeSingle || st.File != "a.json" || st.SampleCount != 2 {
		t.Fatalf("state = %+v", st)
	}
	if st.Prompt != "Prompt: walk" || st.MinFrame != 0 || st.MaxFrame != 4 || st.Frame != 0 {
		t.Errorf("state = %+v", st)
	}
	if got := sc.Count(); got != objectsPerView {
		t.Errorf("scene count = %d, want %d", got, objectsPerView)
	}
	if sc.Camera() == nil {
		t.Error("no orbit camera attached to the scene")
	}

	// T=5, frame 6 lands on frame 1
	if got := app.Scrub(6); got != 1 {
		t.Errorf("Scrub(6) = %d, want 1", got)
	}
}

func TestSampleNavigationClamps(t *testing.T) {
	app, _, _ := newSingle(t)

	if got := app.PrevSample(); got != 0 {
		t.Fatalf("PrevSample at 0 = %d", got)
	}
	app.Scrub(3)
	if got := app.NextSample(); got != 1 {
		t.Fatalf("NextSample = %d, want 1", got)
	}
	st := app.State()
	if st.Frame != 0 || st.MaxFrame != 2 || st.Prompt != "Prompt: -" {
		t.Errorf("after NextSample: %+v", st)
	}
	if got := app.NextSample(); got != 1 {
		t.Errorf("NextSample past end = %d, want 1", got)
	}
}

func TestUpdateAdvancesAtMostOneFrame(t *testing.T) {
	app, _, _ := newSingle(t)

	app.Update(0.2)
	if f := app.State().Frame; f != 0 {
		t.Fatalf("paused Update moved to frame %d", f)
	}
	app.SetPlaying(true)
	app.Update(0.2)
	if f := app.State().Frame; f != 1 {
		t.Fatalf("Update(0.2) frame = %d, want 1", f)
	}
	if playing := app.TogglePlay(); playing || app.State().Playing {
		t.Fatal("TogglePlay did not pause")
	}
}

func TestLoadFailureKeepsState(t *testing.T) {
	app, sc, _ := newSingle(t)
	app.Scrub(2)

	err := app.Load(context.Background(), "missing.json")
	if err == nil {
		t.Fatal("Load of a missing file succeeded")
	}
	st := app.State()
	if st.File != "a.json" || st.Frame != 2 || st.SampleCount != 2 || st.Error == "" {
		t.Errorf("state after failed load = %+v", st)
	}
	if got := sc.Count(); got != objectsPerView {
		t.Errorf("scene count = %d, want %d", got, objectsPerView)
	}

	if err := app.Load(context.Background(), "../a.json"); !errors.Is(err, motion.ErrPathTraversal) {
		t.Errorf("traversal err = %v", err)
	}
}

func TestEstimatedCameraWithoutExtrinsics(t *testing.T) {
	app, sc, _ := newSingle(t, viewer.WithFrustumVisible(true))
	app.Update(0)

	st := app.State()
	if st.Estimated == nil || *st.Estimated != camera.IdentityTransform() {
		t.Fatalf("estimated = %+v, want identity", st.Estimated)
	}
	if st.Follow == nil {
		t.Fatal("no follow pose")
	}
	if got := len(sc.HelperLines(viewer.FrustumHelper)); got != 12 {
		t.Errorf("frustum lines = %d, want 12", got)
	}
}

func TestEstimatedCameraFromExtrinsics(t *testing.T) {
	dir := t.TempDir()
	doc := map[string]any{
		"motions": [][][][]float32{motiontest.Raw(motiontest.Sample(4, 0))},
		// camera at z=2 looking down -Z, row-major world-to-camera
		"E": [][][4][4]float32{{{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, -2}, {0, 0, 0, 1}}}},
	}
	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "cam.json"), b, 0o644); err != nil {
		t.Fatal(err)
	}

	sc := scene.NewScene("test")
	app := viewer.NewApp(sc, motion.NewFileFetcher(dir), viewer.WithLogger(quiet))
	t.Cleanup(app.Close)
	if err := app.Load(context.Background(), "cam.json"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	st := app.State()
	if st.Estimated == nil {
		t.Fatal("no estimated pose")
	}
	want := [3]float32{0, 0, 2}
	for i := range want {
		if math.Abs(float64(st.Estimated.Position[i]-want[i])) > 1e-5 {
			t.Fatalf("estimated position = %v, want %v", st.Estimated.Position, want)
		}
	}
	if !st.RootInView {
		t.Error("root joint reported outside the estimated camera frustum")
	}
	if lines := sc.HelperLines(viewer.FrustumHelper); lines != nil {
		t.Errorf("frustum drawn while hidden: %d lines", len(lines))
	}
}

func TestHandleKey(t *testing.T) {
	app, sc, _ := newSingle(t)
	ctx := context.Background()

	if !app.HandleKey(ctx, common.KeySpace) || !app.State().Playing {
		t.Fatal("space did not start playback")
	}
	app.HandleKey(ctx, common.KeyRight)
	if f := app.State().Frame; f != 1 {
		t.Errorf("right arrow frame = %d", f)
	}
	app.HandleKey(ctx, common.KeyLeft)
	app.HandleKey(ctx, common.KeyLeft)
	if f := app.State().Frame; f != 4 {
		t.Errorf("left arrow from 0 = %d, want 4", f)
	}
	app.HandleKey(ctx, common.KeyDown)
	if s := app.State().Sample; s != 1 {
		t.Errorf("down arrow sample = %d", s)
	}
	app.HandleKey(ctx, common.KeyUp)
	if s := app.State().Sample; s != 0 {
		t.Errorf("up arrow sample = %d", s)
	}

	orbit := sc.Camera()
	app.HandleKey(ctx, common.KeyC)
	if st := app.State(); st.View != viewer.ViewFollow || sc.Camera() == orbit {
		t.Errorf("view after C = %v", st.View)
	}
	app.HandleKey(ctx, common.KeyC)
	app.HandleKey(ctx, common.KeyC)
	if sc.Camera() != orbit {
		t.Error("cycling views did not return to the orbit camera")
	}

	before := orbit.Position()
	app.HandleKey(ctx, common.KeyE)
	if after := orbit.Position(); after[1] <= before[1] {
		t.Errorf("E did not raise the camera: %v -> %v", before, after)
	}

	if app.HandleKey(ctx, 999) {
		t.Error("unbound key reported handled")
	}
}

func newCompare(t *testing.T) (viewer.App, scene.Scene) {
	t.Helper()
	dir := t.TempDir()
	motiontest.WriteFile(t, dir, "a.json", []motion.Sample{motiontest.Sample(4, 0)}, nil)
	motiontest.WriteFile(t, dir, "b.json", []motion.Sample{motiontest.Sample(6, 10)}, nil)
	sc := scene.NewScene("test")
	app := viewer.NewApp(sc, motion.NewFileFetcher(dir),
		viewer.WithMode(viewer.ModeCompare),
		viewer.WithFileOptions("a.json", "b.json"),
		viewer.WithLogger(quiet),
	)
	t.Cleanup(app.Close)
	return app, sc
}

func TestCompareSlots(t *testing.T) {
	app, sc := newCompare(t)
	ctx := context.Background()

	if err := app.Load(ctx, "a.json"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if idx, err := app.AddSlot(ctx); err != nil || idx != 1 {
		t.Fatalf("AddSlot = (%d, %v)", idx, err)
	}
	if err := app.SetSlotFile(ctx, 1, "b.json"); err != nil {
		t.Fatalf("SetSlotFile: %v", err)
	}
	st := app.State()
	if len(st.Slots) != 2 || st.Slots[1].File != "b.json" || st.MaxFrame != 3 {
		t.Fatalf("state = %+v", st)
	}
	if got := sc.Count(); got != 2*objectsPerView {
		t.Errorf("scene count = %d", got)
	}

	app.HandleKey(ctx, common.Key1+1)
	if app.State().Slots[1].Visible {
		t.Error("digit 2 did not hide slot 2")
	}
	app.HandleKey(ctx, common.KeyMinus)
	if n := len(app.State().Slots); n != 1 {
		t.Errorf("slots after minus = %d", n)
	}
	if got := app.NextSample(); got != 0 {
		t.Errorf("NextSample in compare mode = %d", got)
	}
	if app.CycleView() != viewer.ViewOrbit {
		t.Error("compare mode left the orbit camera")
	}
}

func TestAddThenRemoveRestoresSlots(t *testing.T) {
	app, _ := newCompare(t)
	ctx := context.Background()

	app.AddSlot(ctx)
	app.AddSlot(ctx)
	app.SetSlotFile(ctx, 1, "b.json")
	app.SetSlotColor(0, common.ColorBlue, common.ColorRed)
	before := app.State().Slots

	app.AddSlot(ctx)
	if !app.RemoveLastSlot(ctx) {
		t.Fatal("RemoveLastSlot removed nothing")
	}
	after := app.State().Slots
	if len(after) != len(before) {
		t.Fatalf("slot count %d, want %d", len(after), len(before))
	}
	for i := range before {
		if after[i].ID != before[i].ID || after[i].File != before[i].File || after[i].Colors != before[i].Colors {
			t.Errorf("slot %d = %+v, want %+v", i, after[i], before[i])
		}
	}
}

func TestModeErrors(t *testing.T) {
	app, _, _ := newSingle(t)
	ctx := context.Background()
	if _, err := app.AddSlot(ctx); !errors.Is(err, viewer.ErrMode) {
		t.Errorf("AddSlot err = %v", err)
	}
	if err := app.SetSlotVisible(0, false); !errors.Is(err, viewer.ErrMode) {
		t.Errorf("SetSlotVisible err = %v", err)
	}
	if app.RemoveLastSlot(ctx) {
		t.Error("RemoveLastSlot in single mode reported a removal")
	}
}

func TestSingleModeHasNoRegistry(t *testing.T) {
	app, _, _ := newSingle(t)
	if app.Registry() != nil {
		t.Error("single mode built a slot registry")
	}

	cmp, _ := newCompare(t)
	if cmp.Registry() == nil {
		t.Error("compare mode has no slot registry")
	}
}

// drawWhile reads the scene's line geometry until edit returns and reports every read that matches
// none of the allowed vertex lists.
func drawWhile(t *testing.T, sc scene.Scene, allowed [][]common.Vertex, edit func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		edit()
	}()

	draws, torn := 0, 0
	for {
		select {
		case <-done:
			if torn > 0 {
				t.Errorf("%d of %d draws saw a partly written scene", torn, draws)
			}
			return
		default:
		}
		got := sc.LineVertices()
		draws++
		if !slices.ContainsFunc(allowed, func(want []common.Vertex) bool { return slices.Equal(got, want) }) {
			torn++
		}
	}
}

func TestDrawNeverSeesPartialPose(t *testing.T) {
	const rounds = 2000
	ctx := context.Background()

	t.Run("single scrub", func(t *testing.T) {
		app, sc, _ := newSingle(t)
		sc.SetGridVisible(false)
		app.Scrub(0)
		frame0 := sc.LineVertices()
		app.Scrub(1)
		frame1 := sc.LineVertices()
		if slices.Equal(frame0, frame1) {
			t.Fatal("frames 0 and 1 draw the same geometry")
		}

		drawWhile(t, sc, [][]common.Vertex{frame0, frame1}, func() {
			for i := range rounds {
				app.Scrub(i % 2)
			}
		})
	})

	t.Run("single reload", func(t *testing.T) {
		app, sc, _ := newSingle(t)
		sc.SetGridVisible(false)
		frame0 := sc.LineVertices()

		drawWhile(t, sc, [][]common.Vertex{frame0}, func() {
			for range rounds / 20 {
				if err := app.Reload(ctx); err != nil {
					t.Errorf("Reload: %v", err)
					return
				}
			}
		})
	})

	t.Run("compare scrub", func(t *testing.T) {
		app, sc := newCompare(t)
		sc.SetGridVisible(false)
		app.Load(ctx, "a.json")
		app.AddSlot(ctx)
		app.SetSlotFile(ctx, 1, "b.json")
		app.Scrub(0)
		frame0 := sc.LineVertices()
		app.Scrub(1)
		frame1 := sc.LineVertices()

		drawWhile(t, sc, [][]common.Vertex{frame0, frame1}, func() {
			for i := range rounds {
				app.Scrub(i % 2)
			}
		})
	})
}
