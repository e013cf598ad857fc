package registry_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-motion/common"
	"github.com/Carmen-Shannon/oxy-motion/engine/motion"
	"github.com/Carmen-Shannon/oxy-motion/engine/motion/motiontest"
	"github.com/Carmen-Shannon/oxy-motion/engine/registry"
	"github.com/Carmen-Shannon/oxy-motion/engine/scene"
	"github.com/Carmen-Shannon/oxy-motion/engine/skeleton"
)

const objectsPerView = skeleton.JointCount + skeleton.BoneCount

type fakeFetcher struct {
	mu      sync.Mutex
	sources map[string]*motion.Source
	calls   map[string]int
	block   map[string]chan struct{}
	started chan string
}

func newFakeFetcher(t *testing.T, frames map[string]int) *fakeFetcher {
	t.Helper()
	f := &fakeFetcher{
		sources: make(map[string]*motion.Source),
		calls:   make(map[string]int),
		block:   make(map[string]chan struct{}),
		started: make(chan string, 64),
	}
	for name, n := range frames {
		src, err := motion.NewSource(name, []motion.Sample{motiontest.Sample(n, 0)}, []string{"walk " + name})
		if err != nil {
			t.Fatalf("NewSource(%s): %v", name, err)
		}
		f.sources[name] = src
	}
	return f
}

func (f *fakeFetcher) Fetch(ctx context.Context, name string) (*motion.Source, error) {
	f.mu.Lock()
	f.calls[name]++
	gate := f.block[name]
	src, ok := f.sources[name]
	f.mu.Unlock()

	f.started <- name
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if !ok {
		return nil, fmt.Errorf("fetch %s: not found", name)
	}
	return src, nil
}

func (f *fakeFetcher) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func newRegistry(t *testing.T, f *fakeFetcher, options ...registry.RegistryBuilderOption) (registry.Registry, scene.Scene) {
	t.Helper()
	sc := scene.NewScene("test")
	options = append([]registry.RegistryBuilderOption{
		registry.WithFileOptions("a.json", "b.json"),
		registry.WithFetchWorkers(2),
		registry.WithFetchTimeout(5 * time.Second),
	}, options...)
	r := registry.NewRegistry(sc, f, options...)
	t.Cleanup(r.Close)
	return r, sc
}

func drain(f *fakeFetcher) {
	for {
		select {
		case <-f.started:
		default:
			return
		}
	}
}

func TestAddSlotLoads(t *testing.T) {
	f := newFakeFetcher(t, map[string]int{"a.json": 4, "b.json": 6})
	r, sc := newRegistry(t, f)

	idx, err := r.AddSlot(context.Background(), "")
	if err != nil || idx != 0 {
		t.Fatalf("AddSlot = (%d, %v)", idx, err)
	}
	if got := sc.Count(); got != objectsPerView {
		t.Fatalf("scene count = %d, want %d", got, objectsPerView)
	}
	if got := r.FrameCount(); got != 4 {
		t.Errorf("FrameCount = %d, want 4", got)
	}

	snap := r.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("snapshot len = %d", len(snap))
	}
	s := snap[0]
	if s.File != "a.json" || !s.Loaded || !s.Visible || s.Frames != 4 || s.Error != "" || s.ID == "" {
		t.Errorf("slot state = %+v", s)
	}
	if s.Colors.Joint != common.ColorRed || s.Colors.Bone != common.ColorBlue {
		t.Errorf("first slot colors = %+v, want red on blue", s.Colors)
	}

	if _, err := r.AddSlot(context.Background(), "b.json"); err != nil {
		t.Fatalf("AddSlot(b.json): %v", err)
	}
	snap = r.Snapshot()
	if snap[1].Colors == snap[0].Colors {
		t.Errorf("second slot reused the first palette entry")
	}
	if snap[0].ID == snap[1].ID {
		t.Errorf("slot ids collide: %s", snap[0].ID)
	}
}

func TestAddSlotWithoutOptions(t *testing.T) {
	f := newFakeFetcher(t, nil)
	r := registry.NewRegistry(scene.NewScene("test"), f)
	t.Cleanup(r.Close)
	if _, err := r.AddSlot(context.Background(), ""); !errors.Is(err, registry.ErrNoFileOptions) {
		t.Fatalf("err = %v, want ErrNoFileOptions", err)
	}
}

func TestSlotsShareSource(t *testing.T) {
	f := newFakeFetcher(t, map[string]int{"a.json": 4})
	r, sc := newRegistry(t, f)

	for range 2 {
		if _, err := r.AddSlot(context.Background(), "a.json"); err != nil {
			t.Fatalf("AddSlot: %v", err)
		}
	}
	// one fetch per reload, not per slot
	if got := f.Calls("a.json"); got != 2 {
		t.Errorf("fetch calls = %d, want 2", got)
	}
	if got := r.SourceRefs("a.json"); got != 2 {
		t.Errorf("SourceRefs = %d, want 2", got)
	}
	if got := sc.Count(); got != 2*objectsPerView {
		t.Errorf("scene count = %d, want %d", got, 2*objectsPerView)
	}
	views := r.Views()
	if len(views) != 2 || views[0] == views[1] {
		t.Fatal("slots sharing a file must keep separate views")
	}
}

func TestRemoveLastSlot(t *testing.T) {
	f := newFakeFetcher(t, map[string]int{"a.json": 4, "b.json": 6})
	r, sc := newRegistry(t, f)

	if r.RemoveLastSlot(context.Background()) {
		t.Fatal("RemoveLastSlot on empty registry reported a removal")
	}
	r.AddSlot(context.Background(), "a.json")
	r.AddSlot(context.Background(), "b.json")
	if !r.RemoveLastSlot(context.Background()) {
		t.Fatal("RemoveLastSlot reported nothing removed")
	}
	if r.Len() != 1 || sc.Count() != objectsPerView {
		t.Fatalf("after remove: len %d, scene count %d", r.Len(), sc.Count())
	}
	if r.Snapshot()[0].File != "a.json" {
		t.Errorf("wrong slot removed: %+v", r.Snapshot())
	}
	if got := r.SourceRefs("b.json"); got != 0 {
		t.Errorf("SourceRefs(b.json) = %d after removal", got)
	}
}

func TestFailedFetchKeepsView(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f := newFakeFetcher(t, map[string]int{"a.json": 4})
	r, sc := newRegistry(t, f, registry.WithLogger(logger))

	r.AddSlot(context.Background(), "a.json")
	before := r.Views()[0]

	if err := r.SetSlotFile(context.Background(), 0, "missing.json"); err != nil {
		t.Fatalf("SetSlotFile: %v", err)
	}
	s := r.Snapshot()[0]
	if s.File != "a.json" || s.Error == "" || !s.Loaded || s.Frames != 4 {
		t.Errorf("slot state after failed fetch = %+v", s)
	}
	if views := r.Views(); len(views) != 1 || views[0] != before {
		t.Error("failed fetch replaced the previous view")
	}
	if got := sc.Count(); got != objectsPerView {
		t.Errorf("scene count = %d, want %d", got, objectsPerView)
	}
	if !strings.Contains(logs.String(), "motion fetch failed") {
		t.Errorf("no warning logged: %q", logs.String())
	}

	if err := r.SetSlotFile(context.Background(), 0, "a.json"); err != nil {
		t.Fatalf("SetSlotFile: %v", err)
	}
	if s := r.Snapshot()[0]; s.Error != "" {
		t.Errorf("error not cleared after successful reload: %q", s.Error)
	}
}

func TestFailedFileChangeIsNotRetried(t *testing.T) {
	f := newFakeFetcher(t, map[string]int{"a.json": 4, "b.json": 6})
	r, _ := newRegistry(t, f)
	r.AddSlot(context.Background(), "a.json")
	r.SetSlotFile(context.Background(), 0, "missing.json")

	r.LoadAll(context.Background())
	f.mu.Lock()
	missing, kept := f.calls["missing.json"], f.calls["a.json"]
	f.mu.Unlock()
	if missing != 1 {
		t.Errorf("missing.json fetched %d times, want 1", missing)
	}
	if kept != 2 {
		t.Errorf("a.json fetched %d times, want 2", kept)
	}
	if s := r.Snapshot()[0]; s.File != "a.json" || s.Error != "" || s.Frames != 4 {
		t.Errorf("slot state after reload = %+v", s)
	}

	if err := r.SetSlotFile(context.Background(), 0, "b.json"); err != nil {
		t.Fatalf("SetSlotFile: %v", err)
	}
	if s := r.Snapshot()[0]; s.File != "b.json" || s.Frames != 6 {
		t.Errorf("slot state after file change = %+v", s)
	}
}

func TestSlotIndexErrors(t *testing.T) {
	f := newFakeFetcher(t, map[string]int{"a.json": 4})
	r, _ := newRegistry(t, f)
	r.AddSlot(context.Background(), "")

	tests := []struct {
		name string
		call func() error
	}{
		{"file negative", func() error { return r.SetSlotFile(context.Background(), -1, "a.json") }},
		{"file past end", func() error { return r.SetSlotFile(context.Background(), 1, "a.json") }},
		{"visible past end", func() error { return r.SetSlotVisible(3, true) }},
		{"color negative", func() error { return r.SetSlotColor(-2, common.ColorRed, common.ColorBlue) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, registry.ErrSlotIndex) {
				t.Fatalf("err = %v, want ErrSlotIndex", err)
			}
		})
	}
}

func TestUpdatePoseWrapsPerSlot(t *testing.T) {
	f := newFakeFetcher(t, map[string]int{"a.json": 4, "b.json": 6})
	r, _ := newRegistry(t, f)
	r.AddSlot(context.Background(), "a.json")
	r.AddSlot(context.Background(), "b.json")

	r.UpdatePose(5)
	views := r.Views()
	want0 := [3]float32{motiontest.Value(0, 0, 0, 1), motiontest.Value(0, 0, 1, 1), motiontest.Value(0, 0, 2, 1)}
	want1 := [3]float32{motiontest.Value(0, 0, 0, 5), motiontest.Value(0, 0, 1, 5), motiontest.Value(0, 0, 2, 5)}
	if got := views[0].Root(); got != want0 {
		t.Errorf("slot 0 root = %v, want %v", got, want0)
	}
	if got := views[1].Root(); got != want1 {
		t.Errorf("slot 1 root = %v, want %v", got, want1)
	}
}

func TestHiddenSlotIsNotPosed(t *testing.T) {
	f := newFakeFetcher(t, map[string]int{"a.json": 4})
	r, _ := newRegistry(t, f)
	r.AddSlot(context.Background(), "a.json")
	r.UpdatePose(0)

	if err := r.SetSlotVisible(0, false); err != nil {
		t.Fatalf("SetSlotVisible: %v", err)
	}
	view := r.Views()[0]
	held := view.Root()
	r.UpdatePose(2)
	if view.Visible() || view.Root() != held {
		t.Fatal("hidden slot was drawn or posed")
	}

	// showing it again poses at the shared cursor
	r.SetSlotVisible(0, true)
	if got := view.Root()[0]; got != motiontest.Value(0, 0, 0, 2) {
		t.Errorf("root x after show = %v", got)
	}
	if err := r.SetSlotColor(0, common.ColorBlue, common.ColorRed); err != nil {
		t.Fatalf("SetSlotColor: %v", err)
	}
	if joint, bone := view.Colors(); joint != common.ColorBlue || bone != common.ColorRed {
		t.Errorf("colors = %v, %v", joint, bone)
	}
}

func TestSupersededReloadIsDiscarded(t *testing.T) {
	f := newFakeFetcher(t, map[string]int{"a.json": 4, "slow.json": 9})
	gate := make(chan struct{})
	f.block["slow.json"] = gate
	r, sc := newRegistry(t, f)
	r.AddSlot(context.Background(), "a.json")
	drain(f)

	done := make(chan error, 1)
	go func() { done <- r.SetSlotFile(context.Background(), 0, "slow.json") }()
	for name := range f.started {
		if name == "slow.json" {
			break
		}
	}

	if err := r.SetSlotFile(context.Background(), 0, "a.json"); err != nil {
		t.Fatalf("SetSlotFile: %v", err)
	}
	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("slow SetSlotFile: %v", err)
	}

	s := r.Snapshot()[0]
	if s.File != "a.json" || s.Frames != 4 {
		t.Errorf("stale reload applied: %+v", s)
	}
	if got := sc.Count(); got != objectsPerView {
		t.Errorf("scene count = %d, want %d", got, objectsPerView)
	}
}
