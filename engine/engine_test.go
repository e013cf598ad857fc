package engine

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-motion/common"
	"github.com/Carmen-Shannon/oxy-motion/engine/camera"
	"github.com/Carmen-Shannon/oxy-motion/engine/scene"
)

type fakeRenderer struct {
	calls    []string
	beginErr error
	width    int
	height   int
	clear    common.Color
}

func (f *fakeRenderer) Resize(width, height int) {
	f.width, f.height = width, height
}

func (f *fakeRenderer) SetClearColor(c common.Color) {
	f.clear = c
}

func (f *fakeRenderer) BeginFrame() error {
	f.calls = append(f.calls, "begin")
	return f.beginErr
}

func (f *fakeRenderer) DrawLines(pipelineKey, batch string, cam camera.Camera, vertices []common.Vertex) error {
	f.calls = append(f.calls, fmt.Sprintf("draw %s %s %d", pipelineKey, batch, len(vertices)))
	return nil
}

func (f *fakeRenderer) EndFrame() {
	f.calls = append(f.calls, "end")
}

func (f *fakeRenderer) Present() {
	f.calls = append(f.calls, "present")
}

func newScene(name string, active bool) scene.Scene {
	return scene.NewScene(name,
		scene.WithActive(active),
		scene.WithCamera(camera.NewCamera()),
		scene.WithBackground(0x112233),
	)
}

func TestRenderFrameUpdatesBeforeDrawing(t *testing.T) {
	fr := &fakeRenderer{}
	e := NewEngine(WithRenderer(fr)).(*engine)

	back := newScene("back", true)
	front := newScene("front", true)
	e.AddScene(1, front)
	e.AddScene(0, back)
	e.AddScene(2, newScene("hidden", false))

	e.SetUpdateCallback(func(dt float64) {
		fr.calls = append(fr.calls, fmt.Sprintf("update %.2f", dt))
	})
	e.renderFrame(0.05)

	want := []string{
		"update 0.05",
		"begin",
		fmt.Sprintf("draw lines back %d", len(back.LineVertices())),
		fmt.Sprintf("draw lines front %d", len(front.LineVertices())),
		"end",
		"present",
	}
	if len(fr.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", fr.calls, want)
	}
	for i := range want {
		if fr.calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, fr.calls[i], want[i])
		}
	}
	if fr.clear != 0x112233 {
		t.Errorf("clear color = %#x", fr.clear)
	}
}

func TestRenderFrameSkipsWhenBeginFails(t *testing.T) {
	fr := &fakeRenderer{beginErr: errors.New("surface lost")}
	e := NewEngine(WithRenderer(fr), WithScene(0, newScene("s", true))).(*engine)

	e.renderFrame(0.01)
	if len(fr.calls) != 1 || fr.calls[0] != "begin" {
		t.Fatalf("calls = %v", fr.calls)
	}
}

func TestResizeSetsCameraAspect(t *testing.T) {
	fr := &fakeRenderer{}
	s := newScene("s", true)
	e := NewEngine(WithRenderer(fr), WithScene(0, s)).(*engine)

	e.resize(800, 400)
	if fr.width != 800 || fr.height != 400 {
		t.Fatalf("renderer size = %dx%d", fr.width, fr.height)
	}
	if got := s.Camera().Aspect(); got != 2 {
		t.Errorf("aspect = %v, want 2", got)
	}

	e.resize(0, 400)
	if fr.width != 800 {
		t.Error("zero-sized resize reached the renderer")
	}

	// A camera swapped in after the resize picks up the aspect on the next frame.
	swapped := camera.NewCamera(camera.WithAspect(1))
	s.SetCamera(swapped)
	e.renderFrame(0)
	if swapped.Aspect() != 2 {
		t.Errorf("swapped camera aspect = %v, want 2", swapped.Aspect())
	}
}

func TestRunWithoutWindowStopsOnQuit(t *testing.T) {
	frames := make(chan struct{}, 1)
	e := NewEngine(WithUpdateCallback(func(float64) {
		select {
		case frames <- struct{}{}:
		default:
		}
	}), WithRenderFrameLimit(200))

	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()

	select {
	case <-frames:
	case <-time.After(2 * time.Second):
		t.Fatal("render loop never ran")
	}
	e.Quit()
	e.Quit()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Quit")
	}
}

func TestRenderLoopRecoversFromPanic(t *testing.T) {
	e := NewEngine(WithUpdateCallback(func(float64) { panic("boom") }))

	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("panic did not stop the engine")
	}
	select {
	case <-e.Done():
	default:
		t.Error("Done not closed after panic")
	}
}
