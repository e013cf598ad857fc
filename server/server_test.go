package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-motion/engine/motion"
	"github.com/Carmen-Shannon/oxy-motion/engine/motion/motiontest"
	"github.com/Carmen-Shannon/oxy-motion/engine/scene"
	"github.com/Carmen-Shannon/oxy-motion/engine/viewer"
	"github.com/Carmen-Shannon/oxy-motion/server"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func dataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	motiontest.WriteFile(t, dir, "a.json", []motion.Sample{motiontest.Sample(5, 0), motiontest.Sample(3, 1)}, []string{"walk"})
	motiontest.WriteFile(t, dir, "b.json", []motion.Sample{motiontest.Sample(4, 2)}, nil)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// stateView is the subset of the state document the tests read.
type stateView struct {
	Mode    string `json:"mode"`
	Playing bool   `json:"playing"`
	Frame   int    `json:"frame"`
	Sample  int    `json:"sample"`
	Prompt  string `json:"prompt"`
	Slots   []struct {
		File    string `json:"file"`
		Visible bool   `json:"visible"`
		Colors  struct {
			Joint string `json:"joint"`
			Bone  string `json:"bone"`
		} `json:"colors"`
	} `json:"slots"`
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) stateView {
	t.Helper()
	var st stateView
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode state %q: %v", w.Body.String(), err)
	}
	return st
}

func TestIndexListsMotionFiles(t *testing.T) {
	dir := dataDir(t)
	h := server.NewServer(dir, server.WithLogger(quiet)).Handler()

	w := do(t, h, http.MethodGet, "/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `href="/?file=a.json"`) || !strings.Contains(body, `href="/?file=b.json"`) {
		t.Errorf("index missing links: %s", body)
	}
	if strings.Contains(body, "notes.txt") {
		t.Error("index lists a non-json file")
	}
}

func TestIndexSelectsFile(t *testing.T) {
	dir := dataDir(t)
	app := singleApp(t, dir)
	h := server.NewServer(dir, server.WithLogger(quiet), server.WithApp(app)).Handler()

	w := do(t, h, http.MethodGet, "/?file=b.json", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Viewing b.json") {
		t.Errorf("index does not show the selection: %s", w.Body.String())
	}
	if st := app.State(); st.File != "b.json" || st.SampleCount != 1 {
		t.Errorf("viewer state after selection = %+v", st)
	}

	tests := []struct {
		target string
		want   int
	}{
		{"/?file=../a.json", http.StatusBadRequest},
		{"/?file=missing.json", http.StatusNotFound},
	}
	for _, tc := range tests {
		if w := do(t, h, http.MethodGet, tc.target, nil); w.Code != tc.want {
			t.Errorf("GET %s status = %d, want %d", tc.target, w.Code, tc.want)
		}
	}
	if st := app.State(); st.File != "b.json" {
		t.Errorf("rejected selection changed the file to %q", st.File)
	}
}

func TestIndexSelectionWithoutApp(t *testing.T) {
	dir := dataDir(t)
	h := server.NewServer(dir, server.WithLogger(quiet)).Handler()

	w := do(t, h, http.MethodGet, "/?file=a.json", nil)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/motions/a.json" {
		t.Errorf("status = %d, location = %q", w.Code, w.Header().Get("Location"))
	}
}

func TestServeMotionFile(t *testing.T) {
	dir := dataDir(t)
	h := server.NewServer(dir, server.WithLogger(quiet)).Handler()

	w := do(t, h, http.MethodGet, "/motions/a.json", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	src, err := motion.Decode(w.Body, "a.json")
	if err != nil {
		t.Fatalf("served document does not decode: %v", err)
	}
	if src.Len() != 2 {
		t.Errorf("samples = %d", src.Len())
	}

	tests := []struct {
		target string
		status int
	}{
		{"/motions/missing.json", http.StatusNotFound},
		{"/motions/..%2F..%2Fetc%2Fpasswd", http.StatusBadRequest},
	}
	for _, tt := range tests {
		if w := do(t, h, http.MethodGet, tt.target, nil); w.Code != tt.status {
			t.Errorf("GET %s = %d, want %d", tt.target, w.Code, tt.status)
		}
	}
}

func TestFiles(t *testing.T) {
	h := server.NewServer(dataDir(t), server.WithLogger(quiet)).Handler()

	w := do(t, h, http.MethodGet, "/api/files", nil)
	var got struct {
		Files []string `json:"files"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Files) != 2 || got.Files[0] != "a.json" || got.Files[1] != "b.json" {
		t.Errorf("files = %v", got.Files)
	}
}

func TestControlWithoutApp(t *testing.T) {
	h := server.NewServer(dataDir(t), server.WithLogger(quiet)).Handler()
	if w := do(t, h, http.MethodGet, "/api/state", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func singleApp(t *testing.T, dir string) viewer.App {
	t.Helper()
	app := viewer.NewApp(scene.NewScene("test"), motion.NewFileFetcher(dir), viewer.WithLogger(quiet))
	t.Cleanup(app.Close)
	if err := app.Load(context.Background(), "a.json"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return app
}

func TestPlaybackControls(t *testing.T) {
	dir := dataDir(t)
	h := server.NewServer(dir, server.WithLogger(quiet), server.WithApp(singleApp(t, dir))).Handler()

	if st := decodeState(t, do(t, h, http.MethodPost, "/api/play", nil)); !st.Playing {
		t.Error("play did not start playback")
	}
	if st := decodeState(t, do(t, h, http.MethodPost, "/api/toggle", nil)); st.Playing {
		t.Error("toggle did not pause")
	}
	if st := decodeState(t, do(t, h, http.MethodPost, "/api/pause", nil)); st.Playing {
		t.Error("pause left playback running")
	}

	// T=5, frame 6 lands on frame 1
	if st := decodeState(t, do(t, h, http.MethodPut, "/api/frame/6", nil)); st.Frame != 1 {
		t.Errorf("frame = %d, want 1", st.Frame)
	}
	if w := do(t, h, http.MethodPut, "/api/frame/abc", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad frame status = %d", w.Code)
	}

	st := decodeState(t, do(t, h, http.MethodPost, "/api/sample/next", nil))
	if st.Sample != 1 || st.Frame != 0 || st.Prompt != "Prompt: -" {
		t.Errorf("after next: %+v", st)
	}
	if st := decodeState(t, do(t, h, http.MethodPost, "/api/sample/next", nil)); st.Sample != 1 {
		t.Errorf("next past the end = %d", st.Sample)
	}
	if st := decodeState(t, do(t, h, http.MethodPost, "/api/sample/prev", nil)); st.Sample != 0 || st.Prompt != "Prompt: walk" {
		t.Errorf("after prev: %+v", st)
	}

	if w := do(t, h, http.MethodPost, "/api/slots", nil); w.Code != http.StatusConflict {
		t.Errorf("add slot in single mode = %d, want 409", w.Code)
	}
}

func TestSlotControls(t *testing.T) {
	dir := dataDir(t)
	app := viewer.NewApp(scene.NewScene("test"), motion.NewFileFetcher(dir),
		viewer.WithMode(viewer.ModeCompare),
		viewer.WithFileOptions("a.json", "b.json"),
		viewer.WithLogger(quiet),
	)
	t.Cleanup(app.Close)
	h := server.NewServer(dir, server.WithLogger(quiet), server.WithApp(app)).Handler()

	w := do(t, h, http.MethodPost, "/api/slots", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("add slot = %d: %s", w.Code, w.Body.String())
	}
	do(t, h, http.MethodPost, "/api/slots", nil)

	st := decodeState(t, do(t, h, http.MethodPut, "/api/slots/1/file", server.FileRequest{File: "b.json"}))
	if len(st.Slots) != 2 || st.Slots[0].File != "a.json" || st.Slots[1].File != "b.json" {
		t.Fatalf("slots = %+v", st.Slots)
	}

	st = decodeState(t, do(t, h, http.MethodPut, "/api/slots/0/visible", server.VisibleRequest{Visible: false}))
	if st.Slots[0].Visible {
		t.Error("slot 0 still visible")
	}

	st = decodeState(t, do(t, h, http.MethodPut, "/api/slots/1/color", server.ColorRequest{Joint: "#00ff00", Bone: "#112233"}))
	if st.Slots[1].Colors.Joint != "#00ff00" || st.Slots[1].Colors.Bone != "#112233" {
		t.Errorf("colors = %+v", st.Slots[1].Colors)
	}

	tests := []struct {
		name   string
		method string
		target string
		body   any
		status int
	}{
		{"unknown slot", http.MethodPut, "/api/slots/9/visible", server.VisibleRequest{}, http.StatusNotFound},
		{"bad index", http.MethodPut, "/api/slots/x/visible", server.VisibleRequest{}, http.StatusBadRequest},
		{"bad color", http.MethodPut, "/api/slots/0/color", server.ColorRequest{Joint: "red", Bone: "#000000"}, http.StatusBadRequest},
		{"sample nav", http.MethodPost, "/api/sample/next", nil, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(t, h, tt.method, tt.target, tt.body); w.Code != tt.status {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.status, w.Body.String())
			}
		})
	}

	if w := do(t, h, http.MethodPost, "/api/slots/reload", nil); w.Code != http.StatusOK {
		t.Errorf("reload = %d", w.Code)
	}

	if st := decodeState(t, do(t, h, http.MethodDelete, "/api/slots/last", nil)); len(st.Slots) != 1 {
		t.Errorf("after remove: %d slots", len(st.Slots))
	}
	do(t, h, http.MethodDelete, "/api/slots/last", nil)
	if w := do(t, h, http.MethodDelete, "/api/slots/last", nil); w.Code != http.StatusNotFound {
		t.Errorf("remove from empty = %d, want 404", w.Code)
	}
}

func TestRequestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := server.NewServer(dataDir(t), server.WithLogger(logger)).Handler()

	do(t, h, http.MethodGet, "/api/files", nil)
	out := buf.String()
	if !strings.Contains(out, "path=/api/files") || !strings.Contains(out, "status=200") {
		t.Errorf("log = %q", out)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	s := server.NewServer(dataDir(t), server.WithLogger(quiet), server.WithAddr("127.0.0.1:0"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Start(ctx); err != nil {
		t.Errorf("Start = %v", err)
	}
}
