package motion_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-motion/engine/motion"
	"github.com/Carmen-Shannon/oxy-motion/engine/motion/motiontest"
)

func TestDecode(t *testing.T) {
	doc := motiontest.Document(t, []motion.Sample{
		motiontest.Sample(5, 0),
		motiontest.Sample(7, 100),
	}, []string{"a person walks forward"})

	src, err := motion.Decode(bytes.NewReader(doc), "walk.json")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if src.Len() != 2 {
		t.Fatalf("Len = %d, want 2", src.Len())
	}
	if got := src.FrameCount(0); got != 5 {
		t.Errorf("FrameCount(0) = %d, want 5", got)
	}
	if got := src.FrameCount(1); got != 7 {
		t.Errorf("FrameCount(1) = %d, want 7", got)
	}
	if got := src.FrameCount(2); got != 0 {
		t.Errorf("FrameCount(2) = %d, want 0", got)
	}

	s, ok := src.Sample(1)
	if !ok {
		t.Fatal("Sample(1) missing")
	}
	for j := 0; j < motion.JointCount; j++ {
		p := s.Position(j, 3)
		for a := 0; a < motion.AxisCount; a++ {
			if want := motiontest.Value(100, j, a, 3); p[a] != want {
				t.Fatalf("joint %d axis %d = %v, want %v", j, a, p[a], want)
			}
		}
	}
}

func TestPrompts(t *testing.T) {
	doc := `{"motions": [], "prompts": ["jump", "", 42]}`
	src, err := motion.Decode(strings.NewReader(doc), "p.json")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	cases := []struct {
		idx  int
		want string
	}{
		{0, "Prompt: jump"},
		{1, "Prompt: -"},
		{2, "Prompt: -"},
		{3, "Prompt: -"},
		{-1, "Prompt: -"},
	}
	for _, tc := range cases {
		if got := src.PromptText(tc.idx); got != tc.want {
			t.Errorf("PromptText(%d) = %q, want %q", tc.idx, got, tc.want)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	valid := `"motions": [[` + strings.Repeat(`[[0],[0],[0]],`, 21) + `[[0],[0],[0]]]]`
	cases := []struct {
		name string
		doc  string
		want error
	}{
		{"no motions", `{"prompts": []}`, motion.ErrNoMotions},
		{"too few joints", `{"motions": [[[[0],[0],[0]]]]}`, motion.ErrShape},
		{"two axes", `{"motions": [[` + strings.Repeat(`[[0],[0]],`, 21) + `[[0],[0]]]]}`, motion.ErrShape},
		{"empty frames", `{"motions": [[` + strings.Repeat(`[[],[],[]],`, 21) + `[[],[],[]]]]}`, motion.ErrShape},
		{"ragged frames", `{"motions": [[` + strings.Repeat(`[[0,1],[0,1],[0,1]],`, 21) + `[[0,1],[0],[0,1]]]]}`, motion.ErrShape},
		{"short extrinsic row", `{` + valid + `, "E": [[[[1,0,0],[0,1,0,0],[0,0,1,0],[0,0,0,1]]]]}`, motion.ErrShape},
		{"long extrinsic row", `{` + valid + `, "E": [[[[1,0,0,0,9],[0,1,0,0],[0,0,1,0],[0,0,0,1]]]]}`, motion.ErrShape},
		{"three extrinsic rows", `{` + valid + `, "E": [[[[1,0,0,0],[0,1,0,0],[0,0,1,0]]]]}`, motion.ErrShape},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := motion.Decode(strings.NewReader(tc.doc), "bad.json")
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}

	if _, err := motion.Decode(strings.NewReader("not json"), "x.json"); err == nil {
		t.Fatal("expected JSON error")
	}
}

func TestCameraDefaults(t *testing.T) {
	doc := motiontest.Document(t, []motion.Sample{motiontest.Sample(2, 0)}, nil)
	src, err := motion.Decode(bytes.NewReader(doc), "m.json")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if src.HasCamera(0) {
		t.Error("HasCamera = true without E")
	}
	if e := src.Extrinsic(0, 0); e != nil {
		t.Errorf("Extrinsic = %v, want nil", e)
	}
	if f := src.FocalLength(0, 0); f != 1 {
		t.Errorf("FocalLength = %v, want 1", f)
	}
	if c := src.CameraCenter(0, 1); c != [2]float32{} {
		t.Errorf("CameraCenter = %v, want zero", c)
	}
}

func TestExtrinsicsAreColumnMajor(t *testing.T) {
	joints := strings.Repeat(`[[0],[0],[0]],`, 21) + `[[0],[0],[0]]`
	doc := `{"motions": [[` + joints + `]],
		"E": [[[[1,0,0,5],[0,1,0,6],[0,0,1,7],[0,0,0,1]]]],
		"focal_length": [[[2.5]]],
		"camera_center": [[[0.5, 0.25]]]}`
	src, err := motion.Decode(strings.NewReader(doc), "cam.json")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	e := src.Extrinsic(0, 3)
	if e == nil {
		t.Fatal("Extrinsic = nil")
	}
	if e[12] != 5 || e[13] != 6 || e[14] != 7 {
		t.Errorf("translation = %v %v %v, want 5 6 7", e[12], e[13], e[14])
	}
	if f := src.FocalLength(0, 0); f != 2.5 {
		t.Errorf("FocalLength = %v, want 2.5", f)
	}
	if c := src.CameraCenter(0, 0); c != [2]float32{0.5, 0.25} {
		t.Errorf("CameraCenter = %v", c)
	}
}

func TestFileFetcher(t *testing.T) {
	dir := t.TempDir()
	motiontest.WriteFile(t, dir, "b.json", []motion.Sample{motiontest.Sample(3, 0)}, nil)
	motiontest.WriteFile(t, dir, "a.json", []motion.Sample{motiontest.Sample(4, 0)}, nil)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	names, err := motion.ListFiles(dir)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(names) != 2 || names[0] != "a.json" || names[1] != "b.json" {
		t.Fatalf("ListFiles = %v", names)
	}

	f := motion.NewFileFetcher(dir)
	src, err := f.Fetch(context.Background(), "a.json")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if src.Name != "a.json" || src.FrameCount(0) != 4 {
		t.Errorf("got %s with %d frames", src.Name, src.FrameCount(0))
	}

	if _, err := f.Fetch(context.Background(), "missing.json"); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := f.Fetch(context.Background(), "../etc/passwd"); !errors.Is(err, motion.ErrPathTraversal) {
		t.Errorf("err = %v, want ErrPathTraversal", err)
	}
}

func TestHTTPFetcher(t *testing.T) {
	doc := motiontest.Document(t, []motion.Sample{motiontest.Sample(6, 0)}, []string{"wave"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/motions/wave.json" {
			http.NotFound(w, r)
			return
		}
		w.Write(doc)
	}))
	defer srv.Close()

	f := motion.NewHTTPFetcher(srv.URL + "/motions")
	src, err := f.Fetch(context.Background(), "wave.json")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if src.Prompt(0) != "wave" {
		t.Errorf("Prompt = %q", src.Prompt(0))
	}

	if _, err := f.Fetch(context.Background(), "other.json"); err == nil {
		t.Error("expected error on 404")
	}
}

func TestSafePath(t *testing.T) {
	if _, err := motion.SafePath("/data", "sub/a.json"); err != nil {
		t.Errorf("SafePath(sub/a.json) = %v", err)
	}
	for _, bad := range []string{"", "..", "../x.json", "a/../../x.json"} {
		if _, err := motion.SafePath("/data", bad); !errors.Is(err, motion.ErrPathTraversal) {
			t.Errorf("SafePath(%q) = %v, want ErrPathTraversal", bad, err)
		}
	}
}
