// Package motiontest builds synthetic motion data for tests.
package motiontest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-motion/engine/motion"
)

// Value is the coordinate stored for a joint, axis and frame in a synthetic sample.
// Every value is distinct within a sample, so read-back checks catch index mix-ups.
func Value(offset float32, joint, axis, frame int) float32 {
	return offset + float32(joint) + float32(axis)*0.25 + float32(frame)*0.01
}

// Sample returns a 22-joint sample of the given length built from Value.
func Sample(frames int, offset float32) motion.Sample {
	s := make(motion.Sample, motion.JointCount)
	for j := range s {
		for a := range motion.AxisCount {
			s[j][a] = make([]float32, frames)
			for f := range frames {
				s[j][a][f] = Value(offset, j, a, f)
			}
		}
	}
	return s
}

// Raw converts a sample into the nested array layout of the JSON document.
func Raw(s motion.Sample) [][][]float32 {
	out := make([][][]float32, len(s))
	for j := range s {
		out[j] = [][]float32{s[j][0], s[j][1], s[j][2]}
	}
	return out
}

// Document encodes samples and prompts as a motion JSON document.
func Document(t testing.TB, samples []motion.Sample, prompts []string) []byte {
	t.Helper()
	raw := make([][][][]float32, len(samples))
	for i, s := range samples {
		raw[i] = Raw(s)
	}
	doc := map[string]any{"motions": raw}
	if prompts != nil {
		doc["prompts"] = prompts
	}
	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal motion document: %v", err)
	}
	return b
}

// WriteFile writes a motion document into dir and returns its name.
func WriteFile(t testing.TB, dir, name string, samples []motion.Sample, prompts []string) string {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), Document(t, samples, prompts), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return name
}
