// Package motion loads precomputed human-motion datasets: per-sample joint trajectories with
// their text prompts and optional recorded camera parameters.
package motion

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Carmen-Shannon/oxy-motion/common"
)

const (
	// JointCount is the number of joints in every sample.
	JointCount = 22
	// AxisCount is the number of coordinates per joint position.
	AxisCount = 3

	// DefaultFile is the motion file loaded when none is named.
	DefaultFile = "motions.json"
	// PromptPlaceholder stands in for a missing or empty prompt.
	PromptPlaceholder = "-"
)

// ErrNoMotions is returned when a document has no "motions" field.
var ErrNoMotions = errors.New("motion: document has no motions")

// ErrShape is returned when a sample is not 22 joints by 3 axes by T frames with T >= 1, or when an
// extrinsic matrix is not 4x4.
var ErrShape = errors.New("motion: malformed sample shape")

// Sample is one motion clip indexed as sample[joint][axis][frame].
// Every joint and axis carries the same number of frames.
type Sample [][AxisCount][]float32

// FrameCount returns the number of frames in the sample, 0 for an empty sample.
func (s Sample) FrameCount() int {
	if len(s) == 0 {
		return 0
	}
	return len(s[0][0])
}

// Position returns the position of a joint at a frame. The frame is wrapped into range.
//
// Parameters:
//   - joint: the joint index
//   - frame: the frame index
//
// Returns:
//   - [3]float32: the x, y, z position
func (s Sample) Position(joint, frame int) [3]float32 {
	f := common.Wrap(frame, s.FrameCount())
	j := s[joint]
	return [3]float32{j[0][f], j[1][f], j[2][f]}
}

// Trajectory returns the path of one joint over every frame.
//
// Parameters:
//   - joint: the joint index
//
// Returns:
//   - [][3]float32: the positions in frame order
func (s Sample) Trajectory(joint int) [][3]float32 {
	out := make([][3]float32, s.FrameCount())
	for f := range out {
		out[f] = s.Position(joint, f)
	}
	return out
}

// validate checks the sample against the fixed joint topology.
func (s Sample) validate() error {
	if len(s) != JointCount {
		return fmt.Errorf("%w: %d joints, want %d", ErrShape, len(s), JointCount)
	}
	t := len(s[0][0])
	if t < 1 {
		return fmt.Errorf("%w: no frames", ErrShape)
	}
	for j := range s {
		for a := range AxisCount {
			if len(s[j][a]) != t {
				return fmt.Errorf("%w: joint %d axis %d has %d frames, want %d", ErrShape, j, a, len(s[j][a]), t)
			}
		}
	}
	return nil
}

// Source is a loaded motion file. It is immutable once decoded and can be shared
// between any number of readers.
type Source struct {
	// Name is the file name the source was loaded from.
	Name string

	samples      []Sample
	prompts      []string
	focalLength  [][]float32
	extrinsics   [][][16]float32
	cameraCenter [][][2]float32
}

// Len returns the number of samples.
func (src *Source) Len() int {
	if src == nil {
		return 0
	}
	return len(src.samples)
}

// Sample returns the sample at index i, or false when out of range.
//
// Parameters:
//   - i: the sample index
//
// Returns:
//   - Sample: the sample
//   - bool: true if i is a valid index
func (src *Source) Sample(i int) (Sample, bool) {
	if src == nil || i < 0 || i >= len(src.samples) {
		return nil, false
	}
	return src.samples[i], true
}

// FrameCount returns the frame count of sample i, 0 when out of range.
func (src *Source) FrameCount(i int) int {
	s, ok := src.Sample(i)
	if !ok {
		return 0
	}
	return s.FrameCount()
}

// Prompt returns the text prompt of sample i, or PromptPlaceholder when the prompt
// list is missing, short, or holds an empty entry.
func (src *Source) Prompt(i int) string {
	if src == nil || i < 0 || i >= len(src.prompts) || src.prompts[i] == "" {
		return PromptPlaceholder
	}
	return src.prompts[i]
}

// PromptText returns the prompt of sample i formatted for display.
func (src *Source) PromptText(i int) string {
	return "Prompt: " + src.Prompt(i)
}

// HasCamera reports whether recorded extrinsics exist for the sample.
func (src *Source) HasCamera(sample int) bool {
	return src != nil && sample >= 0 && sample < len(src.extrinsics) && len(src.extrinsics[sample]) > 0
}

// Extrinsic returns the world-to-camera matrix (column-major) for a sample frame,
// or nil when no extrinsics were recorded for it.
//
// Parameters:
//   - sample: the sample index
//   - frame: the frame index, wrapped into the recorded range
//
// Returns:
//   - *[16]float32: the matrix or nil
func (src *Source) Extrinsic(sample, frame int) *[16]float32 {
	if !src.HasCamera(sample) {
		return nil
	}
	frames := src.extrinsics[sample]
	m := frames[common.Wrap(frame, len(frames))]
	return &m
}

// FocalLength returns the recorded focal length for a sample frame, 1 when absent.
func (src *Source) FocalLength(sample, frame int) float32 {
	if src == nil || sample < 0 || sample >= len(src.focalLength) || len(src.focalLength[sample]) == 0 {
		return 1
	}
	f := src.focalLength[sample]
	return f[common.Wrap(frame, len(f))]
}

// CameraCenter returns the recorded principal point for a sample frame, zero when absent.
func (src *Source) CameraCenter(sample, frame int) [2]float32 {
	if src == nil || sample < 0 || sample >= len(src.cameraCenter) || len(src.cameraCenter[sample]) == 0 {
		return [2]float32{}
	}
	c := src.cameraCenter[sample]
	return c[common.Wrap(frame, len(c))]
}

// document is the on-disk layout. Optional camera fields are B x T x ... arrays.
type document struct {
	Motions      *[][][][]float32  `json:"motions"`
	Prompts      []json.RawMessage `json:"prompts"`
	FocalLength  [][][]float32     `json:"focal_length"`
	E            [][][][]float32   `json:"E"`
	CameraCenter [][][2]float32    `json:"camera_center"`
}

// Decode reads a motion document from r.
//
// Parameters:
//   - r: the JSON input
//   - name: the name recorded on the returned Source
//
// Returns:
//   - *Source: the decoded source
//   - error: ErrNoMotions, ErrShape, or a JSON error
func Decode(r io.Reader, name string) (*Source, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("motion: decode %s: %w", name, err)
	}
	if doc.Motions == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrNoMotions)
	}

	src := &Source{Name: name}
	for i, raw := range *doc.Motions {
		s := make(Sample, len(raw))
		for j, joint := range raw {
			if len(joint) != AxisCount {
				return nil, fmt.Errorf("%s: sample %d joint %d: %w: %d axes, want %d", name, i, j, ErrShape, len(joint), AxisCount)
			}
			s[j] = [AxisCount][]float32{joint[0], joint[1], joint[2]}
		}
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("%s: sample %d: %w", name, i, err)
		}
		src.samples = append(src.samples, s)
	}

	src.prompts = make([]string, len(doc.Prompts))
	for i, raw := range doc.Prompts {
		var p string
		if err := json.Unmarshal(raw, &p); err == nil {
			src.prompts[i] = p
		}
	}

	src.focalLength = make([][]float32, len(doc.FocalLength))
	for i, frames := range doc.FocalLength {
		src.focalLength[i] = make([]float32, len(frames))
		for f, v := range frames {
			if len(v) > 0 {
				src.focalLength[i][f] = v[0]
			} else {
				src.focalLength[i][f] = 1
			}
		}
	}

	src.extrinsics = make([][][16]float32, len(doc.E))
	for i, frames := range doc.E {
		src.extrinsics[i] = make([][16]float32, len(frames))
		for f, rows := range frames {
			m, err := matrixRows(rows)
			if err != nil {
				return nil, fmt.Errorf("%s: E sample %d frame %d: %w", name, i, f, err)
			}
			src.extrinsics[i][f] = common.FromRows(m)
		}
	}

	src.cameraCenter = doc.CameraCenter
	return src, nil
}

// matrixRows checks that rows is a 4x4 matrix.
func matrixRows(rows [][]float32) ([4][4]float32, error) {
	var m [4][4]float32
	if len(rows) != 4 {
		return m, fmt.Errorf("%w: %d extrinsic rows, want 4", ErrShape, len(rows))
	}
	for r, row := range rows {
		if len(row) != 4 {
			return m, fmt.Errorf("%w: extrinsic row %d has %d columns, want 4", ErrShape, r, len(row))
		}
		copy(m[r][:], row)
	}
	return m, nil
}

// NewSource builds a Source directly from samples and prompts. Samples are validated.
//
// Parameters:
//   - name: the source name
//   - samples: the motion samples
//   - prompts: the aligned prompts (may be shorter than samples)
//
// Returns:
//   - *Source: the source
//   - error: ErrShape if a sample is malformed
func NewSource(name string, samples []Sample, prompts []string) (*Source, error) {
	for i, s := range samples {
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("%s: sample %d: %w", name, i, err)
		}
	}
	return &Source{Name: name, samples: samples, prompts: prompts}, nil
}

// WithExtrinsics returns a copy of the source carrying per-sample, per-frame world-to-camera
// matrices in column-major order.
func (src *Source) WithExtrinsics(e [][][16]float32) *Source {
	out := *src
	out.extrinsics = e
	return &out
}
