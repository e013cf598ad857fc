// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is a packed 24-bit RGB color (0xRRGGBB), the representation joint and bone colors are stored in.
type Color uint32

// Predefined colors used by the viewer.
const (
	ColorRed        Color = 0xff0000
	ColorBlue       Color = 0x0000ff
	ColorBackground Color = 0xc0c0c0
	ColorGridLight  Color = 0xd8d8d8
	ColorGridDark   Color = 0x909090
	ColorAxisX      Color = 0xff4040
	ColorAxisY      Color = 0x40c040
	ColorAxisZ      Color = 0x4060ff
	ColorFrustum    Color = 0x303030
)

// RGB returns the color channels normalized to [0, 1].
//
// Returns:
//   - [3]float32: red, green and blue in [0, 1]
func (c Color) RGB() [3]float32 {
	return [3]float32{
		float32((c>>16)&0xff) / 255.0,
		float32((c>>8)&0xff) / 255.0,
		float32(c&0xff) / 255.0,
	}
}

// Hex formats the color as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%06x", uint32(c)&0xffffff)
}

// MarshalText implements encoding.TextMarshaler so colors read as "#rrggbb" in JSON and YAML.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, see ParseColor.
func (c *Color) UnmarshalText(b []byte) error {
	parsed, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseColor parses "#rrggbb", "0xrrggbb" or "rrggbb" into a packed Color.
//
// Parameters:
//   - s: the textual color
//
// Returns:
//   - Color: the parsed color
//   - error: error if the text is not a 6-digit hex color
func ParseColor(s string) (Color, error) {
	h := strings.TrimSpace(s)
	h = strings.TrimPrefix(h, "#")
	h = strings.TrimPrefix(strings.TrimPrefix(h, "0x"), "0X")
	if len(h) != 6 {
		return 0, fmt.Errorf("invalid color %q: want 6 hex digits", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color(v), nil
}

// Vertex is one end of a colored line segment as it is laid out in the renderer's vertex buffer.
type Vertex struct {
	Position [3]float32
	Color    [3]float32
}

// Line is a colored segment between two world-space points.
type Line struct {
	From  [3]float32
	To    [3]float32
	Color Color
}

// AppendLineVertices appends both endpoints of every line to dst.
//
// Parameters:
//   - dst: the vertex slice to append to
//   - lines: the segments to append
//
// Returns:
//   - []Vertex: the extended slice
func AppendLineVertices(dst []Vertex, lines ...Line) []Vertex {
	for _, l := range lines {
		rgb := l.Color.RGB()
		dst = append(dst, Vertex{Position: l.From, Color: rgb}, Vertex{Position: l.To, Color: rgb})
	}
	return dst
}
