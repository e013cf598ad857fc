package game_object

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-motion/common"
)

// Kind identifies how a GameObject is drawn.
type Kind int

const (
	// KindMarker is a point-like object drawn as a small 3-axis cross around its position.
	KindMarker Kind = iota
	// KindSegment is a straight line between two endpoints.
	KindSegment
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindMarker:
		return "marker"
	case KindSegment:
		return "segment"
	default:
		return "unknown"
	}
}

type gameObject struct {
	mu      *sync.Mutex
	id      uint64
	enabled atomic.Bool
	kind    Kind
	color   common.Color
	size    float32

	// position is the marker center, or the first endpoint of a segment
	position [3]float32
	// end is the second endpoint of a segment; unused for markers
	end [3]float32
}

// GameObject defines the interface for a drawable scene entity.
// A GameObject is either a joint-style marker (a point with a size) or a bone-style segment
// (two endpoints). Both carry a packed RGB color and an enabled flag that hides them from rendering.
type GameObject interface {
	// ID returns the object's unique identifier.
	//
	// Returns:
	//   - uint64: the object ID
	ID() uint64

	// SetID sets the object's unique identifier. The Scene assigns IDs when objects are added.
	//
	// Parameters:
	//   - id: the ID to assign
	SetID(id uint64)

	// Kind returns whether the object is a marker or a segment.
	//
	// Returns:
	//   - Kind: the object kind
	Kind() Kind

	// Enabled returns whether this object is enabled for rendering.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// SetEnabled sets whether the object is enabled for rendering.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)

	// Position returns the marker center, or the first endpoint for a segment.
	//
	// Returns:
	//   - [3]float32: the position
	Position() [3]float32

	// SetPosition moves the marker center, or the first endpoint for a segment.
	//
	// Parameters:
	//   - p: the new position
	SetPosition(p [3]float32)

	// Endpoints returns both endpoints. For markers both values equal Position.
	//
	// Returns:
	//   - a, b: the endpoints
	Endpoints() (a, b [3]float32)

	// SetEndpoints sets both endpoints of a segment in a single call.
	// For markers only a is used.
	//
	// Parameters:
	//   - a: the first endpoint
	//   - b: the second endpoint
	SetEndpoints(a, b [3]float32)

	// Color returns the packed RGB color.
	//
	// Returns:
	//   - common.Color: the color
	Color() common.Color

	// SetColor sets the packed RGB color.
	//
	// Parameters:
	//   - c: the new color
	SetColor(c common.Color)

	// Size returns the marker half-extent. Segments report 0.
	//
	// Returns:
	//   - float32: the marker size
	Size() float32

	// Lines returns the line segments used to draw this object.
	// A marker yields three axis-aligned crossing lines; a segment yields itself.
	//
	// Returns:
	//   - []common.Line: the lines to draw
	Lines() []common.Line
}

var _ GameObject = &gameObject{}

// NewGameObject creates a new GameObject configured with the given options.
// Objects are enabled unless WithEnabled(false) is supplied.
//
// Parameters:
//   - options: functional options to configure the object
//
// Returns:
//   - GameObject: the newly created object
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	obj := &gameObject{
		mu: &sync.Mutex{},
	}
	obj.enabled.Store(true)
	for _, option := range options {
		option(obj)
	}
	return obj
}

func (g *gameObject) ID() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.id
}

func (g *gameObject) SetID(id uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.id = id
}

func (g *gameObject) Kind() Kind {
	return g.kind
}

func (g *gameObject) Enabled() bool {
	return g.enabled.Load()
}

func (g *gameObject) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
}

func (g *gameObject) Position() [3]float32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.position
}

func (g *gameObject) SetPosition(p [3]float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.position = p
}

func (g *gameObject) Endpoints() (a, b [3]float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.kind == KindMarker {
		return g.position, g.position
	}
	return g.position, g.end
}

func (g *gameObject) SetEndpoints(a, b [3]float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.position = a
	g.end = b
}

func (g *gameObject) Color() common.Color {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.color
}

func (g *gameObject) SetColor(c common.Color) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.color = c
}

func (g *gameObject) Size() float32 {
	if g.kind != KindMarker {
		return 0
	}
	return g.size
}

func (g *gameObject) Lines() []common.Line {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.kind == KindSegment {
		return []common.Line{{From: g.position, To: g.end, Color: g.color}}
	}

	p, s := g.position, g.size
	return []common.Line{
		{From: [3]float32{p[0] - s, p[1], p[2]}, To: [3]float32{p[0] + s, p[1], p[2]}, Color: g.color},
		{From: [3]float32{p[0], p[1] - s, p[2]}, To: [3]float32{p[0], p[1] + s, p[2]}, Color: g.color},
		{From: [3]float32{p[0], p[1], p[2] - s}, To: [3]float32{p[0], p[1], p[2] + s}, Color: g.color},
	}
}
