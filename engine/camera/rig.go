package camera

import (
	"log/slog"
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-motion/common"
)

// Defaults for the follow and estimated cameras of a CameraRig.
var (
	DefaultFollowOffset = [3]float32{0, 2, 3}
	DefaultFollowStart  = [3]float32{2, 2, 5}
)

const (
	DefaultFollowLerp = 0.2

	DefaultFollowFovDegrees    = 60
	DefaultEstimatedFovDegrees = 45
	DefaultEstimatedAspect     = 1.0
	DefaultEstimatedNear       = 0.5
	DefaultEstimatedFar        = 3.0
)

// Radians converts degrees to radians.
func Radians(deg float32) float32 {
	return deg * math.Pi / 180.0
}

// Transform is a camera pose: the eye position, the point it looks at, and the full
// camera-to-world matrix (column-major).
type Transform struct {
	Position [3]float32  `json:"position"`
	Target   [3]float32  `json:"target"`
	World    [16]float32 `json:"world"`
}

// IdentityTransform returns the pose of a camera at the origin looking down -Z.
func IdentityTransform() Transform {
	return Transform{Target: [3]float32{0, 0, -1}, World: common.IdentityMatrix()}
}

type cameraRig struct {
	mu     *sync.Mutex
	logger *slog.Logger

	followOffset [3]float32
	followLerp   float32
	followStart  [3]float32
	followPos    [3]float32

	follow    Camera
	estimated Camera
}

// CameraRig computes the two auxiliary camera poses a motion viewer shows next to its main view:
// a follow camera that trails the skeleton's root joint, and an estimated camera reconstructed
// from recorded per-frame extrinsics. The rig owns a Camera for each so their frusta can be drawn.
type CameraRig interface {
	// FollowPose advances the follow camera one smoothing step toward root + offset
	// and orients it to look at root.
	//
	// Parameters:
	//   - root: the world-space root joint position
	//
	// Returns:
	//   - Transform: the new follow camera pose
	FollowPose(root [3]float32) Transform

	// EstimatedPose places the estimated camera from a world-to-camera extrinsic matrix.
	// The camera-to-world matrix is its inverse, set wholesale. A nil extrinsic means no camera
	// data was recorded and yields the identity pose; a singular matrix falls back to identity
	// and logs a warning.
	//
	// Parameters:
	//   - extrinsic: the column-major world-to-camera matrix, or nil
	//
	// Returns:
	//   - Transform: the estimated camera pose
	EstimatedPose(extrinsic *[16]float32) Transform

	// EstimatedFrustum returns the eight world-space corners of the estimated camera's view volume
	// for the given extrinsic, near plane first. Returns false when no valid volume exists.
	//
	// Parameters:
	//   - extrinsic: the column-major world-to-camera matrix, or nil for identity
	//
	// Returns:
	//   - [8][3]float32: the frustum corners
	//   - bool: true if the corners are valid
	EstimatedFrustum(extrinsic *[16]float32) ([8][3]float32, bool)

	// EstimatedSees reports whether a world-space point lies inside the estimated camera's view volume.
	//
	// Parameters:
	//   - extrinsic: the column-major world-to-camera matrix, or nil for identity
	//   - p: the point to test
	//
	// Returns:
	//   - bool: true if the point is visible to the estimated camera
	EstimatedSees(extrinsic *[16]float32, p [3]float32) bool

	// FollowCamera returns the camera driven by FollowPose.
	FollowCamera() Camera

	// EstimatedCamera returns the camera driven by EstimatedPose.
	EstimatedCamera() Camera

	// Reset returns the follow camera to its starting position.
	Reset()
}

var _ CameraRig = &cameraRig{}

// NewCameraRig creates a CameraRig with the follow offset (0, 2, 3), a 0.2 smoothing factor,
// a follow camera starting at (2, 2, 5), and an estimated camera with a 45 degree field of view,
// square aspect and a 0.5..3 depth range.
//
// Parameters:
//   - options: functional options to configure the rig
//
// Returns:
//   - CameraRig: the newly created rig
func NewCameraRig(options ...CameraRigOption) CameraRig {
	r := &cameraRig{
		mu:           &sync.Mutex{},
		logger:       slog.Default(),
		followOffset: DefaultFollowOffset,
		followLerp:   DefaultFollowLerp,
		followStart:  DefaultFollowStart,
	}
	for _, option := range options {
		option(r)
	}
	r.followPos = r.followStart
	r.follow = NewCamera(
		WithFovDegrees(DefaultFollowFovDegrees),
		WithNear(0.1),
		WithFar(1000),
	)
	r.estimated = NewCamera(
		WithFovDegrees(DefaultEstimatedFovDegrees),
		WithAspect(DefaultEstimatedAspect),
		WithNear(DefaultEstimatedNear),
		WithFar(DefaultEstimatedFar),
	)
	return r
}

func (r *cameraRig) FollowPose(root [3]float32) Transform {
	r.mu.Lock()
	defer r.mu.Unlock()

	desired := common.Add3(root, r.followOffset)
	r.followPos = common.Lerp3(r.followPos, desired, r.followLerp)

	var view [16]float32
	common.LookAt(view[:],
		r.followPos[0], r.followPos[1], r.followPos[2],
		root[0], root[1], root[2],
		0, 1, 0,
	)
	r.follow.SetViewMatrix(view)

	t := Transform{Position: r.followPos, Target: root}
	if !common.Invert4(t.World[:], view[:]) {
		t.World = common.IdentityMatrix()
	}
	return t
}

func (r *cameraRig) EstimatedPose(extrinsic *[16]float32) Transform {
	r.mu.Lock()
	defer r.mu.Unlock()

	if extrinsic == nil {
		r.estimated.SetViewMatrix(common.IdentityMatrix())
		return IdentityTransform()
	}

	var world [16]float32
	if !common.Invert4(world[:], extrinsic[:]) {
		r.logger.Warn("estimated camera extrinsic is singular, using identity")
		r.estimated.SetViewMatrix(common.IdentityMatrix())
		return IdentityTransform()
	}
	r.estimated.SetViewMatrix(*extrinsic)

	return Transform{
		Position: [3]float32{world[12], world[13], world[14]},
		Target:   common.TransformPoint(world[:], [3]float32{0, 0, -1}),
		World:    world,
	}
}

func (r *cameraRig) EstimatedFrustum(extrinsic *[16]float32) ([8][3]float32, bool) {
	vp, ok := r.estimatedViewProjection(extrinsic)
	if !ok {
		return [8][3]float32{}, false
	}
	return common.FrustumCorners(vp[:])
}

func (r *cameraRig) EstimatedSees(extrinsic *[16]float32, p [3]float32) bool {
	vp, ok := r.estimatedViewProjection(extrinsic)
	if !ok {
		return false
	}
	return common.ExtractFrustumFromMatrix(vp[:]).ContainsPoint(p)
}

func (r *cameraRig) FollowCamera() Camera {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.follow
}

func (r *cameraRig) EstimatedCamera() Camera {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.estimated
}

func (r *cameraRig) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.followPos = r.followStart
}

// estimatedViewProjection builds projection * extrinsic for the estimated camera's lens.
func (r *cameraRig) estimatedViewProjection(extrinsic *[16]float32) ([16]float32, bool) {
	view := common.IdentityMatrix()
	if extrinsic != nil {
		var probe [16]float32
		if !common.Invert4(probe[:], extrinsic[:]) {
			return view, false
		}
		view = *extrinsic
	}
	// The lens is fixed so the drawn frustum does not follow the window's aspect ratio.
	var proj [16]float32
	common.Perspective(proj[:], Radians(DefaultEstimatedFovDegrees), DefaultEstimatedAspect, DefaultEstimatedNear, DefaultEstimatedFar)
	var vp [16]float32
	common.Mul4(vp[:], proj[:], view[:])
	return vp, true
}
