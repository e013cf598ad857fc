// Package skeleton draws one motion sample as a stick figure: 22 joint markers and the
// 21 bone segments between them, registered as GameObjects in a Scene.
package skeleton

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-motion/common"
	"github.com/Carmen-Shannon/oxy-motion/engine/game_object"
	"github.com/Carmen-Shannon/oxy-motion/engine/motion"
	"github.com/Carmen-Shannon/oxy-motion/engine/scene"
)

// DefaultJointSize is the half-extent of a joint marker.
const DefaultJointSize = 0.03

type view struct {
	mu *sync.Mutex

	sc        scene.Scene
	joints    [JointCount]game_object.GameObject
	bones     [BoneCount]game_object.GameObject
	jointIDs  [JointCount]uint64
	boneIDs   [BoneCount]uint64
	jointSize float32

	jointColor common.Color
	boneColor  common.Color
	visible    bool
	built      bool
}

// View is the visual representation of one skeleton in a Scene.
// Segment i always reflects the current positions of the two joints in Bones[i].
type View interface {
	// UpdatePose writes every joint position for a frame of the sample, then recomputes every
	// bone's endpoints from those joint positions. The frame is wrapped modulo the sample's
	// frame count. An empty sample or a destroyed view makes this a no-op.
	//
	// Parameters:
	//   - sample: the motion sample to read
	//   - frame: the frame index
	UpdatePose(sample motion.Sample, frame int)

	// SetColors overwrites the color of every joint marker and every bone segment.
	//
	// Parameters:
	//   - joint: the joint marker color
	//   - bone: the bone segment color
	SetColors(joint, bone common.Color)

	// Colors returns the current joint and bone colors.
	Colors() (joint, bone common.Color)

	// SetVisible shows or hides every marker and segment of the view.
	//
	// Parameters:
	//   - visible: true to draw the skeleton
	SetVisible(visible bool)

	// Visible reports whether the view is drawn.
	Visible() bool

	// JointPosition returns the current position of joint i.
	JointPosition(i int) [3]float32

	// BoneEndpoints returns the current endpoints of segment i.
	BoneEndpoints(i int) (a, b [3]float32)

	// Root returns the current position of the root joint.
	Root() [3]float32

	// Built reports whether the view still owns scene objects.
	Built() bool

	// Destroy removes every marker and segment from the scene. Later calls are no-ops.
	Destroy()
}

var _ View = &view{}

// New builds a View in the scene: one marker per joint and one segment per bone, all placed at
// the origin until the first UpdatePose.
//
// Parameters:
//   - sc: the scene the view's objects are registered in
//   - jointColor: the marker color
//   - boneColor: the segment color
//   - options: functional options to configure the view
//
// Returns:
//   - View: the new view
func New(sc scene.Scene, jointColor, boneColor common.Color, options ...ViewBuilderOption) View {
	v := &view{
		mu:         &sync.Mutex{},
		sc:         sc,
		jointSize:  DefaultJointSize,
		jointColor: jointColor,
		boneColor:  boneColor,
		visible:    true,
	}
	for _, option := range options {
		option(v)
	}

	for i := range v.joints {
		v.joints[i] = game_object.NewGameObject(
			game_object.WithMarker(v.jointSize),
			game_object.WithColor(jointColor),
			game_object.WithEnabled(v.visible),
		)
		v.jointIDs[i] = sc.Add(v.joints[i])
	}
	for i := range v.bones {
		v.bones[i] = game_object.NewGameObject(
			game_object.WithSegment([3]float32{}, [3]float32{}),
			game_object.WithColor(boneColor),
			game_object.WithEnabled(v.visible),
		)
		v.boneIDs[i] = sc.Add(v.bones[i])
	}
	v.built = true
	return v
}

func (v *view) UpdatePose(sample motion.Sample, frame int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.built || sample.FrameCount() == 0 || len(sample) < JointCount {
		return
	}

	f := common.Wrap(frame, sample.FrameCount())
	var pos [JointCount][3]float32
	for i := range v.joints {
		pos[i] = sample.Position(i, f)
		v.joints[i].SetPosition(pos[i])
	}
	for i, pair := range Bones {
		v.bones[i].SetEndpoints(pos[pair[0]], pos[pair[1]])
	}
}

func (v *view) SetColors(joint, bone common.Color) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.jointColor, v.boneColor = joint, bone
	if !v.built {
		return
	}
	for _, j := range v.joints {
		j.SetColor(joint)
	}
	for _, b := range v.bones {
		b.SetColor(bone)
	}
}

func (v *view) Colors() (joint, bone common.Color) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.jointColor, v.boneColor
}

func (v *view) SetVisible(visible bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.visible = visible
	if !v.built {
		return
	}
	for _, j := range v.joints {
		j.SetEnabled(visible)
	}
	for _, b := range v.bones {
		b.SetEnabled(visible)
	}
}

func (v *view) Visible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible
}

func (v *view) JointPosition(i int) [3]float32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if i < 0 || i >= JointCount {
		return [3]float32{}
	}
	return v.joints[i].Position()
}

func (v *view) BoneEndpoints(i int) (a, b [3]float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if i < 0 || i >= BoneCount {
		return
	}
	return v.bones[i].Endpoints()
}

func (v *view) Root() [3]float32 {
	return v.JointPosition(RootJoint)
}

func (v *view) Built() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.built
}

func (v *view) Destroy() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.built {
		return
	}
	for _, id := range v.jointIDs {
		v.sc.Remove(id)
	}
	for _, id := range v.boneIDs {
		v.sc.Remove(id)
	}
	v.built = false
}
