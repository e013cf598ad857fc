package camera_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-motion/common"
	"github.com/Carmen-Shannon/oxy-motion/engine/camera"
)

func TestFollowPoseLerps(t *testing.T) {
	rig := camera.NewCameraRig()
	root := [3]float32{0, 0, 0}

	// start (2,2,5) moves 20% toward root+offset (0,2,3)
	pose := rig.FollowPose(root)
	if !near3(pose.Position, [3]float32{1.6, 2, 4.6}) {
		t.Fatalf("first follow position = %v", pose.Position)
	}
	if pose.Target != root {
		t.Errorf("target = %v", pose.Target)
	}
	world := pose.World
	if got := common.TransformPoint(world[:], [3]float32{}); !near3(got, pose.Position) {
		t.Errorf("world origin = %v, want %v", got, pose.Position)
	}

	for range 100 {
		pose = rig.FollowPose(root)
	}
	if !near3(pose.Position, camera.DefaultFollowOffset) {
		t.Errorf("follow did not converge: %v", pose.Position)
	}

	rig.Reset()
	if pose = rig.FollowPose(root); !near3(pose.Position, [3]float32{1.6, 2, 4.6}) {
		t.Errorf("after Reset = %v", pose.Position)
	}
}

func TestEstimatedPoseWithoutExtrinsics(t *testing.T) {
	rig := camera.NewCameraRig()
	if got := rig.EstimatedPose(nil); got != camera.IdentityTransform() {
		t.Errorf("pose = %+v", got)
	}
}

func TestEstimatedPoseSingular(t *testing.T) {
	var buf bytes.Buffer
	rig := camera.NewCameraRig(camera.WithRigLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	var zero [16]float32
	if got := rig.EstimatedPose(&zero); got != camera.IdentityTransform() {
		t.Errorf("pose = %+v", got)
	}
	if !strings.Contains(buf.String(), "singular") {
		t.Errorf("log = %q", buf.String())
	}
	if _, ok := rig.EstimatedFrustum(&zero); ok {
		t.Error("frustum of a singular extrinsic reported ok")
	}
}

func TestEstimatedFrustum(t *testing.T) {
	rig := camera.NewCameraRig()
	identity := common.IdentityMatrix()

	if !rig.EstimatedSees(&identity, [3]float32{0, 0, -1}) {
		t.Error("point in front of the camera not seen")
	}
	if rig.EstimatedSees(&identity, [3]float32{0, 0, 1}) {
		t.Error("point behind the camera seen")
	}
	if rig.EstimatedSees(&identity, [3]float32{0, 0, -5}) {
		t.Error("point past the far plane seen")
	}

	corners, ok := rig.EstimatedFrustum(nil)
	if !ok {
		t.Fatal("no frustum for identity")
	}
	for i := range 4 {
		if !near(corners[i][2], -camera.DefaultEstimatedNear) {
			t.Errorf("near corner %d = %v", i, corners[i])
		}
	}

	// The lens does not change with the estimated camera's aspect.
	rig.EstimatedCamera().SetAspect(3)
	again, _ := rig.EstimatedFrustum(nil)
	if again != corners {
		t.Error("frustum changed with the camera aspect")
	}
}
