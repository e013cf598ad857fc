package skeleton

import "github.com/Carmen-Shannon/oxy-motion/engine/motion"

// RootJoint is the pelvis, the joint every chain starts from and the follow camera tracks.
const RootJoint = 0

// BoneCount is the number of segments in the skeleton.
const BoneCount = 21

// Bones pairs the joints each segment connects. The order is fixed: segment i always joins
// Bones[i][0] to Bones[i][1].
var Bones = [BoneCount][2]int{
	{0, 1}, {1, 4}, {4, 7}, {7, 10}, // left leg
	{0, 2}, {2, 5}, {5, 8}, {8, 11}, // right leg
	{0, 3}, {3, 6}, {6, 9}, {9, 12}, {12, 15}, // spine
	{12, 13}, {13, 16}, {16, 18}, {18, 20}, // left arm
	{12, 14}, {14, 17}, {17, 19}, {19, 21}, // right arm
}

// JointCount mirrors motion.JointCount for callers that only deal with views.
const JointCount = motion.JointCount
