package skeleton

// Bone is a straight segment between two joints.
type Bone struct {
	From JointType
	To   JointType
}

// Bones lists every anatomical bone of the body model, torso first.
var Bones = [...]Bone{
	// Torso
	{Head, Neck},
	{Neck, SpineShoulder},
	{SpineShoulder, SpineMid},
	{SpineMid, SpineBase},
	{SpineShoulder, ShoulderRight},
	{SpineShoulder, ShoulderLeft},
	{SpineBase, HipRight},
	{SpineBase, HipLeft},

	// Right arm
	{ShoulderRight, ElbowRight},
	{ElbowRight, WristRight},
	{WristRight, HandRight},
	{HandRight, HandTipRight},
	{WristRight, ThumbRight},

	// Left arm
	{ShoulderLeft, ElbowLeft},
	{ElbowLeft, WristLeft},
	{WristLeft, HandLeft},
	{HandLeft, HandTipLeft},
	{WristLeft, ThumbLeft},

	// Right leg
	{HipRight, KneeRight},
	{KneeRight, AnkleRight},
	{AnkleRight, FootRight},

	// Left leg
	{HipLeft, KneeLeft},
	{KneeLeft, AnkleLeft},
	{AnkleLeft, FootLeft},
}
