package skeleton

// UniformBody returns a fully tracked, upright body in which every measured
// segment (neck, shins, thighs, forearms, upper arms, both spine halves,
// shoulder width and hip width) is exactly length meters long.
// Hands are left in HandUnknown.
func UniformBody(length float64) Body {
	l := length
	body := Body{TrackingID: 1, Tracked: true}

	set := func(j JointType, x, y float64) {
		body.Joints[j] = Joint{Position: Point3D{X: x, Y: y, Z: 2.0}, State: Tracked}
	}

	// Spine, stacked on the y axis from the pelvis up.
	set(SpineBase, 0, 0)
	set(SpineMid, 0, l)
	set(SpineShoulder, 0, 2*l)
	set(Neck, 0, 2*l+l/4)
	set(Head, 0, 3*l+l/4)

	// Arms hanging straight down.
	set(ShoulderLeft, -l/2, 2*l)
	set(ElbowLeft, -l/2, l)
	set(WristLeft, -l/2, l/4)
	set(HandLeft, -l/2, 0)
	set(HandTipLeft, -l/2, -l/8)
	set(ThumbLeft, -l/2-l/8, 0)
	set(ShoulderRight, l/2, 2*l)
	set(ElbowRight, l/2, l)
	set(WristRight, l/2, l/4)
	set(HandRight, l/2, 0)
	set(HandTipRight, l/2, -l/8)
	set(ThumbRight, l/2+l/8, 0)

	// Legs.
	set(HipLeft, -l/2, 0)
	set(KneeLeft, -l/2, -l)
	set(AnkleLeft, -l/2, -2*l)
	set(FootLeft, -l/2, -2*l-l/8)
	set(HipRight, l/2, 0)
	set(KneeRight, l/2, -l)
	set(AnkleRight, l/2, -2*l)
	set(FootRight, l/2, -2*l-l/8)

	return body
}

// WithHands returns a copy of b with the given hand poses.
func WithHands(b Body, left, right HandState) Body {
	b.HandLeft = left
	b.HandRight = right
	return b
}

// WithJointState returns a copy of b with joint j set to state.
func WithJointState(b Body, j JointType, state TrackingState) Body {
	b.Joints[j].State = state
	return b
}

// EnrollGestureBody is a UniformBody holding the enroll pose (left hand
// closed, right hand open).
func EnrollGestureBody(length float64) Body {
	return WithHands(UniformBody(length), HandClosed, HandOpen)
}

// StopGestureBody is a UniformBody holding the stop pose (left hand open,
// right hand closed).
func StopGestureBody(length float64) Body {
	return WithHands(UniformBody(length), HandOpen, HandClosed)
}

// SingleBodyFrame wraps one body in a frame.
func SingleBodyFrame(b Body) Frame {
	return Frame{Bodies: []Body{b}}
}
