// Package biometric turns skeletons into body-segment fingerprints, averages
// enrollment samples into templates and scores live fingerprints against them.
package biometric

import (
	"fmt"

	"github.com/ayusman/skelid/internal/skeleton"
)

// Segment names one measured body segment of a fingerprint.
type Segment int

const (
	Neck Segment = iota
	LeftShin
	RightShin
	LeftThigh
	RightThigh
	ForearmLeft
	ForearmRight
	UpperarmLeft
	UpperarmRight
	SpineLower
	SpineUpper
	ShoulderWidth
	HipWidth
	Height
	NumSegments
)

// Unavailable marks a segment whose length could not be measured this frame.
const Unavailable = -1.0

var segmentNames = [NumSegments]string{
	"neck",
	"left_shin",
	"right_shin",
	"left_thigh",
	"right_thigh",
	"forearm_left",
	"forearm_right",
	"upperarm_left",
	"upperarm_right",
	"spine_lower",
	"spine_upper",
	"shoulder_width",
	"hip_width",
	"height",
}

// String returns the segment's column name.
func (s Segment) String() string {
	if s < 0 || s >= NumSegments {
		return fmt.Sprintf("Segment(%d)", int(s))
	}
	return segmentNames[s]
}

// ParseSegment maps a column name back to its Segment.
func ParseSegment(name string) (Segment, error) {
	for i, n := range segmentNames {
		if n == name {
			return Segment(i), nil
		}
	}
	return 0, fmt.Errorf("unknown segment %q", name)
}

// Segments returns all segments in column order.
func Segments() []Segment {
	out := make([]Segment, NumSegments)
	for i := range out {
		out[i] = Segment(i)
	}
	return out
}

// segmentJoints defines the joint pair measured for every segment except Height,
// which is derived.
var segmentJoints = map[Segment]skeleton.Bone{
	Neck:          {From: skeleton.Neck, To: skeleton.Head},
	LeftShin:      {From: skeleton.AnkleLeft, To: skeleton.KneeLeft},
	RightShin:     {From: skeleton.AnkleRight, To: skeleton.KneeRight},
	LeftThigh:     {From: skeleton.KneeLeft, To: skeleton.HipLeft},
	RightThigh:    {From: skeleton.KneeRight, To: skeleton.HipRight},
	ForearmLeft:   {From: skeleton.HandLeft, To: skeleton.ElbowLeft},
	ForearmRight:  {From: skeleton.HandRight, To: skeleton.ElbowRight},
	UpperarmLeft:  {From: skeleton.ShoulderLeft, To: skeleton.ElbowLeft},
	UpperarmRight: {From: skeleton.ShoulderRight, To: skeleton.ElbowRight},
	SpineLower:    {From: skeleton.SpineBase, To: skeleton.SpineMid},
	SpineUpper:    {From: skeleton.SpineShoulder, To: skeleton.SpineMid},
	ShoulderWidth: {From: skeleton.ShoulderLeft, To: skeleton.ShoulderRight},
	HipWidth:      {From: skeleton.HipLeft, To: skeleton.HipRight},
}

// heightComponents are summed, in this order, to derive Height.
var heightComponents = [...]Segment{LeftShin, LeftThigh, SpineLower, SpineUpper, Neck}

// JointsOf returns the joint pair a segment is measured between.
// ok is false for Height.
func JointsOf(s Segment) (skeleton.Bone, bool) {
	b, ok := segmentJoints[s]
	return b, ok
}
