// Package skeleton provides the body-tracking types produced by a depth sensor:
// joints, tracking quality, hand poses and frames.
package skeleton

import (
	"fmt"
	"strings"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// JointType identifies a tracked joint. Values follow the Kinect v2 body model.
type JointType int

const (
	SpineBase JointType = iota
	SpineMid
	Neck
	Head
	ShoulderLeft
	ElbowLeft
	WristLeft
	HandLeft
	ShoulderRight
	ElbowRight
	WristRight
	HandRight
	HipLeft
	KneeLeft
	AnkleLeft
	FootLeft
	HipRight
	KneeRight
	AnkleRight
	FootRight
	SpineShoulder
	HandTipLeft
	ThumbLeft
	HandTipRight
	ThumbRight
	NumJoints
)

var jointNames = [NumJoints]string{
	"SpineBase", "SpineMid", "Neck", "Head",
	"ShoulderLeft", "ElbowLeft", "WristLeft", "HandLeft",
	"ShoulderRight", "ElbowRight", "WristRight", "HandRight",
	"HipLeft", "KneeLeft", "AnkleLeft", "FootLeft",
	"HipRight", "KneeRight", "AnkleRight", "FootRight",
	"SpineShoulder", "HandTipLeft", "ThumbLeft", "HandTipRight", "ThumbRight",
}

func (j JointType) String() string {
	if j < 0 || j >= NumJoints {
		return fmt.Sprintf("JointType(%d)", int(j))
	}
	return jointNames[j]
}

// ParseJointType maps a joint name (case-insensitive) to its JointType.
func ParseJointType(name string) (JointType, error) {
	for i, n := range jointNames {
		if strings.EqualFold(n, name) {
			return JointType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown joint %q", name)
}

// TrackingState is the per-joint tracking quality reported by the sensor.
type TrackingState int

const (
	NotTracked TrackingState = iota
	Inferred
	Tracked
)

func (s TrackingState) String() string {
	switch s {
	case NotTracked:
		return "not_tracked"
	case Inferred:
		return "inferred"
	case Tracked:
		return "tracked"
	default:
		return fmt.Sprintf("TrackingState(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s TrackingState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *TrackingState) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "not_tracked", "nottracked", "":
		*s = NotTracked
	case "inferred":
		*s = Inferred
	case "tracked":
		*s = Tracked
	default:
		return fmt.Errorf("unknown tracking state %q", string(b))
	}
	return nil
}

// HandState is the pose of one hand.
type HandState int

const (
	HandUnknown HandState = iota
	HandNotTracked
	HandOpen
	HandClosed
	HandLasso
)

func (h HandState) String() string {
	switch h {
	case HandUnknown:
		return "unknown"
	case HandNotTracked:
		return "not_tracked"
	case HandOpen:
		return "open"
	case HandClosed:
		return "closed"
	case HandLasso:
		return "lasso"
	default:
		return fmt.Sprintf("HandState(%d)", int(h))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (h HandState) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *HandState) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "unknown", "":
		*h = HandUnknown
	case "not_tracked", "nottracked":
		*h = HandNotTracked
	case "open":
		*h = HandOpen
	case "closed":
		*h = HandClosed
	case "lasso":
		*h = HandLasso
	default:
		return fmt.Errorf("unknown hand state %q", string(b))
	}
	return nil
}

// Point3D is a camera-space position in meters.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point3D) float64 {
	return r3.Norm(r3.Sub(r3.Vec(a), r3.Vec(b)))
}

// Joint is one joint position together with its tracking quality.
type Joint struct {
	Position Point3D       `json:"position"`
	State    TrackingState `json:"state"`
}

// Body is one tracked person in a frame.
type Body struct {
	TrackingID uint64
	Tracked    bool
	Joints     [NumJoints]Joint
	HandLeft   HandState
	HandRight  HandState
}

// Frame is a single sensor delivery containing every body slot.
type Frame struct {
	Timestamp time.Time
	Bodies    []Body
}

// TrackedBodies returns the bodies the sensor is currently tracking.
func (f *Frame) TrackedBodies() []*Body {
	var out []*Body
	for i := range f.Bodies {
		if f.Bodies[i].Tracked {
			out = append(out, &f.Bodies[i])
		}
	}
	return out
}
