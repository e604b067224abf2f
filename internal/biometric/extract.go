package biometric

import (
	"github.com/ayusman/skelid/internal/skeleton"
)

// Fingerprint holds one length per segment, in meters for live measurements
// and in centimeters inside a Template.
type Fingerprint [NumSegments]float64

// Get returns the value for segment s.
func (f Fingerprint) Get(s Segment) float64 {
	return f[s]
}

// Void reports whether any segment is Unavailable.
func (f Fingerprint) Void() bool {
	for _, v := range f {
		if v == Unavailable {
			return true
		}
	}
	return false
}

// Centimeters returns f scaled from meters to centimeters. Unavailable
// values are kept as-is.
func (f Fingerprint) Centimeters() Fingerprint {
	var out Fingerprint
	for i, v := range f {
		if v == Unavailable {
			out[i] = Unavailable
			continue
		}
		out[i] = v * 100
	}
	return out
}

// Map returns the fingerprint keyed by segment name.
func (f Fingerprint) Map() map[string]float64 {
	m := make(map[string]float64, NumSegments)
	for i, v := range f {
		m[Segment(i).String()] = v
	}
	return m
}

// BoneLength measures the distance between two joints of a body.
// It returns Unavailable unless both joints are fully Tracked.
func BoneLength(body *skeleton.Body, a, b skeleton.JointType) float64 {
	j0 := body.Joints[a]
	j1 := body.Joints[b]

	// Inferred joints are too unstable to measure.
	if j0.State != skeleton.Tracked || j1.State != skeleton.Tracked {
		return Unavailable
	}

	return skeleton.Distance(j0.Position, j1.Position)
}

// Extract computes the fingerprint of a body. Height is the sum of the left
// shin, left thigh, both spine halves and the neck; it is Unavailable when any
// of those is.
func Extract(body *skeleton.Body) Fingerprint {
	var fp Fingerprint
	for seg, bone := range segmentJoints {
		fp[seg] = BoneLength(body, bone.From, bone.To)
	}
	fp[Height] = deriveHeight(fp)
	return fp
}

func deriveHeight(fp Fingerprint) float64 {
	var h float64
	for _, s := range heightComponents {
		if fp[s] == Unavailable {
			return Unavailable
		}
		h += fp[s]
	}
	return h
}
