package biometric

import "time"

// Template is an enrolled, averaged fingerprint in centimeters.
type Template struct {
	ID        string
	Name      string
	Values    Fingerprint
	Present   [NumSegments]bool
	CreatedAt time.Time
}

// NewTemplate builds a template with every segment present.
func NewTemplate(name string, values Fingerprint) Template {
	t := Template{Name: name, Values: values}
	for i := range t.Present {
		t.Present[i] = true
	}
	return t
}

// Value returns the stored value of segment s. ok is false when the stored
// row has no value for it.
func (t Template) Value(s Segment) (float64, bool) {
	if s < 0 || s >= NumSegments || !t.Present[s] {
		return 0, false
	}
	return t.Values[s], true
}

// Band returns the per-segment window [v-width, v+width] around a live
// fingerprint converted to centimeters.
func Band(live Fingerprint, width float64) (lower, upper Fingerprint) {
	for i, v := range live {
		cm := v * 100
		lower[i] = cm - width
		upper[i] = cm + width
	}
	return lower, upper
}
