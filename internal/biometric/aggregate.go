package biometric

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
)

// DefaultSampleTarget is the number of fingerprints collected per enrollment.
const DefaultSampleTarget = 50

// ErrEmptySession is returned when finalizing a session without samples.
var ErrEmptySession = errors.New("enrollment session has no samples")

// DivisorPolicy selects the denominator used when averaging samples.
type DivisorPolicy int

const (
	// DivideByTotal divides by every collected sample, void ones included.
	// Templates enrolled with void samples are therefore scaled down; existing
	// databases were built this way.
	DivideByTotal DivisorPolicy = iota
	// DivideByValid divides by the number of non-void samples only.
	DivideByValid
)

func (p DivisorPolicy) String() string {
	switch p {
	case DivideByTotal:
		return "total"
	case DivideByValid:
		return "valid"
	default:
		return fmt.Sprintf("DivisorPolicy(%d)", int(p))
	}
}

// ParseDivisorPolicy accepts "total" or "valid".
func ParseDivisorPolicy(s string) (DivisorPolicy, error) {
	switch strings.ToLower(s) {
	case "total", "":
		return DivideByTotal, nil
	case "valid":
		return DivideByValid, nil
	}
	return 0, fmt.Errorf("unknown divisor policy %q", s)
}

// Session is an in-progress enrollment.
type Session struct {
	ID      string
	Name    string
	Samples []Fingerprint
	Target  int
}

// Len returns the number of collected samples.
func (s *Session) Len() int {
	return len(s.Samples)
}

// Aggregator collects enrollment samples and reduces them to a template.
type Aggregator struct {
	Target  int
	Divisor DivisorPolicy
}

// NewAggregator creates an Aggregator. A non-positive target falls back to
// DefaultSampleTarget.
func NewAggregator(target int, divisor DivisorPolicy) *Aggregator {
	if target <= 0 {
		target = DefaultSampleTarget
	}
	return &Aggregator{Target: target, Divisor: divisor}
}

// Begin starts a new enrollment session for name.
func (a *Aggregator) Begin(name string) *Session {
	return &Session{
		ID:      uuid.NewString(),
		Name:    name,
		Samples: make([]Fingerprint, 0, a.Target),
		Target:  a.Target,
	}
}

// Add appends a sample. It returns false, leaving the session untouched,
// once the session already holds Target samples.
func (a *Aggregator) Add(s *Session, fp Fingerprint) bool {
	if len(s.Samples) >= s.Target {
		return false
	}
	s.Samples = append(s.Samples, fp)
	return true
}

// Complete reports whether the session reached its target.
func (a *Aggregator) Complete(s *Session) bool {
	return len(s.Samples) >= s.Target
}

// Finalize averages the session's samples into a centimeter template.
// Samples with any Unavailable segment are skipped. If every sample is void
// the template is all zeros.
func (a *Aggregator) Finalize(s *Session) (Template, error) {
	if len(s.Samples) == 0 {
		return Template{}, ErrEmptySession
	}

	var sum Fingerprint
	valid := 0
	for _, fp := range s.Samples {
		if fp.Void() {
			continue
		}
		floats.Add(sum[:], fp[:])
		valid++
	}

	divisor := len(s.Samples)
	if a.Divisor == DivideByValid {
		divisor = valid
	}

	var avg Fingerprint
	if divisor > 0 {
		for i, v := range sum {
			avg[i] = v * 100 / float64(divisor)
		}
	}

	t := NewTemplate(s.Name, avg)
	t.ID = uuid.NewString()
	return t, nil
}
