// Package session drives enrolment and verification from a stream of tracked
// bodies: gesture counting, sample collection, and identification.
package session

import "fmt"

// State is the machine's current mode.
type State int

const (
	// Verifying identifies every body against the enrolled templates.
	Verifying State = iota
	// StartEnrolment waits for the subject's name on the next frame.
	StartEnrolment
	// CollectingData records fingerprints for the subject being enrolled.
	CollectingData
)

func (s State) String() string {
	switch s {
	case Verifying:
		return "verifying"
	case StartEnrolment:
		return "start_enrolment"
	case CollectingData:
		return "collecting_data"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
