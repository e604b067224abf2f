package skeleton

import (
	"encoding/json"
	"fmt"
	"time"
)

// jsonFrame is the newline-delimited JSON layout written by capture bridges
// and recorded replay files.
type jsonFrame struct {
	Timestamp int64      `json:"timestamp"` // unix milliseconds
	Bodies    []jsonBody `json:"bodies"`
}

type jsonBody struct {
	TrackingID uint64               `json:"tracking_id"`
	Tracked    bool                 `json:"tracked"`
	HandLeft   HandState            `json:"hand_left"`
	HandRight  HandState            `json:"hand_right"`
	Joints     map[string]jsonJoint `json:"joints"`
}

type jsonJoint struct {
	X     float64       `json:"x"`
	Y     float64       `json:"y"`
	Z     float64       `json:"z"`
	State TrackingState `json:"state"`
}

// DecodeFrame parses one JSON frame. Joints absent from the payload are
// left NotTracked.
func DecodeFrame(data []byte) (Frame, error) {
	var jf jsonFrame
	if err := json.Unmarshal(data, &jf); err != nil {
		return Frame{}, fmt.Errorf("parse frame: %w", err)
	}

	frame := Frame{
		Timestamp: time.UnixMilli(jf.Timestamp),
		Bodies:    make([]Body, 0, len(jf.Bodies)),
	}
	for i, jb := range jf.Bodies {
		body, err := jb.toBody()
		if err != nil {
			return Frame{}, fmt.Errorf("body %d: %w", i, err)
		}
		frame.Bodies = append(frame.Bodies, body)
	}
	return frame, nil
}

// EncodeFrame renders a frame in the same layout DecodeFrame accepts.
// NotTracked joints are omitted.
func EncodeFrame(f Frame) ([]byte, error) {
	jf := jsonFrame{
		Timestamp: f.Timestamp.UnixMilli(),
		Bodies:    make([]jsonBody, 0, len(f.Bodies)),
	}
	for _, b := range f.Bodies {
		jb := jsonBody{
			TrackingID: b.TrackingID,
			Tracked:    b.Tracked,
			HandLeft:   b.HandLeft,
			HandRight:  b.HandRight,
			Joints:     make(map[string]jsonJoint),
		}
		for j, joint := range b.Joints {
			if joint.State == NotTracked {
				continue
			}
			jb.Joints[JointType(j).String()] = jsonJoint{
				X:     joint.Position.X,
				Y:     joint.Position.Y,
				Z:     joint.Position.Z,
				State: joint.State,
			}
		}
		jf.Bodies = append(jf.Bodies, jb)
	}
	return json.Marshal(jf)
}

func (jb jsonBody) toBody() (Body, error) {
	body := Body{
		TrackingID: jb.TrackingID,
		Tracked:    jb.Tracked,
		HandLeft:   jb.HandLeft,
		HandRight:  jb.HandRight,
	}
	for name, jj := range jb.Joints {
		jt, err := ParseJointType(name)
		if err != nil {
			return Body{}, err
		}
		body.Joints[jt] = Joint{
			Position: Point3D{X: jj.X, Y: jj.Y, Z: jj.Z},
			State:    jj.State,
		}
	}
	return body, nil
}
