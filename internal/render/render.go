// Package render draws tracked skeletons for the live preview.
package render

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/skelid/internal/skeleton"
)

// Depth camera geometry the projection assumes: 512x424 pixels with a
// focal length of about 365 pixels.
const (
	sensorWidth  = 512.0
	sensorHeight = 424.0
	focalLength  = 365.0
)

var (
	trackedBoneColor  = color.RGBA{R: 0, G: 200, B: 0, A: 255}
	inferredBoneColor = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	jointColor        = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	backgroundColor   = color.RGBA{R: 16, G: 16, B: 16, A: 255}
	labelColor        = color.RGBA{R: 230, G: 230, B: 230, A: 255}

	handColors = map[skeleton.HandState]color.RGBA{
		skeleton.HandClosed: {R: 255, G: 0, B: 0, A: 128},
		skeleton.HandOpen:   {R: 0, G: 255, B: 0, A: 128},
		skeleton.HandLasso:  {R: 0, G: 0, B: 255, A: 128},
	}
)

// Renderer draws frames onto images of a fixed size.
type Renderer struct {
	Width     int
	Height    int
	Thickness int
}

// New creates a Renderer for width x height images.
func New(width, height int) *Renderer {
	return &Renderer{Width: width, Height: height, Thickness: 4}
}

// Project maps a camera-space point to image coordinates. Points at or
// behind the sensor plane map to ok=false.
func (r *Renderer) Project(p skeleton.Point3D) (image.Point, bool) {
	if p.Z <= 0 {
		return image.Point{}, false
	}
	sx := float64(r.Width) / sensorWidth
	sy := float64(r.Height) / sensorHeight

	x := float64(r.Width)/2 + focalLength*sx*p.X/p.Z
	y := float64(r.Height)/2 - focalLength*sy*p.Y/p.Z
	return image.Pt(int(x+0.5), int(y+0.5)), true
}

// BoneSegment is one drawable line.
type BoneSegment struct {
	From, To image.Point
	Inferred bool
}

// Segments returns the drawable bones of body. A bone is drawn only when
// neither joint is NotTracked; it is marked inferred unless both are
// Tracked.
func (r *Renderer) Segments(body *skeleton.Body) []BoneSegment {
	var out []BoneSegment
	for _, bone := range skeleton.Bones {
		a, b := body.Joints[bone.From], body.Joints[bone.To]
		if a.State == skeleton.NotTracked || b.State == skeleton.NotTracked {
			continue
		}
		pa, okA := r.Project(a.Position)
		pb, okB := r.Project(b.Position)
		if !okA || !okB {
			continue
		}
		out = append(out, BoneSegment{
			From:     pa,
			To:       pb,
			Inferred: a.State != skeleton.Tracked || b.State != skeleton.Tracked,
		})
	}
	return out
}

// Draw renders every tracked body of f onto img, which must be r.Width x
// r.Height.
func (r *Renderer) Draw(img *gocv.Mat, f *skeleton.Frame, label string) {
	for _, body := range f.TrackedBodies() {
		for _, seg := range r.Segments(body) {
			c := trackedBoneColor
			thickness := r.Thickness
			if seg.Inferred {
				c = inferredBoneColor
				thickness = 1
			}
			gocv.Line(img, seg.From, seg.To, c, thickness)
		}

		for _, j := range body.Joints {
			if j.State != skeleton.Tracked {
				continue
			}
			if p, ok := r.Project(j.Position); ok {
				gocv.Circle(img, p, 3, jointColor, -1)
			}
		}

		r.drawHand(img, body.Joints[skeleton.HandLeft], body.HandLeft)
		r.drawHand(img, body.Joints[skeleton.HandRight], body.HandRight)
	}

	if label != "" {
		gocv.PutText(img, label, image.Pt(10, 30), gocv.FontHersheySimplex, 0.9, labelColor, 2)
	}
}

func (r *Renderer) drawHand(img *gocv.Mat, joint skeleton.Joint, state skeleton.HandState) {
	c, ok := handColors[state]
	if !ok || joint.State == skeleton.NotTracked {
		return
	}
	if p, ok := r.Project(joint.Position); ok {
		gocv.Circle(img, p, 20, c, -1)
	}
}

// JPEG renders f on a blank canvas and returns it JPEG-encoded.
func (r *Renderer) JPEG(f *skeleton.Frame, label string) ([]byte, error) {
	img := gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(backgroundColor.B), float64(backgroundColor.G), float64(backgroundColor.R), 0),
		r.Height, r.Width, gocv.MatTypeCV8UC3,
	)
	defer img.Close()

	r.Draw(&img, f, label)

	buf, err := gocv.IMEncode(".jpg", img)
	if err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
