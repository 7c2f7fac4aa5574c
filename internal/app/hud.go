package app

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/handtune/internal/detector"
)

var (
	hudBlue  = color.RGBA{R: 0, G: 0, B: 255, A: 0}
	hudGreen = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	hudWhite = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	hudRed   = color.RGBA{R: 255, G: 0, B: 0, A: 0}
)

// Volume bar geometry in a 640x480 frame.
const (
	barLeft   = 50
	barRight  = 85
	barTop    = 150
	barBottom = 400
)

// volumeBarTop maps 0..100 onto the bar, 100 at the top.
func volumeBarTop(volume int) int {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	return barBottom - (barBottom-barTop)*volume/100
}

// drawHUD paints the last label, volume bar, volume-mode banner and FPS
// onto frame.
func drawHUD(frame *gocv.Mat, s Status) {
	width := frame.Cols()

	if s.VolumeKnown {
		gocv.Rectangle(frame, image.Rect(barLeft, barTop, barRight, barBottom), hudBlue, 3)
		gocv.Rectangle(frame, image.Rect(barLeft, volumeBarTop(s.Volume), barRight, barBottom), hudGreen, -1)
		gocv.PutText(frame, fmt.Sprintf("%d %%", s.Volume), image.Pt(40, 450), gocv.FontHersheyComplex, 1, hudWhite, 2)
	}

	if s.VolumeMode {
		gocv.PutText(frame, "VOL MODE ACTIVE", image.Pt(width-350, 100), gocv.FontHersheyPlain, 2, hudGreen, 2)
	}

	label := s.Label
	if !s.Enabled {
		label = "PAUSED"
	}
	if label != "" {
		gocv.PutText(frame, label, image.Pt(50, 100), gocv.FontHersheyPlain, 3, hudBlue, 3)
	}

	gocv.PutText(frame, fmt.Sprintf("FPS: %d", int(s.FPS)), image.Pt(width-150, 50), gocv.FontHersheyPlain, 2, hudBlue, 2)
}

func pixel(p detector.Point3D) image.Point {
	return image.Pt(int(p.X), int(p.Y))
}

// handBoxPad is the margin between the outermost landmarks and the hand box.
const handBoxPad = 20

// handBox returns the padded bounding box of a hand in frame pixels.
func handBox(hand *detector.HandLandmarks) image.Rectangle {
	lo, hi := hand.Bounds()
	return image.Rect(
		int(lo.X)-handBoxPad, int(lo.Y)-handBoxPad,
		int(hi.X)+handBoxPad, int(hi.Y)+handBoxPad,
	)
}

// drawHand draws the bounding box and skeleton of a hand already scaled
// to frame pixels.
func drawHand(frame *gocv.Mat, hand *detector.HandLandmarks) {
	gocv.Rectangle(frame, handBox(hand), hudGreen, 2)
	for _, c := range detector.Connections {
		gocv.Line(frame, pixel(hand.Points[c[0]]), pixel(hand.Points[c[1]]), hudWhite, 2)
	}
	for _, p := range hand.Points {
		gocv.Circle(frame, pixel(p), 4, hudRed, -1)
	}
}
