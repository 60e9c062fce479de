package analysis

import (
	"image"
	"image/draw"
)

// Frame is a single decoded video frame handed to the engine by the caller.
// The engine treats it as read-only and never retains a reference past the
// call it was passed to.
type Frame struct {
	Width  int
	Height int
	// Pix holds the pixels in RGBA order, 4 bytes per pixel, row-major,
	// with no padding between rows.
	Pix []byte
	// TimestampMs is the capture position in milliseconds, monotonic while
	// the owning session is active.
	TimestampMs float64
}

// Valid reports whether the frame has a positive area and a pixel buffer
// large enough to hold it.
func (f *Frame) Valid() bool {
	if f == nil || f.Width <= 0 || f.Height <= 0 {
		return false
	}
	return len(f.Pix) >= f.Width*f.Height*4
}

// rgba wraps the frame's pixel buffer as an *image.RGBA without copying.
func (f *Frame) rgba() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Width * 4,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// FrameFromImage copies an image into a Frame with the given timestamp.
// Intended for callers that decode via the image package rather than
// producing raw RGBA buffers themselves.
func FrameFromImage(img image.Image, timestampMs float64) *Frame {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	return &Frame{
		Width:       b.Dx(),
		Height:      b.Dy(),
		Pix:         dst.Pix,
		TimestampMs: timestampMs,
	}
}
