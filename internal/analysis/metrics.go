// Package analysis extracts per-frame brightness metrics from raw RGBA
// pixel buffers. Extraction is a pure function of the frame contents: the
// same frame always yields the same metrics.
package analysis

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Default analysis bounds. Frames larger than the maximum analysis
// resolution are downscaled before sampling, purely to bound per-frame cost.
const (
	DefaultMaxWidth     = 640
	DefaultMaxHeight    = 360
	DefaultSampleStride = 4
)

// Saturated-red channel bounds in the 8-bit domain.
const (
	redChannelMin   = 200
	greenChannelMax = 100
	blueChannelMax  = 100
)

// FrameMetrics is the compact numeric summary of one frame. Immutable once
// produced.
type FrameMetrics struct {
	// Luminance is the mean WCAG relative luminance of the sampled pixels,
	// in [0,1].
	Luminance float64
	// RedSaturationRatio is the fraction of sampled pixels that are
	// saturated red, in [0,1].
	RedSaturationRatio float64
	TimestampMs        float64
}

// srgbToLinear maps an 8-bit sRGB channel value to linear light.
var srgbToLinear = func() [256]float64 {
	var lut [256]float64
	for i := range lut {
		c := float64(i) / 255.0
		if c <= 0.03928 {
			lut[i] = c / 12.92
		} else {
			lut[i] = math.Pow((c+0.055)/1.055, 2.4)
		}
	}
	return lut
}()

// Extractor computes FrameMetrics from frames. The zero value is not usable;
// construct with NewExtractor.
type Extractor struct {
	maxWidth     int
	maxHeight    int
	sampleStride int
}

// NewExtractor returns an extractor with the given analysis bounds.
// Non-positive values fall back to the defaults.
func NewExtractor(maxWidth, maxHeight, sampleStride int) *Extractor {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	if maxHeight <= 0 {
		maxHeight = DefaultMaxHeight
	}
	if sampleStride <= 0 {
		sampleStride = DefaultSampleStride
	}
	return &Extractor{
		maxWidth:     maxWidth,
		maxHeight:    maxHeight,
		sampleStride: sampleStride,
	}
}

// Extract computes the metrics for one frame in a single pass over a
// stride-sampled subset of its pixels. Invalid or empty frames yield zero
// metrics (carrying the frame timestamp), which downstream classification
// treats as a dark frame.
func (e *Extractor) Extract(f *Frame) FrameMetrics {
	m := FrameMetrics{}
	if f != nil {
		m.TimestampMs = f.TimestampMs
	}
	if !f.Valid() {
		return m
	}

	pix := f.Pix[:f.Width*f.Height*4]
	if f.Width > e.maxWidth || f.Height > e.maxHeight {
		pix = e.downscale(f)
	}

	var lumSum float64
	var redCount, sampled int
	step := e.sampleStride * 4
	for i := 0; i+3 < len(pix); i += step {
		r, g, b := pix[i], pix[i+1], pix[i+2]
		lumSum += 0.2126*srgbToLinear[r] + 0.7152*srgbToLinear[g] + 0.0722*srgbToLinear[b]
		if r > redChannelMin && g < greenChannelMax && b < blueChannelMax {
			redCount++
		}
		sampled++
	}
	if sampled == 0 {
		return m
	}

	m.Luminance = lumSum / float64(sampled)
	m.RedSaturationRatio = float64(redCount) / float64(sampled)
	return m
}

// downscale resizes the frame to fit within the analysis bounds, preserving
// aspect ratio, and returns the resized RGBA pixels.
func (e *Extractor) downscale(f *Frame) []byte {
	sx := float64(e.maxWidth) / float64(f.Width)
	sy := float64(e.maxHeight) / float64(f.Height)
	scale := math.Min(sx, sy)

	w := int(float64(f.Width) * scale)
	h := int(float64(f.Height) * scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Rect, f.rgba(), f.rgba().Rect, draw.Src, nil)
	return dst.Pix
}
