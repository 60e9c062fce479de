// Package source provides deterministic synthetic frame generators, used by
// the demo mode and by scenario tests. Generators produce solid-color frames
// with session-monotonic timestamps; no decoding is involved.
package source

import (
	"context"
	"time"

	"strobeguard/internal/analysis"
)

// Generator produces the next frame of a synthetic sequence.
type Generator interface {
	Next() *analysis.Frame
}

// SolidFrame builds a frame filled with one RGB color.
func SolidFrame(width, height int, r, g, b uint8, timestampMs float64) *analysis.Frame {
	pix := make([]byte, width*height*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i] = r
		pix[i+1] = g
		pix[i+2] = b
		pix[i+3] = 0xff
	}
	return &analysis.Frame{
		Width:       width,
		Height:      height,
		Pix:         pix,
		TimestampMs: timestampMs,
	}
}

// Alternator flips between a bright and a dark gray frame every period,
// producing the luminance oscillation a strobing video would.
type Alternator struct {
	width, height int
	intervalMs    float64
	periodMs      float64
	bright, dark  uint8
	n             int
}

// NewAlternator creates an alternator emitting frames every intervalMs,
// switching between the bright and dark levels every periodMs.
func NewAlternator(width, height int, intervalMs, periodMs float64, bright, dark uint8) *Alternator {
	return &Alternator{
		width:      width,
		height:     height,
		intervalMs: intervalMs,
		periodMs:   periodMs,
		bright:     bright,
		dark:       dark,
	}
}

// Next returns the next frame of the alternating sequence.
func (a *Alternator) Next() *analysis.Frame {
	ts := float64(a.n) * a.intervalMs
	level := a.bright
	if int(ts/a.periodMs)%2 == 1 {
		level = a.dark
	}
	a.n++
	return SolidFrame(a.width, a.height, level, level, level, ts)
}

// RedPulser flips between a neutral gray frame and a saturated red frame
// every period, producing the red-flash oscillation.
type RedPulser struct {
	width, height int
	intervalMs    float64
	periodMs      float64
	n             int
}

// NewRedPulser creates a red pulser emitting frames every intervalMs,
// switching between gray and saturated red every periodMs.
func NewRedPulser(width, height int, intervalMs, periodMs float64) *RedPulser {
	return &RedPulser{
		width:      width,
		height:     height,
		intervalMs: intervalMs,
		periodMs:   periodMs,
	}
}

// Next returns the next frame of the pulsing sequence.
func (p *RedPulser) Next() *analysis.Frame {
	ts := float64(p.n) * p.intervalMs
	p.n++
	if int(ts/p.periodMs)%2 == 1 {
		return SolidFrame(p.width, p.height, 0xff, 0x20, 0x20, ts)
	}
	return SolidFrame(p.width, p.height, 0x80, 0x80, 0x80, ts)
}

// Play drives a generator on a ticker, feeding each frame to the supplied
// function until the context is cancelled. The feed function receives frames
// serially, matching the session contract.
func Play(ctx context.Context, g Generator, interval time.Duration, feed func(*analysis.Frame)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			feed(g.Next())
		}
	}
}
