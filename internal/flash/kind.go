// Package flash classifies consecutive frame metrics into flash events and
// tracks them in time-bounded sliding windows.
package flash

// Kind identifies the category of a flash event.
type Kind int

const (
	// KindGeneral is a rapid change in overall luminance.
	KindGeneral Kind = iota
	// KindRed is a rapid change in the saturated-red pixel ratio.
	KindRed
)

// String returns a string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindGeneral:
		return "general"
	case KindRed:
		return "red"
	default:
		return "unknown"
	}
}
