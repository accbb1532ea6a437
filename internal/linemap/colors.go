package linemap

import (
	"crypto/sha256"
	"fmt"
	"math"
)

// Color is an RGB triple derived from a line label.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Hex returns the #rrggbb form used in GeoJSON properties and API payloads.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ColorFor assigns a stable color to a line label: the first three bytes of
// the label's SHA-256 digest, each softened toward the middle of the range
// so no label lands on near-black. The same label yields the same color in
// every process, so colors survive restarts and reloads without any stored
// palette.
func ColorFor(label string) Color {
	sum := sha256.Sum256([]byte(label))
	return Color{
		R: soften(sum[0]),
		G: soften(sum[1]),
		B: soften(sum[2]),
	}
}

// Palette assigns colors to every distinct line label in the input.
func Palette(labels []string) map[string]Color {
	colors := make(map[string]Color, len(labels))
	for _, label := range labels {
		colors[label] = ColorFor(label)
	}
	return colors
}

// soften rescales a raw hash byte to 0.8 of its value plus a floor of 50,
// clamped to the byte range.
func soften(b byte) uint8 {
	v := math.Round(float64(b)*0.8 + 50)
	if v > 255 {
		v = 255
	}
	return uint8(v)
}
