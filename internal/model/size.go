package model

import (
	"fmt"
	"math"
)

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// CompressionRatio returns the percentage of bytes saved. It is 0 when
// original is 0 and negative when the output grew.
func CompressionRatio(original, compressed int64) float64 {
	if original == 0 {
		return 0
	}

	return float64(original-compressed) / float64(original) * 100
}

// RoundRatio rounds a ratio to one decimal place.
func RoundRatio(r float64) float64 {
	return math.Round(r*10) / 10
}

// FormatSize renders a byte count in binary units with one decimal,
// e.g. "1.5 MB".
func FormatSize(n int64) string {
	size := float64(n)
	unit := 0
	for math.Abs(size) >= 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}

	return fmt.Sprintf("%.1f %s", size, sizeUnits[unit])
}
