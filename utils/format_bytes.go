package utils

import (
	"math"

	"github.com/dustin/go-humanize"
)

// byteUnits are 1024-based; anything past TB is still reported in TB.
var byteUnits = []string{"Bytes", "KB", "MB", "GB", "TB"}

const defaultByteDecimals = 2

// FormatBytes renders a byte count using binary units and two decimals, e.g. "1.5 KB".
func FormatBytes(bytes int64) string {
	return FormatBytesWithDecimals(bytes, defaultByteDecimals)
}

// FormatBytesWithDecimals renders a byte count with at most decimals fractional digits.
// Trailing zeros are dropped, so 1024 renders as "1 KB".
func FormatBytesWithDecimals(bytes int64, decimals int) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	if decimals < 0 {
		decimals = 0
	}

	unit := 0
	value := float64(bytes)
	for value >= 1024 && unit < len(byteUnits)-1 {
		value /= 1024
		unit++
	}

	precision := math.Pow(10, float64(decimals))
	value = math.Round(value*precision) / precision

	return humanize.FtoaWithDigits(value, decimals) + " " + byteUnits[unit]
}
