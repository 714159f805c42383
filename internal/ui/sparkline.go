package ui

import "strings"

// SparklineChars are the Unicode block characters for rendering sparklines.
// 8 levels of height from near-empty to full.
var SparklineChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders a series of quality scores as block characters.
// Values are scaled against the series maximum, so a flat-but-high run
// and a flat-but-low run both render as a level line; the caller's
// labels carry the absolute numbers. When the series is longer than
// width, only the most recent width values are drawn.
func Sparkline(values []float64, width int) string {
	if width <= 0 {
		width = 20
	}
	if len(values) == 0 {
		return strings.Repeat(" ", width)
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	max := 0.0
	for _, v := range values {
		if v > max {
			max = v
		}
	}

	var sb strings.Builder
	sb.Grow(width * 3)
	for _, v := range values {
		idx := 0
		if max > 0 && v > 0 {
			idx = int(v / max * float64(len(SparklineChars)-1))
			if idx >= len(SparklineChars) {
				idx = len(SparklineChars) - 1
			}
		}
		sb.WriteRune(SparklineChars[idx])
	}
	for i := len(values); i < width; i++ {
		sb.WriteRune(' ')
	}
	return sb.String()
}
