package utils

// TruncateLabel shortens a label to at most max runes, appending "..." when
// anything was cut. Labels shorter than or equal to max pass through.
func TruncateLabel(input string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(input)
	if len(runes) <= max {
		return input
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// SumInts adds up a tally slice.
func SumInts(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}
