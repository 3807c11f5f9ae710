package schedule

// OffsetTable maps a free-text jurisdiction label to a fixed UTC offset
// in minutes. No daylight-saving adjustment is applied; offsets are the
// standard-time values. Unknown labels resolve to 0 so bad input data
// never halts scheduling.
type OffsetTable map[string]int

// Offset returns the UTC offset in minutes for the label, or 0 when the
// label is unrecognized.
func (t OffsetTable) Offset(label string) int {
	return t[label]
}

// DefaultOffsets covers the jurisdictions cases are filed under today.
func DefaultOffsets() OffsetTable {
	return OffsetTable{
		"Alabama":        -360,
		"Arizona":        -420,
		"California":     -480,
		"Colorado":       -420,
		"Florida":        -300,
		"Georgia":        -300,
		"Illinois":       -360,
		"Massachusetts":  -300,
		"Michigan":       -300,
		"Nevada":         -480,
		"New Jersey":     -300,
		"New York":       -300,
		"North Carolina": -300,
		"Ohio":           -300,
		"Oregon":         -480,
		"Pennsylvania":   -300,
		"Texas":          -360,
		"Virginia":       -300,
		"Washington":     -480,
		"Washington DC":  -300,
		"India":          330,
		"United Kingdom": 0,
	}
}
