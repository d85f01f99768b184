package metrics

import "strconv"

// Round rounds to the given number of decimals on the exact decimal value of
// v, so ties resolve the way a correctly rounded formatter does.
func Round(v float64, places int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil || r == 0 {
		return 0
	}
	return r
}
