// Package money provides the rounding rules applied to every currency and
// quantity figure before it is stored or returned.
package money

import "math"

// machineEpsilon nudges values sitting just under a half step so that
// accumulated float error does not flip a round-half case downward.
const machineEpsilon = 1e-9

// Round rounds v to the given number of decimal places, half away from zero.
// Non-finite inputs collapse to 0.
func Round(v float64, precision int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	factor := math.Pow10(precision)
	r := math.Floor((math.Abs(v)+machineEpsilon)*factor+0.5) / factor
	return math.Copysign(r, v)
}

// RoundMoney rounds a currency amount to 2 decimal places.
func RoundMoney(v float64) float64 {
	return Round(v, 2)
}
