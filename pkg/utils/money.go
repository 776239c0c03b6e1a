package utils

import "math"

// ToMinorUnits converts a major-unit amount (dollars) to minor units (cents).
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func FromMinorUnits(amount int64) float64 {
	return float64(amount) / 100
}

func RoundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}
