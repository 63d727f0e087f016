package sensor

import "math"

const (
	// powerGoodMask selects the PG_STAT bit of the PMIC system status byte.
	powerGoodMask = 0x04

	// UPSCountsThreshold is the ADC count above which UPS power is present:
	// 1.3 V on a 3.3 V, 12-bit converter.
	UPSCountsThreshold = 1614

	// ADC scale and gauge calibration: the 0-10 V gauge output is divided down
	// to 3.3 V and digitized on 4096 channels.
	adcChannels    = 4096.0
	pressureScale  = 6263.0
	pressureOffset = 631.4
)

// PowerFromStatus reports external power from the PMIC system status byte.
func PowerFromStatus(status byte) bool {
	return status&powerGoodMask != 0
}

// UPSFromCounts reports UPS power from the UPS sense ADC counts.
func UPSFromCounts(counts int64) bool {
	return counts > UPSCountsThreshold
}

// PressureFromCounts converts gauge ADC counts to mbar.
func PressureFromCounts(counts int64) float64 {
	return pressureScale*float64(counts)/adcChannels - pressureOffset
}

// CountsFromPressure is the inverse of PressureFromCounts, rounded to the
// nearest count. It is used by simulators and tests.
func CountsFromPressure(mbar float64) int64 {
	return int64(math.Round((mbar + pressureOffset) * adcChannels / pressureScale))
}
