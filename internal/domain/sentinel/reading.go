package sentinel

import "time"

// Reading is one sample of the installation sensors.
type Reading struct {
	// Timestamp is when the sample was captured.
	Timestamp time.Time
	// Pressure is the detector pressure in mbar.
	Pressure float64
	// PowerOK is true while external power is present.
	PowerOK bool
	// UPSOK is true while UPS power is present.
	UPSOK bool
	// Stale marks a reading repeated from an earlier sample because the
	// latest read failed or timed out.
	Stale bool
}

// AsStale returns a copy of r flagged as stale.
func (r Reading) AsStale() Reading {
	r.Stale = true

	return r
}

// Evaluate reports the alarm condition for r against threshold.
// The alarm is raised unless power and UPS power are present and the pressure
// is strictly below threshold, so a NaN pressure always raises it.
func Evaluate(r Reading, threshold float64) bool {
	return !(r.PowerOK && r.UPSOK && r.Pressure < threshold)
}
