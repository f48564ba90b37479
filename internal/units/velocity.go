package units

// Drift velocity unit constants
const (
	MMPerNS = "mm/ns"
	CMPerUS = "cm/us"
	MMPerUS = "mm/us"
)

// ValidVelocityUnits contains all valid drift velocity units
var ValidVelocityUnits = []string{MMPerNS, CMPerUS, MMPerUS}

// IsValidVelocity checks if the given unit is a known drift velocity unit
func IsValidVelocity(unit string) bool {
	return contains(ValidVelocityUnits, unit)
}

// ToMillimetresPerNanosecond converts a drift velocity to mm/ns, the unit in
// which drift times come out in nanoseconds for millimetre drift lengths.
// Unknown units are treated as mm/ns.
func ToMillimetresPerNanosecond(v float64, unit string) float64 {
	switch unit {
	case CMPerUS:
		return v * 1e-2
	case MMPerUS:
		return v * 1e-3
	default:
		return v
	}
}
