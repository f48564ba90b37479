// Package units provides shared constants and validation for the length,
// energy and charge units the digitizer reads and writes.
//
// Internally positions are millimetres, energies are electronvolts and
// charges are coulombs.
package units

import "strings"

// ElementaryCharge is the charge of one electron in coulombs.
const ElementaryCharge = 1.602176634e-19

// Length unit constants
const (
	UM = "um"
	MM = "mm"
	CM = "cm"
	M  = "m"
)

// Energy unit constants
const (
	EV  = "eV"
	KEV = "keV"
	MEV = "MeV"
)

// ValidLengthUnits contains all valid length units
var ValidLengthUnits = []string{UM, MM, CM, M}

// ValidEnergyUnits contains all valid energy units
var ValidEnergyUnits = []string{EV, KEV, MEV}

// IsValidLength checks if the given unit is a known length unit
func IsValidLength(unit string) bool {
	return contains(ValidLengthUnits, unit)
}

// IsValidEnergy checks if the given unit is a known energy unit
func IsValidEnergy(unit string) bool {
	return contains(ValidEnergyUnits, unit)
}

func contains(list []string, unit string) bool {
	for _, u := range list {
		if unit == u {
			return true
		}
	}
	return false
}

// GetValidLengthUnitsString returns a comma-separated list for error messages
func GetValidLengthUnitsString() string {
	return strings.Join(ValidLengthUnits, ", ")
}

// GetValidEnergyUnitsString returns a comma-separated list for error messages
func GetValidEnergyUnitsString() string {
	return strings.Join(ValidEnergyUnits, ", ")
}

// ToMillimetres converts a length in the given unit to millimetres.
// Unknown units are treated as millimetres.
func ToMillimetres(v float64, unit string) float64 {
	switch unit {
	case UM:
		return v * 1e-3
	case CM:
		return v * 10
	case M:
		return v * 1e3
	default:
		return v
	}
}

// ToElectronvolts converts an energy in the given unit to electronvolts.
// Unknown units are treated as electronvolts.
func ToElectronvolts(v float64, unit string) float64 {
	switch unit {
	case KEV:
		return v * 1e3
	case MEV:
		return v * 1e6
	default:
		return v
	}
}

// ElectronsToCoulombs converts an electron count to coulombs.
func ElectronsToCoulombs(n float64) float64 {
	return n * ElementaryCharge
}

// CoulombsToElectrons converts a charge in coulombs to an electron count.
func CoulombsToElectrons(q float64) float64 {
	return q / ElementaryCharge
}
