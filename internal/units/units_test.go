package units

import (
	"math"
	"testing"
)

func TestToMillimetres(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		unit     string
		expected float64
	}{
		{"um to mm", 250, UM, 0.25},
		{"mm to mm", 12.5, MM, 12.5},
		{"cm to mm", 4, CM, 40},
		{"m to mm", 0.5, M, 500},
		{"unknown defaults to mm", 3, "furlong", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToMillimetres(tt.value, tt.unit)
			if math.Abs(result-tt.expected) > 1e-12 {
				t.Errorf("ToMillimetres(%f, %s) = %f, want %f", tt.value, tt.unit, result, tt.expected)
			}
		})
	}
}

func TestToElectronvolts(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		unit     string
		expected float64
	}{
		{"eV", 26.2, EV, 26.2},
		{"keV", 1.5, KEV, 1500},
		{"MeV", 2, MEV, 2e6},
		{"unknown defaults to eV", 7, "erg", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToElectronvolts(tt.value, tt.unit)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("ToElectronvolts(%f, %s) = %f, want %f", tt.value, tt.unit, result, tt.expected)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		check    func(string) bool
		unit     string
		expected bool
	}{
		{"valid mm", IsValidLength, MM, true},
		{"valid m", IsValidLength, M, true},
		{"length case sensitive", IsValidLength, "MM", false},
		{"valid keV", IsValidEnergy, KEV, true},
		{"energy case sensitive", IsValidEnergy, "kev", false},
		{"empty energy", IsValidEnergy, "", false},
		{"valid cm/us", IsValidVelocity, CMPerUS, true},
		{"invalid velocity", IsValidVelocity, "mph", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(tt.unit); got != tt.expected {
				t.Errorf("check(%q) = %v, want %v", tt.unit, got, tt.expected)
			}
		})
	}
}

func TestValidUnitsStrings(t *testing.T) {
	if got := GetValidLengthUnitsString(); got != "um, mm, cm, m" {
		t.Errorf("GetValidLengthUnitsString() = %s", got)
	}
	if got := GetValidEnergyUnitsString(); got != "eV, keV, MeV" {
		t.Errorf("GetValidEnergyUnitsString() = %s", got)
	}
}

func TestChargeConversionRoundTrip(t *testing.T) {
	q := ElectronsToCoulombs(1000)
	if math.Abs(q-1.602176634e-16) > 1e-28 {
		t.Errorf("ElectronsToCoulombs(1000) = %g", q)
	}
	if n := CoulombsToElectrons(q); math.Abs(n-1000) > 1e-9 {
		t.Errorf("CoulombsToElectrons(%g) = %g, want 1000", q, n)
	}
}
