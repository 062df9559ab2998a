package enums

import "fmt"

// EnergyType maps to the energy_type_enum enum in Postgres.
type EnergyType string

const (
	EnergyTypeGas         EnergyType = "gas"
	EnergyTypeElectricity EnergyType = "electricity"
	EnergyTypeWater       EnergyType = "water"
)

var validEnergyTypes = []EnergyType{
	EnergyTypeGas,
	EnergyTypeElectricity,
	EnergyTypeWater,
}

// EnergyTypes returns the canonical energy types in display order.
func EnergyTypes() []EnergyType {
	out := make([]EnergyType, len(validEnergyTypes))
	copy(out, validEnergyTypes)
	return out
}

// DefaultUnit returns the measurement unit used when a usage record carries none.
func (t EnergyType) DefaultUnit() string {
	switch t {
	case EnergyTypeElectricity:
		return "kWh"
	case EnergyTypeGas, EnergyTypeWater:
		return "m3"
	}
	return ""
}

// IsValid reports whether the value matches the canonical energy type enum.
func (t EnergyType) IsValid() bool {
	for _, candidate := range validEnergyTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseEnergyType converts raw input into EnergyType.
func ParseEnergyType(value string) (EnergyType, error) {
	for _, candidate := range validEnergyTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid energy type %q", value)
}
