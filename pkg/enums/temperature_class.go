package enums

import "fmt"

// TemperatureClass describes the thermal handling a package needs.
type TemperatureClass string

const (
	TemperatureClassAmbient TemperatureClass = "ambient"
	TemperatureClassChilled TemperatureClass = "chilled"
	TemperatureClassFrozen  TemperatureClass = "frozen"
)

var validTemperatureClasses = []TemperatureClass{
	TemperatureClassAmbient,
	TemperatureClassChilled,
	TemperatureClassFrozen,
}

// String implements fmt.Stringer.
func (c TemperatureClass) String() string {
	return string(c)
}

// IsValid reports whether the value is a known TemperatureClass.
func (c TemperatureClass) IsValid() bool {
	for _, candidate := range validTemperatureClasses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseTemperatureClass converts raw input into a TemperatureClass.
func ParseTemperatureClass(value string) (TemperatureClass, error) {
	for _, candidate := range validTemperatureClasses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid temperature class %q", value)
}
