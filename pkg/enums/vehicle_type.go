package enums

import "fmt"

// VehicleType constrains what a rider can physically carry.
type VehicleType string

const (
	VehicleTypeBike    VehicleType = "bike"
	VehicleTypeScooter VehicleType = "scooter"
	VehicleTypeCar     VehicleType = "car"
	VehicleTypeVan     VehicleType = "van"
)

var validVehicleTypes = []VehicleType{
	VehicleTypeBike,
	VehicleTypeScooter,
	VehicleTypeCar,
	VehicleTypeVan,
}

// VehicleCapacity bounds package weight and volume per vehicle type.
type VehicleCapacity struct {
	MaxWeightKg  float64
	MaxVolumeCm3 float64
}

var vehicleCapacities = map[VehicleType]VehicleCapacity{
	VehicleTypeBike:    {MaxWeightKg: 5, MaxVolumeCm3: 50_000},
	VehicleTypeScooter: {MaxWeightKg: 15, MaxVolumeCm3: 150_000},
	VehicleTypeCar:     {MaxWeightKg: 50, MaxVolumeCm3: 500_000},
	VehicleTypeVan:     {MaxWeightKg: 200, MaxVolumeCm3: 2_000_000},
}

// String implements fmt.Stringer.
func (v VehicleType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VehicleType.
func (v VehicleType) IsValid() bool {
	for _, candidate := range validVehicleTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// Capacity returns the weight/volume bounds for the vehicle type.
func (v VehicleType) Capacity() (VehicleCapacity, bool) {
	c, ok := vehicleCapacities[v]
	return c, ok
}

// ParseVehicleType converts raw input into a VehicleType.
func ParseVehicleType(value string) (VehicleType, error) {
	for _, candidate := range validVehicleTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vehicle type %q", value)
}
