package types

import "fmt"

// Coordinates is a longitude/latitude pair in WGS84 degrees.
type Coordinates struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// Validate rejects coordinates outside the valid WGS84 ranges. The zero
// value (0,0) is treated as unset because no supported market sits on the
// null island intersection.
func (c Coordinates) Validate() error {
	if c.IsZero() {
		return fmt.Errorf("coordinates are required")
	}
	if c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("longitude %f out of range", c.Lng)
	}
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %f out of range", c.Lat)
	}
	return nil
}

// IsZero reports whether the pair is unset.
func (c Coordinates) IsZero() bool {
	return c.Lng == 0 && c.Lat == 0
}
