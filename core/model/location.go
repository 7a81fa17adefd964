package model

import "gonum.org/v1/gonum/spatial/r2"

// Location is a point in the simulated world. Coordinates are in meters.
type Location struct {
	Name string  `json:"name" yaml:"name"`
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
}

// Vec returns the location as a gonum vector.
func (l Location) Vec() r2.Vec { return r2.Vec{X: l.X, Y: l.Y} }

// DistanceTo returns the straight-line distance to o in meters.
func (l Location) DistanceTo(o Location) float64 {
	return r2.Norm(r2.Sub(l.Vec(), o.Vec()))
}
