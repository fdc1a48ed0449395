package analysis

import "github.com/san-kum/gritsim/internal/sim"

// Point is one sample of a trajectory.
type Point struct{ X, Y float64 }

// Trajectory pairs two series of src sample by sample.
func Trajectory(src sim.Source, xName, yName string) ([]Point, error) {
	xs, err := src.Series(xName)
	if err != nil {
		return nil, err
	}
	ys, err := src.Series(yName)
	if err != nil {
		return nil, err
	}
	points := make([]Point, len(xs))
	for i := range xs {
		points[i] = Point{xs[i], ys[i]}
	}
	return points, nil
}
