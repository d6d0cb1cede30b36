package rbox

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch reports batches or rows with incompatible sizes.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrInvalidMode reports an unknown angle convention.
	ErrInvalidMode = errors.New("invalid convention mode")
)

// CheckPaired fails unless two batches can be compared element-wise.
func CheckPaired(n, m int) error {
	if n != m {
		return fmt.Errorf("%w: paired batches have %d and %d rows", ErrShapeMismatch, n, m)
	}
	return nil
}

// BoxesFromRows builds boxes from [cx, cy, w, h, angle] rows.
func BoxesFromRows(rows [][]float64) ([]Box, error) {
	out := make([]Box, len(rows))
	for i, r := range rows {
		if len(r) != 5 {
			return nil, fmt.Errorf("%w: row %d has %d columns, want 5", ErrShapeMismatch, i, len(r))
		}
		out[i] = Box{CX: r[0], CY: r[1], W: r[2], H: r[3], Angle: r[4]}
	}
	return out, nil
}

// LabeledBoxesFromRows builds labeled boxes from 6-column rows.
func LabeledBoxesFromRows(rows [][]float64) ([]LabeledBox, error) {
	out := make([]LabeledBox, len(rows))
	for i, r := range rows {
		if len(r) != 6 {
			return nil, fmt.Errorf("%w: row %d has %d columns, want 6", ErrShapeMismatch, i, len(r))
		}
		out[i] = LabeledBox{
			Box:   Box{CX: r[0], CY: r[1], W: r[2], H: r[3], Angle: r[4]},
			Label: int(r[5]),
		}
	}
	return out, nil
}

// PolygonsFromRows builds polygons from 8-column rows.
func PolygonsFromRows(rows [][]float64) ([]Polygon, error) {
	out := make([]Polygon, len(rows))
	for i, r := range rows {
		if len(r) != 8 {
			return nil, fmt.Errorf("%w: row %d has %d columns, want 8", ErrShapeMismatch, i, len(r))
		}
		copy(out[i][:], r)
	}
	return out, nil
}

// LabeledPolygonsFromRows builds labeled polygons from 9-column rows.
func LabeledPolygonsFromRows(rows [][]float64) ([]LabeledPolygon, error) {
	out := make([]LabeledPolygon, len(rows))
	for i, r := range rows {
		if len(r) != 9 {
			return nil, fmt.Errorf("%w: row %d has %d columns, want 9", ErrShapeMismatch, i, len(r))
		}
		copy(out[i].Polygon[:], r[:8])
		out[i].Label = int(r[8])
	}
	return out, nil
}
