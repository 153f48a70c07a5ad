// Package feature derives fixed-width feature vectors from return series.
package feature

import (
	"math"

	"github.com/ghantakiran/axion-stock-sub001/internal/core"
	"github.com/ghantakiran/axion-stock-sub001/internal/indicator"
)

// DefaultWindow is the rolling window used when none is configured.
const DefaultWindow = 10

// Matrix is an ordered sequence of feature rows. Row i describes
// observation i+Offset.
type Matrix struct {
	Rows   [][]float64
	Offset int
}

// Len returns the number of rows.
func (m Matrix) Len() int {
	return len(m.Rows)
}

// Dim returns the row width, 0 for an empty matrix.
func (m Matrix) Dim() int {
	if len(m.Rows) == 0 {
		return 0
	}
	return len(m.Rows[0])
}

// Builder computes rolling mean and volatility features.
type Builder struct {
	Window int
}

// NewBuilder returns a builder with the given window, or DefaultWindow when window is 0.
func NewBuilder(window int) (*Builder, error) {
	if window == 0 {
		window = DefaultWindow
	}
	if window < 2 {
		return nil, core.Errorf(core.ErrConfigInvalid, "feature window must be at least 2, got %d", window)
	}
	return &Builder{Window: window}, nil
}

// Build returns one row per step once the window has filled:
// [rolling mean return, rolling return std] and, when vols is
// non-empty, the paired volatility at that step.
func (b *Builder) Build(returns, vols []float64) (Matrix, error) {
	if len(vols) > 0 && len(vols) != len(returns) {
		return Matrix{}, core.Errorf(core.ErrInvalidInput,
			"volatility length %d does not match returns length %d", len(vols), len(returns))
	}

	offset := b.Window - 1
	if len(returns) < b.Window {
		return Matrix{Rows: [][]float64{}, Offset: offset}, nil
	}

	means := indicator.SMA(returns, b.Window)
	stds := indicator.RollingStdDev(returns, b.Window)

	dim := 2
	if len(vols) > 0 {
		dim = 3
	}

	rows := make([][]float64, len(means))
	for i := range means {
		row := make([]float64, dim)
		row[0] = means[i]
		row[1] = stds[i]
		if dim == 3 {
			row[2] = vols[i+offset]
		}
		rows[i] = row
	}
	return Matrix{Rows: rows, Offset: offset}, nil
}

// Validate checks that every row has the same non-zero width and only
// finite values.
func Validate(rows [][]float64) error {
	if len(rows) == 0 {
		return nil
	}
	dim := len(rows[0])
	if dim == 0 {
		return core.Errorf(core.ErrInvalidInput, "feature rows must not be empty")
	}
	for i, r := range rows {
		if len(r) != dim {
			return core.Errorf(core.ErrInvalidInput, "feature row %d has width %d, expected %d", i, len(r), dim)
		}
		for j, v := range r {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return core.Errorf(core.ErrInvalidInput, "feature row %d column %d is not finite", i, j)
			}
		}
	}
	return nil
}
