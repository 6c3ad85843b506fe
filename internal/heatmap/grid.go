package heatmap

import (
	"encoding/json"
	"math"

	"github.com/banshee-data/court.report/internal/court"
	"gonum.org/v1/gonum/floats"
)

// Heatmap is a generated occupancy grid. Cells are stored row-major; rows run
// along the court length from the front baseline and columns across the
// width from the left sideline.
type Heatmap struct {
	Columns    int     `json:"columns"`
	Rows       int     `json:"rows"`
	Resolution float64 `json:"resolution"`
	// Counts are decayed, blurred sample weights.
	Counts []float64 `json:"counts"`
	// Intensities are Counts divided by MaxCount, in [0,1].
	Intensities []float64        `json:"intensities"`
	MaxCount    float64          `json:"maxCount"`
	SampleCount int              `json:"sampleCount"`
	Court       court.Dimensions `json:"courtDimensions"`
	GeneratedAt int64            `json:"generatedAt"`
}

// HeatmapCell is one occupied grid cell. Intensity is Count over the grid's
// MaxCount.
type HeatmapCell struct {
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Count     float64 `json:"count"`
	Intensity float64 `json:"intensity"`
}

// Cells lists the cells with a non-zero count in row-major order.
func (h *Heatmap) Cells() []HeatmapCell {
	out := make([]HeatmapCell, 0)
	for row := 0; row < h.Rows; row++ {
		for col := 0; col < h.Columns; col++ {
			i := h.Index(col, row)
			if i >= len(h.Counts) || h.Counts[i] <= 0 {
				continue
			}
			out = append(out, HeatmapCell{X: col, Y: row, Count: h.Counts[i], Intensity: h.Intensity(col, row)})
		}
	}
	return out
}

type heatmapFields Heatmap

// MarshalJSON adds the occupied cell list alongside the flat grids. The list
// is derived, so it is ignored on decode.
func (h Heatmap) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		heatmapFields
		Cells []HeatmapCell `json:"cells"`
	}{heatmapFields(h), h.Cells()})
}

// Index returns the slice index of cell (col, row).
func (h *Heatmap) Index(col, row int) int { return row*h.Columns + col }

// Intensity returns the intensity at (col, row), or 0 outside the grid.
func (h *Heatmap) Intensity(col, row int) float64 {
	if col < 0 || col >= h.Columns || row < 0 || row >= h.Rows {
		return 0
	}
	return h.Intensities[h.Index(col, row)]
}

// CellCenter returns the world position at the centre of cell (col, row).
func (h *Heatmap) CellCenter(col, row int) court.Point3D {
	return court.Point3D{
		X: (float64(col)+0.5)/h.Resolution - h.Court.Width/2,
		Y: (float64(row)+0.5)/h.Resolution - h.Court.Length/2,
	}
}

// TotalCount sums all cell counts.
func (h *Heatmap) TotalCount() float64 { return floats.Sum(h.Counts) }

// gridSize returns the column and row count for a court at res cells/metre.
func gridSize(d court.Dimensions, res float64) (cols, rows int) {
	return int(math.Ceil(d.Width * res)), int(math.Ceil(d.Length * res))
}

// cellOf returns the cell holding normalised position (nx, ny). ok is false
// off the court.
func cellOf(nx, ny float64, cols, rows int) (col, row int, ok bool) {
	if math.IsNaN(nx) || math.IsNaN(ny) || nx < 0 || nx > 1 || ny < 0 || ny > 1 {
		return 0, 0, false
	}
	col = min(int(nx*float64(cols)), cols-1)
	row = min(int(ny*float64(rows)), rows-1)
	return col, row, true
}

// kernelCache holds normalised 1-D Gaussian kernels keyed by radius in
// cells. It belongs to one aggregator and is cleared on Reset.
type kernelCache struct {
	kernels map[int][]float64
}

func newKernelCache() *kernelCache {
	return &kernelCache{kernels: make(map[int][]float64)}
}

// get returns the 2r+1 tap kernel for radius r with σ = max(r/2, 0.5).
func (c *kernelCache) get(r int) []float64 {
	if k, ok := c.kernels[r]; ok {
		return k
	}
	sigma := math.Max(float64(r)/2, 0.5)
	k := make([]float64, 2*r+1)
	for i := range k {
		d := float64(i - r)
		k[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
	}
	floats.Scale(1/floats.Sum(k), k)
	c.kernels[r] = k
	return k
}

func (c *kernelCache) clear() {
	clear(c.kernels)
}

func (c *kernelCache) len() int { return len(c.kernels) }

// blur applies the kernel horizontally then vertically. Taps that fall off
// the grid are dropped, so mass near the border leaks.
func blur(counts []float64, cols, rows int, k []float64) []float64 {
	r := len(k) / 2
	tmp := make([]float64, len(counts))
	for y := range rows {
		for x := range cols {
			var sum float64
			for i, w := range k {
				xx := x + i - r
				if xx < 0 || xx >= cols {
					continue
				}
				sum += counts[y*cols+xx] * w
			}
			tmp[y*cols+x] = sum
		}
	}
	out := make([]float64, len(counts))
	for y := range rows {
		for x := range cols {
			var sum float64
			for i, w := range k {
				yy := y + i - r
				if yy < 0 || yy >= rows {
					continue
				}
				sum += tmp[yy*cols+x] * w
			}
			out[y*cols+x] = sum
		}
	}
	return out
}

// buildHeatmap accumulates samples into a grid, blurs and normalises it.
// Out-of-bounds samples are skipped. Weights decay with age relative to the
// newest sample when decay < 1.
func buildHeatmap(samples []PositionSample, d court.Dimensions, s Settings, kernels *kernelCache) Heatmap {
	cols, rows := gridSize(d, s.GridResolution)
	h := Heatmap{
		Columns:    cols,
		Rows:       rows,
		Resolution: s.GridResolution,
		Court:      d,
		Counts:     make([]float64, cols*rows),
	}

	var newest int64
	for _, p := range samples {
		newest = max(newest, p.Timestamp)
	}

	for _, p := range samples {
		nx, ny := d.Normalize(p.World)
		col, row, ok := cellOf(nx, ny, cols, rows)
		if !ok {
			continue
		}
		w := 1.0
		if s.DecayFactor < 1 {
			age := float64(newest-p.Timestamp) / 1000
			w = math.Pow(s.DecayFactor, age)
		}
		h.Counts[h.Index(col, row)] += w
		h.SampleCount++
	}

	if r := s.KernelRadius(); r > 0 && len(h.Counts) > 0 {
		h.Counts = blur(h.Counts, cols, rows, kernels.get(r))
	}

	h.Intensities = make([]float64, len(h.Counts))
	if len(h.Counts) > 0 {
		h.MaxCount = floats.Max(h.Counts)
	}
	if h.MaxCount > 0 {
		for i, c := range h.Counts {
			h.Intensities[i] = c / h.MaxCount
		}
	}
	return h
}
