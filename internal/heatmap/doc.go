// Package heatmap aggregates player court positions into movement statistics
// and a Gaussian-smoothed occupancy grid.
//
// Samples pass a tracking gate and a confidence threshold. Every accepted
// sample updates the live position, distance and smoothed speed; history and
// zone dwell time only advance once per sample interval so storage grows with
// wall time rather than frame rate. Grid generation is O(cells × radius) and
// callers should throttle it (see Aggregator.ShouldRegenerate).
package heatmap
