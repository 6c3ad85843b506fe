// Package court holds the shared data model for court calibration and player
// tracking: image and world points, calibration correspondences, court
// dimensions and the per-sport profiles that parameterise validation and
// weighting.
//
// World coordinates are metres with the origin at the court centre, x across
// the court, y along its length and z up. Image coordinates are either pixels
// or normalised [0,1] values depending on the caller.
package court
