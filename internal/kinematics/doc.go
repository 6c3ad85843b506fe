// Package kinematics derives player speed and centre-of-gravity height from
// per-frame pose landmarks.
//
// Landmarks follow the 33-point BlazePose topology with x/y normalised to the
// frame. Positions are converted to metres with a single scaling factor
// derived from an assumed player height, a known court span, or both; the
// conversion is approximate and ignores perspective. Court-accurate positions
// come from the calibration package instead.
package kinematics
