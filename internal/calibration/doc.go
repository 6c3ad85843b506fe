// Package calibration maps image pixels to court coordinates.
//
// Responsibilities: homography estimation from point and line
// correspondences (weighted DLT solved by SVD), approximate decomposition into
// camera extrinsics and field of view, reprojection-error validation with
// sport-specific confidence bands, point transforms in both directions, and
// the calibration session lifecycle with JSON persistence.
// Key types: Homography, CameraParams, ValidationMetrics, Transformer, Session.
//
// All operations are synchronous. A Session is owned by one caller and is not
// safe for concurrent mutation.
package calibration
