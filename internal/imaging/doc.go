// Package imaging defines the domain primitives shared by the optimization
// and estimation core: the closed format enumeration, the optimization
// config and result value objects, presets, and the sentinel error kinds
// raised across the detector, optimizers, and estimator.
//
// Nothing in this package performs I/O. It is the shared kernel that
// internal/detect, internal/optimize, and internal/estimate all depend on.
package imaging
