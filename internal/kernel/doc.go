// Package kernel builds the falloff footprints that entities stamp.
//
// A Kernel is a (2r+1)² buffer of values in [0,255] produced by sampling a
// Curve at the normalised squared distance of each cell from the centre.
// Curves are injected: the built-ins cover the common shapes and Sampled
// wraps an arbitrary monotonic sampled mapping using gonum's interpolators.
//
// Kernels depend only on (radius, curve), so Cache keeps one instance per
// pair and hands it to every entity that needs it.
package kernel
