// Package grid owns the scalar layers that entities stamp into.
//
// A Store holds any number of named integer layers, all sharing one Size.
// Layers are row-major with index = y*W + x; the origin sits at index 0 and
// y grows toward the top edge. Every component in the stamping core uses
// this convention, including the clip rectangles in package clip.
//
// The package also defines Error, the one error type the core reports. All
// error codes are recoverable: on failure nothing has been written.
package grid
