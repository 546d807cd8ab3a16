package grid

import "fmt"

// Point is an integer grid coordinate.
type Point struct {
	X int
	Y int
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y int) Point { return Point{X: x, Y: y} }

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

func (p Point) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// Size describes the dimensions of a grid.
//
// Cells are stored row-major with index = y*W + x. The origin (0,0) sits at
// index 0 and y grows toward the top edge, so a rectangle's Top is its
// largest y.
type Size struct {
	W int
	H int
}

// Area returns W*H.
func (s Size) Area() int { return s.W * s.H }

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool { return s.W > 0 && s.H > 0 }

// Contains reports whether p lies on the grid.
func (s Size) Contains(p Point) bool {
	return p.X >= 0 && p.X < s.W && p.Y >= 0 && p.Y < s.H
}

// InRange reports whether i is a valid linear index.
func (s Size) InRange(i int) bool { return i >= 0 && i < s.Area() }

// Index returns the linear index for p. The caller checks Contains.
func (s Size) Index(p Point) int { return p.Y*s.W + p.X }

// Coord returns the coordinate for linear index i.
func (s Size) Coord(i int) Point { return Point{X: i % s.W, Y: i / s.W} }

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.W, s.H) }
