// Package geometry provides basic geometric types used throughout the application.
package geometry

import "image"

// RectInt represents a rectangle with integer coordinates.
type RectInt struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// NewRectInt creates a new RectInt.
func NewRectInt(x, y, width, height int) RectInt {
	return RectInt{X: x, Y: y, Width: width, Height: height}
}

// Empty returns true if the rectangle has no area.
func (r RectInt) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Clip returns the rectangle clipped to a frame of the given size.
// The result may be empty if the rectangle lies outside the frame.
func (r RectInt) Clip(frameWidth, frameHeight int) RectInt {
	x0 := max(r.X, 0)
	y0 := max(r.Y, 0)
	x1 := min(r.X+r.Width, frameWidth)
	y1 := min(r.Y+r.Height, frameHeight)
	return RectInt{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Contains returns true if the point is inside the rectangle.
func (r RectInt) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// ToImageRect converts to a stdlib image.Rectangle.
func (r RectInt) ToImageRect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Circle represents a circle with integer center and radius, e.g. a
// detected petri dish boundary.
type Circle struct {
	CX     int `json:"cx"`
	CY     int `json:"cy"`
	Radius int `json:"radius"`
}

// Contains returns true if the point lies inside the circle.
func (c Circle) Contains(x, y int) bool {
	dx := x - c.CX
	dy := y - c.CY
	return dx*dx+dy*dy <= c.Radius*c.Radius
}
