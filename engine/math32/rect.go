package math32

import "math"

// Rect is an axis-aligned rectangle, (X, Y) is the top-left corner.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// NewRect ctor
func NewRect(x, y, w, h float64) Rect {
	return Rect{X: x, Y: y, W: w, H: h}
}

// RectAround builds a w*h rect centred on c.
func RectAround(c Vec2, w, h float64) Rect {
	return Rect{X: c.X - w/2, Y: c.Y - h/2, W: w, H: h}
}

func (r Rect) Left() float64   { return r.X }
func (r Rect) Right() float64  { return r.X + r.W }
func (r Rect) Top() float64    { return r.Y }
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Center of the rect
func (r Rect) Center() Vec2 {
	return Vec2{r.X + r.W/2, r.Y + r.H/2}
}

// WithCenter returns r moved so its centre is c.
func (r Rect) WithCenter(c Vec2) Rect {
	r.X = c.X - r.W/2
	r.Y = c.Y - r.H/2
	return r
}

// Overlaps reports whether the interiors of r and o intersect.
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.Right() && o.X < r.Right() && r.Y < o.Bottom() && o.Y < r.Bottom()
}

// Cell is an integer grid coordinate.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Neighbors4 in the fixed order left, right, up, down.
func (c Cell) Neighbors4() [4]Cell {
	return [4]Cell{
		{c.X - 1, c.Y},
		{c.X + 1, c.Y},
		{c.X, c.Y - 1},
		{c.X, c.Y + 1},
	}
}

// Manhattan distance between two cells.
func Manhattan(a, b Cell) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

// ToCell maps a world position to its grid cell.
func ToCell(p Vec2, tileSize float64) Cell {
	return Cell{int(math.Floor(p.X / tileSize)), int(math.Floor(p.Y / tileSize))}
}

// CellCenter maps a grid cell back to the world position of its centre.
func CellCenter(c Cell, tileSize float64) Vec2 {
	return Vec2{float64(c.X)*tileSize + tileSize/2, float64(c.Y)*tileSize + tileSize/2}
}

// Footprint appends every cell the rect overlaps to dst.
// The right and bottom edges are exclusive, so a tile-aligned rect covers exactly its own cells.
func Footprint(r Rect, tileSize float64, dst map[Cell]struct{}) {
	x0 := int(math.Floor(r.Left() / tileSize))
	y0 := int(math.Floor(r.Top() / tileSize))
	x1 := int(math.Ceil(r.Right()/tileSize)) - 1
	y1 := int(math.Ceil(r.Bottom()/tileSize)) - 1
	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}
	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			dst[Cell{x, y}] = struct{}{}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
