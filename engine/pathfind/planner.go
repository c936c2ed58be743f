package pathfind

import (
	"errors"

	"github.com/tutumagi/soul/engine/algo"
	"github.com/tutumagi/soul/engine/math32"
)

var (
	// ErrUnreachable no route between start and goal, the caller should hold position
	ErrUnreachable = errors.New("pathfind: goal unreachable")
	// ErrGoalBlocked the goal cell and all of its 4-neighbors are occupied
	ErrGoalBlocked = errors.New("pathfind: goal and its neighbors are blocked")
)

// DefaultSearchMargin is how many cells the search may stray outside the
// bounding box of start and goal.
const DefaultSearchMargin = 16

// Planner runs A* over a 4-connected grid.
type Planner struct {
	// Margin bounds the search area around start and goal, in cells.
	Margin int
}

var defaultPlanner = &Planner{Margin: DefaultSearchMargin}

// Plan returns the world-space waypoints from start to goal around the
// given obstacles. An empty path means unreachable.
func Plan(start, goal math32.Vec2, obstacles []math32.Rect, tileSize float64) []math32.Vec2 {
	path, _ := defaultPlanner.Plan(start, goal, obstacles, tileSize)
	return path
}

// Plan is like the package level Plan but reports why a path is empty.
func (p *Planner) Plan(start, goal math32.Vec2, obstacles []math32.Rect, tileSize float64) ([]math32.Vec2, error) {
	blocked := make(map[math32.Cell]struct{}, len(obstacles))
	for _, r := range obstacles {
		math32.Footprint(r, tileSize, blocked)
	}

	cells, err := p.Search(math32.ToCell(start, tileSize), math32.ToCell(goal, tileSize), blocked)
	if err != nil {
		return nil, err
	}
	path := make([]math32.Vec2, 0, len(cells))
	for _, c := range cells {
		path = append(path, math32.CellCenter(c, tileSize))
	}
	return path, nil
}

// Search finds the cells leading from start to goal, start excluded. When the
// goal is blocked the first free neighbor (left, right, up, down) becomes the
// goal instead.
func (p *Planner) Search(start, goal math32.Cell, blocked map[math32.Cell]struct{}) ([]math32.Cell, error) {
	if _, ok := blocked[goal]; ok {
		free, found := firstFreeNeighbor(goal, blocked)
		if !found {
			return nil, ErrGoalBlocked
		}
		goal = free
	}
	if start == goal {
		return nil, nil
	}

	margin := p.Margin
	if margin <= 0 {
		margin = DefaultSearchMargin
	}
	bounds := newBounds(start, goal, margin)

	open := algo.NewPriorityQueue()
	openItems := map[math32.Cell]*algo.Item{}
	cameFrom := map[math32.Cell]math32.Cell{}
	gScore := map[math32.Cell]int{start: 0}
	closed := map[math32.Cell]struct{}{}

	openItems[start] = open.PushValue(start, float64(math32.Manhattan(start, goal)))

	for open.Len() > 0 {
		current := open.Pop().Value.(math32.Cell)
		delete(openItems, current)

		if current == goal {
			return reconstruct(cameFrom, current), nil
		}
		closed[current] = struct{}{}

		for _, neighbor := range current.Neighbors4() {
			if _, ok := blocked[neighbor]; ok {
				continue
			}
			if _, ok := closed[neighbor]; ok {
				continue
			}
			if !bounds.contains(neighbor) {
				continue
			}

			tentative := gScore[current] + 1
			if g, seen := gScore[neighbor]; seen && tentative >= g {
				continue
			}
			cameFrom[neighbor] = current
			gScore[neighbor] = tentative
			f := float64(tentative + math32.Manhattan(neighbor, goal))
			if item, ok := openItems[neighbor]; ok {
				open.Update(item, f)
			} else {
				openItems[neighbor] = open.PushValue(neighbor, f)
			}
		}
	}

	return nil, ErrUnreachable
}

func firstFreeNeighbor(c math32.Cell, blocked map[math32.Cell]struct{}) (math32.Cell, bool) {
	for _, n := range c.Neighbors4() {
		if _, ok := blocked[n]; !ok {
			return n, true
		}
	}
	return math32.Cell{}, false
}

func reconstruct(cameFrom map[math32.Cell]math32.Cell, current math32.Cell) []math32.Cell {
	path := []math32.Cell{}
	for {
		prev, ok := cameFrom[current]
		if !ok {
			break
		}
		path = append(path, current)
		current = prev
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

type _Bounds struct {
	minX, minY, maxX, maxY int
}

func newBounds(a, b math32.Cell, margin int) _Bounds {
	bd := _Bounds{minX: a.X, maxX: a.X, minY: a.Y, maxY: a.Y}
	if b.X < bd.minX {
		bd.minX = b.X
	}
	if b.X > bd.maxX {
		bd.maxX = b.X
	}
	if b.Y < bd.minY {
		bd.minY = b.Y
	}
	if b.Y > bd.maxY {
		bd.maxY = b.Y
	}
	bd.minX -= margin
	bd.minY -= margin
	bd.maxX += margin
	bd.maxY += margin
	return bd
}

func (b _Bounds) contains(c math32.Cell) bool {
	return c.X >= b.minX && c.X <= b.maxX && c.Y >= b.minY && c.Y <= b.maxY
}
