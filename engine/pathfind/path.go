package pathfind

import "github.com/tutumagi/soul/engine/math32"

// Path is a route owned by one agent. It is consumed front to back and
// replaced wholesale when re-planned.
type Path struct {
	waypoints []math32.Vec2
	goal      math32.Cell
	planned   bool
}

// Reset replaces the route and remembers the goal cell it was planned for.
func (p *Path) Reset(waypoints []math32.Vec2, goal math32.Cell) {
	p.waypoints = waypoints
	p.goal = goal
	p.planned = true
}

// Clear drops the route.
func (p *Path) Clear() {
	p.waypoints = nil
	p.planned = false
}

// Len remaining waypoints
func (p *Path) Len() int {
	return len(p.waypoints)
}

// Empty reports whether no waypoint is left.
func (p *Path) Empty() bool {
	return len(p.waypoints) == 0
}

// Waypoints returns a copy of the remaining route.
func (p *Path) Waypoints() []math32.Vec2 {
	return append([]math32.Vec2(nil), p.waypoints...)
}

// NeedsReplan reports whether the target moved to another cell since the last
// plan or there is no route left to follow.
func (p *Path) NeedsReplan(target math32.Cell) bool {
	return !p.planned || p.Empty() || target != p.goal
}

// Steer returns the unit direction toward the next waypoint from pos, popping
// waypoints closer than threshold. ok is false once the route is exhausted.
func (p *Path) Steer(pos math32.Vec2, threshold float64) (dir math32.Vec2, ok bool) {
	for len(p.waypoints) > 0 {
		dist, d := math32.DistanceDirection(pos, p.waypoints[0])
		if dist >= threshold {
			return d, true
		}
		p.waypoints = p.waypoints[1:]
	}
	return math32.ZeroVec2, false
}
