package main

import (
	"fmt"
	"math"
	"time"

	"github.com/tutumagi/soul/config"
	"github.com/tutumagi/soul/engine/math32"
	"github.com/tutumagi/soul/persona"
	"github.com/tutumagi/soul/scheduler"
	"github.com/tutumagi/soul/world"
)

var (
	arenaCenter = math32.NewVec2(640, 384)

	spawns = []struct {
		species string
		cell    math32.Cell
	}{
		{"squid", math32.Cell{X: 3, Y: 3}},
		{"squid", math32.Cell{X: 16, Y: 9}},
		{"raccoon", math32.Cell{X: 15, Y: 2}},
		{"spirit", math32.Cell{X: 4, Y: 9}},
		{"spirit", math32.Cell{X: 12, Y: 10}},
		{"bamboo", math32.Cell{X: 2, Y: 6}},
		{"bamboo", math32.Cell{X: 17, Y: 5}},
	}

	walls = []math32.Rect{
		math32.NewRect(6*64, 2*64, 64, 4*64),
		math32.NewRect(12*64, 6*64, 3*64, 64),
		math32.NewRect(9*64, 9*64, 64, 2*64),
	}

	rocks = []math32.Cell{{X: 1, Y: 1}, {X: 18, Y: 1}, {X: 1, Y: 10}, {X: 18, Y: 10}}
)

const (
	orbitRadius  = 220.0
	orbitPeriod  = 900
	attackPeriod = 150
)

// buildDemo lays out a small arena: a few walls, mineable rocks and two
// agents of each default species around the player.
func buildDemo(cfg *config.Config, sched *scheduler.Scheduler, client persona.Client, opts ...world.Option) (*world.World, error) {
	ts := cfg.World().TileSize
	player := world.NewPlayer(arenaCenter, 500, 35, 90, cfg.Agent().VulnerableDuration)
	w := world.New(cfg, sched, client, player, opts...)

	for _, r := range walls {
		w.AddObstacle(r)
	}
	for i, c := range rocks {
		w.AddObject(fmt.Sprintf("rock#%d", i+1), math32.CellCenter(c, ts))
	}
	for _, s := range spawns {
		if _, err := w.Spawn(s.species, math32.CellCenter(s.cell, ts)); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// drivePlayer walks the player around the arena centre and swings at
// whatever is close every few seconds.
func drivePlayer(w *world.World, tick int, now time.Time) {
	angle := 2 * math.Pi * float64(tick%orbitPeriod) / orbitPeriod
	pos := arenaCenter.Add(math32.NewVec2(math.Cos(angle), math.Sin(angle)).Scale(orbitRadius))
	w.Player().(*world.Player).MoveTo(pos)
	if tick > 0 && tick%attackPeriod == 0 {
		w.PlayerAttack(now)
	}
}
