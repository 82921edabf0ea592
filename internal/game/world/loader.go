package world

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/lafriks/go-tiled"

	"github.com/marcaocj/R1/internal/game/geom"
)

// Object group names read from arena maps.
const (
	groupObstacles   = "Obstacles"
	groupPlayerSpawn = "PlayerSpawn"
	groupEnemySpawn  = "EnemySpawn"
	groupPatrolPaths = "PatrolPaths"

	// defaultWallHeight applies to obstacles without a "height" property.
	defaultWallHeight = 3.0
)

// LoadArena parses a Tiled .tmx map. One tile is one world unit; map Y
// becomes world Z.
//
// Object groups:
//   - Obstacles: rectangles, optional float "height"
//   - PlayerSpawn: the first object is the player start
//   - EnemySpawn: points with string "template", optional int "level" and
//     string "path"
//   - PatrolPaths: named polylines
//
// Precondition: tmxPath must be readable within fsys.
// Postcondition: Returns a validated *Arena, or an error.
func LoadArena(fsys fs.FS, tmxPath string) (*Arena, error) {
	m, err := tiled.LoadFile(tmxPath, tiled.WithFileSystem(fsys))
	if err != nil {
		return nil, fmt.Errorf("loading arena %s: %w", tmxPath, err)
	}
	if m.TileWidth <= 0 || m.TileHeight <= 0 {
		return nil, fmt.Errorf("loading arena %s: tile size must be positive", tmxPath)
	}
	sx := 1 / float64(m.TileWidth)
	sz := 1 / float64(m.TileHeight)
	at := func(x, y float64) geom.Vec3 { return geom.V(x*sx, 0, y*sz) }

	a := &Arena{
		Name:        filepath.Base(tmxPath),
		Width:       float64(m.Width),
		Depth:       float64(m.Height),
		PatrolPaths: make(map[string][]geom.Vec3),
	}
	if name := m.Properties.GetString("name"); name != "" {
		a.Name = name
	}

	spawnFound := false
	for _, og := range m.ObjectGroups {
		switch og.Name {
		case groupObstacles:
			for _, o := range og.Objects {
				h := o.Properties.GetFloat("height")
				if h <= 0 {
					h = defaultWallHeight
				}
				a.Obstacles = append(a.Obstacles, Rect{
					X: o.X * sx, Z: o.Y * sz,
					W: o.Width * sx, D: o.Height * sz,
					Height: h,
				})
			}
		case groupPlayerSpawn:
			if len(og.Objects) > 0 {
				a.PlayerSpawn = at(og.Objects[0].X, og.Objects[0].Y)
				spawnFound = true
			}
		case groupEnemySpawn:
			for _, o := range og.Objects {
				a.EnemySpawns = append(a.EnemySpawns, EnemySpawn{
					TemplateID: o.Properties.GetString("template"),
					Level:      o.Properties.GetInt("level"),
					Position:   at(o.X, o.Y),
					PatrolPath: o.Properties.GetString("path"),
				})
			}
		case groupPatrolPaths:
			for _, o := range og.Objects {
				if len(o.PolyLines) == 0 || o.PolyLines[0].Points == nil || len(*o.PolyLines[0].Points) < 2 {
					continue
				}
				points := *o.PolyLines[0].Points
				route := make([]geom.Vec3, len(points))
				for i, p := range points {
					route[i] = at(o.X+p.X, o.Y+p.Y)
				}
				a.PatrolPaths[o.Name] = route
			}
		}
	}
	if !spawnFound {
		return nil, fmt.Errorf("loading arena %s: no %s object", tmxPath, groupPlayerSpawn)
	}

	// Enemy ids are assigned in this order: by Z, then X.
	sort.SliceStable(a.EnemySpawns, func(i, j int) bool {
		pi, pj := a.EnemySpawns[i].Position, a.EnemySpawns[j].Position
		if pi.Z != pj.Z {
			return pi.Z < pj.Z
		}
		return pi.X < pj.X
	})

	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}
