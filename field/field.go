// Package field 场地静态几何（地面、墙）与按格查询
package field

import (
	"fmt"

	"tankarena/geom"
	"tankarena/player"
	"tankarena/protocol"
	"tankarena/render"
)

// PlayerSource 提供场上其他玩家（通常是远端名册）
type PlayerSource interface {
	Players() []*player.Player
}

// Wall 障碍物，创建后不可变
type Wall struct {
	Position geom.Vec3
	Size     float64
	mesh     render.Mesh
}

// Field 一份场地定义对应的场景对象；收到新的 "field" 事件时整体替换
type Field struct {
	width   float64
	height  float64
	ground  render.Mesh
	walls   []Wall
	players PlayerSource
}

func New(engine render.Engine, def protocol.FieldDef, players PlayerSource) *Field {
	f := &Field{
		width:   def.Width,
		height:  def.Height,
		players: players,
	}
	f.ground = engine.CreateGround("ground", def.Width, def.Height)
	f.ground.SetColor("#143578")
	for i, w := range def.Walls {
		m := engine.CreateBox(fmt.Sprintf("fieldWall%d", i), geom.V(w.Size, w.Size, w.Size))
		m.SetPosition(w.Position)
		f.walls = append(f.walls, Wall{Position: w.Position, Size: w.Size, mesh: m})
	}
	return f
}

func (f *Field) Width() float64 { return f.width }

func (f *Field) Height() float64 { return f.height }

func (f *Field) Walls() []Wall { return append([]Wall(nil), f.walls...) }

// WallsByPosition 与 pos 同格（x/z）的墙，线性扫描
func (f *Field) WallsByPosition(pos geom.Vec3) []Wall {
	var out []Wall
	for _, w := range f.walls {
		if w.Position.SameCell(pos) {
			out = append(out, w)
		}
	}
	return out
}

// PlayersByPosition 与 pos 同格（x/z）的其他玩家，线性扫描
func (f *Field) PlayersByPosition(pos geom.Vec3) []*player.Player {
	if f.players == nil {
		return nil
	}
	var out []*player.Player
	for _, p := range f.players.Players() {
		if p.Position().SameCell(pos) {
			out = append(out, p)
		}
	}
	return out
}

// InBounds candidate 是否落在 [-w/2,w/2]×[-h/2,h/2] 内
func (f *Field) InBounds(pos geom.Vec3) bool {
	hw, hh := f.width/2, f.height/2
	return pos.X >= -hw && pos.X <= hw && pos.Z >= -hh && pos.Z <= hh
}

func (f *Field) Dispose() {
	f.ground.Dispose()
	for _, w := range f.walls {
		w.mesh.Dispose()
	}
	f.walls = nil
}
