// Package missile 炮弹生命周期：生成、按固定时间步推进、出界回收
package missile

import (
	"time"

	"github.com/google/uuid"

	"tankarena/geom"
	"tankarena/render"
)

// Missile 一枚飞行中的炮弹
type Missile struct {
	ID string

	mesh     render.Mesh
	dir      geom.Direction
	speed    float64
	interval time.Duration
	spawned  time.Time
	next     time.Time // 下一次允许前进的时刻（以生成时刻为锚点的固定步长）
}

func newMissile(engine render.Engine, origin, rotation geom.Vec3, speed float64, interval time.Duration, now time.Time) *Missile {
	id := uuid.NewString()
	dir := geom.QuantizeYaw(rotation.Y)
	m := &Missile{
		ID:       id,
		mesh:     engine.CreateBox("missile-"+id, geom.V(1, 1, 1)),
		dir:      dir,
		speed:    speed,
		interval: interval,
		spawned:  now,
		next:     now.Add(interval),
	}
	// 出生在射手正前方一格
	m.mesh.SetPosition(geom.SnapToGrid(origin.Add(dir.Ahead())))
	return m
}

// Velocity 每一步的位移
func (m *Missile) Velocity() geom.Vec3 {
	return m.dir.Ahead().Scale(m.speed)
}

// Move 按经过的时间推进：每满一个 interval 前进一步，帧率无关
func (m *Missile) Move(now time.Time) int {
	steps := 0
	for !now.Before(m.next) {
		m.mesh.SetPosition(m.mesh.Position().Add(m.Velocity()))
		m.next = m.next.Add(m.interval)
		steps++
	}
	return steps
}

func (m *Missile) Position() geom.Vec3 { return m.mesh.Position() }

func (m *Missile) Direction() geom.Direction { return m.dir }

func (m *Missile) SpawnedAt() time.Time { return m.spawned }

func (m *Missile) Dispose() { m.mesh.Dispose() }
