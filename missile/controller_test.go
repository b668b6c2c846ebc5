package missile

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tankarena/geom"
	"tankarena/render"
)

type fakeShooter struct {
	pos, rot geom.Vec3
}

func (s *fakeShooter) Position() geom.Vec3 { return s.pos }
func (s *fakeShooter) Rotation() geom.Vec3 { return s.rot }

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestController(engine render.Engine, shooter Shooter, remote bool) *Controller {
	opts := DefaultOptions()
	opts.Remote = remote
	opts.Now = func() time.Time { return t0 }
	return NewController(engine, shooter, opts)
}

func TestSpawnOneCellAhead(t *testing.T) {
	h := render.NewHeadless()
	cases := []struct {
		yaw   float64
		spawn geom.Vec3
		dir   geom.Direction
	}{
		{0, geom.V(0, 1, -1), geom.Forward},
		{math.Pi / 2, geom.V(-1, 1, 0), geom.Right},
		{math.Pi, geom.V(0, 1, 1), geom.Backward},
		{-math.Pi / 2, geom.V(1, 1, 0), geom.Left},
	}
	for _, c := range cases {
		ctrl := newTestController(h, &fakeShooter{pos: geom.V(0, 1, 0), rot: geom.V(0, c.yaw, 0)}, true)
		m := ctrl.Shoot()
		assert.Equal(t, c.spawn, m.Position(), "yaw=%v", c.yaw)
		assert.Equal(t, c.dir, m.Direction())
	}
}

func TestMoveIsTimeGated(t *testing.T) {
	h := render.NewHeadless()
	ctrl := newTestController(h, &fakeShooter{pos: geom.V(0, 1, 0)}, true)
	m := ctrl.Shoot()
	start := m.Position()

	ctrl.Update(t0.Add(500 * time.Millisecond))
	ctrl.Update(t0.Add(999 * time.Millisecond))
	require.Equal(t, start, m.Position())

	ctrl.Update(t0.Add(time.Second))
	require.Equal(t, start.Add(geom.V(0, 0, -2)), m.Position())

	// 1.0s 与 1.9s 之间不足一个 interval，不再前进
	ctrl.Update(t0.Add(1900 * time.Millisecond))
	require.Equal(t, start.Add(geom.V(0, 0, -2)), m.Position())
}

func TestMoveOneStepPerElapsedInterval(t *testing.T) {
	h := render.NewHeadless()
	ctrl := newTestController(h, &fakeShooter{pos: geom.V(0, 1, 0)}, true)
	m := ctrl.Shoot()
	start := m.Position()

	// 一次迟到的更新补齐 3 步
	require.Equal(t, 3, m.Move(t0.Add(3500*time.Millisecond)))
	require.Equal(t, start.Add(geom.V(0, 0, -6)), m.Position())
}

func TestOutOfBoundsRemovedOnNextUpdate(t *testing.T) {
	h := render.NewHeadless()
	ctrl := newTestController(h, &fakeShooter{pos: geom.V(0, 1, -8)}, true)
	ctrl.Shoot() // 出生在 z=-9
	require.Equal(t, 1, ctrl.Len())
	meshes := h.LiveMeshes()

	ctrl.Update(t0.Add(time.Second)) // z=-11，越界
	require.Equal(t, 0, ctrl.Len())
	require.Equal(t, meshes-1, h.LiveMeshes())
}

func TestLocalControllerFiresOnKey(t *testing.T) {
	h := render.NewHeadless()
	shooter := &fakeShooter{pos: geom.V(2, 1, 2)}
	var reported []geom.Vec3
	opts := DefaultOptions()
	opts.Now = func() time.Time { return t0 }
	opts.OnShoot = func(pos, _ geom.Vec3) { reported = append(reported, pos) }
	ctrl := NewController(h, shooter, opts)

	h.PressKey(render.KeySpace)
	require.Equal(t, 1, ctrl.Len())
	require.Equal(t, []geom.Vec3{geom.V(2, 1, 2)}, reported)

	ctrl.Dispose()
	h.PressKey(render.KeySpace)
	require.Equal(t, 0, ctrl.Len())
	require.Equal(t, 0, h.KeyActions())
}

func TestRemoteControllerIgnoresFireKey(t *testing.T) {
	h := render.NewHeadless()
	ctrl := newTestController(h, &fakeShooter{}, true)
	h.PressKey(render.KeySpace)
	require.Equal(t, 0, ctrl.Len())

	ctrl.ShootFrom(geom.V(0, 1, 0), geom.V(0, math.Pi, 0))
	require.Equal(t, 1, ctrl.Len())
}
