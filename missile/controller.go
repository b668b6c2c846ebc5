package missile

import (
	"time"

	"tankarena/geom"
	"tankarena/logging"
	"tankarena/render"
)

const (
	DefaultSpeed    = 2.0
	DefaultInterval = time.Second
)

// DefaultBounds 炮弹存活范围：x/z ∈ [-10,10]，y ∈ [0,10]
var DefaultBounds = geom.Box{Min: geom.V(-10, 0, -10), Max: geom.V(10, 10, 10)}

// Shooter 提供开火时的位置与朝向
type Shooter interface {
	Position() geom.Vec3
	Rotation() geom.Vec3
}

// Options 控制器参数
type Options struct {
	// Remote 远端玩家的控制器：只接受 ShootFrom，不监听本地开火键
	Remote   bool
	Speed    float64
	Interval time.Duration
	Bounds   geom.Box
	FireKey  render.Key
	Now      func() time.Time
	// OnShoot 本地开火后回调（用于上报服务端）
	OnShoot func(position, rotation geom.Vec3)
}

func DefaultOptions() Options {
	return Options{
		Speed:    DefaultSpeed,
		Interval: DefaultInterval,
		Bounds:   DefaultBounds,
		FireKey:  render.KeySpace,
		Now:      time.Now,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Speed <= 0 {
		o.Speed = d.Speed
	}
	if o.Interval <= 0 {
		o.Interval = d.Interval
	}
	if o.Bounds == (geom.Box{}) {
		o.Bounds = d.Bounds
	}
	if o.FireKey == "" {
		o.FireKey = d.FireKey
	}
	if o.Now == nil {
		o.Now = d.Now
	}
	return o
}

// Controller 管理一个射手的全部炮弹
type Controller struct {
	engine   render.Engine
	shooter  Shooter
	opts     Options
	missiles []*Missile
	action   render.ActionID
	bound    bool
}

func NewController(engine render.Engine, shooter Shooter, opts Options) *Controller {
	c := &Controller{engine: engine, shooter: shooter, opts: opts.withDefaults()}
	if !c.opts.Remote {
		c.action = engine.RegisterKeyAction(c.opts.FireKey, c.fire)
		c.bound = true
	}
	return c
}

func (c *Controller) fire() {
	m := c.Shoot()
	if c.opts.OnShoot != nil {
		c.opts.OnShoot(c.shooter.Position(), c.shooter.Rotation())
	}
	logging.Log.Debugw("missile fired", "id", m.ID, "direction", m.Direction().String())
}

// Shoot 以射手当前位置与朝向发射一枚
func (c *Controller) Shoot() *Missile {
	return c.ShootFrom(c.shooter.Position(), c.shooter.Rotation())
}

// ShootFrom 以给定位置与朝向发射（远端 "player-shot" 事件）
func (c *Controller) ShootFrom(position, rotation geom.Vec3) *Missile {
	m := newMissile(c.engine, position, rotation, c.opts.Speed, c.opts.Interval, c.opts.Now())
	c.missiles = append(c.missiles, m)
	return m
}

// Update 每帧调用：推进所有炮弹，越界的当场移除并释放
func (c *Controller) Update(now time.Time) {
	kept := c.missiles[:0]
	for _, m := range c.missiles {
		m.Move(now)
		if !c.opts.Bounds.Contains(m.Position()) {
			m.Dispose()
			continue
		}
		kept = append(kept, m)
	}
	for i := len(kept); i < len(c.missiles); i++ {
		c.missiles[i] = nil
	}
	c.missiles = kept
}

// Missiles 存活炮弹快照
func (c *Controller) Missiles() []*Missile {
	return append([]*Missile(nil), c.missiles...)
}

func (c *Controller) Len() int { return len(c.missiles) }

// Dispose 注销开火键并释放全部炮弹
func (c *Controller) Dispose() {
	if c.bound {
		c.engine.UnregisterKeyAction(c.action)
		c.bound = false
	}
	for _, m := range c.missiles {
		m.Dispose()
	}
	c.missiles = nil
}
