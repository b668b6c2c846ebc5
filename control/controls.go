// Package control 本地键盘输入 → 本地动画 + 上报意图
package control

import (
	"tankarena/field"
	"tankarena/geom"
	"tankarena/logging"
	"tankarena/render"
)

// MaxFrame 一次动作的动画帧数（60 帧/秒）
const MaxFrame = 6

// Intents 向服务端上报的意图（fire-and-forget）
type Intents interface {
	ChangeRotation(rotation geom.Vec3)
	ChangePosition(position geom.Vec3)
}

// MoveKind 动作类型
type MoveKind int

const (
	Rotate MoveKind = iota
	Translate
)

func (k MoveKind) String() string {
	if k == Rotate {
		return "rotate"
	}
	return "translate"
}

// MoveState 本地预测动作的状态
type MoveState int

const (
	// Pending 已上报、本地动画进行中
	Pending MoveState = iota
	// Committed 本地动画完成；不会因服务端回包回滚
	Committed
)

// Move 一次被接受的本地动作
type Move struct {
	Seq    int64
	Kind   MoveKind
	From   geom.Vec3
	Target geom.Vec3
	State  MoveState
}

// Controls 四个方向键：左右转 90°，上下前进/后退一格。
// 同一时刻只允许一个动作（Idle → Animating → Idle），动画期间的按键直接丢弃
type Controls struct {
	engine     render.Engine
	target     render.Mesh
	normalizer field.Normalizer
	intents    Intents

	actions    []render.ActionID
	animations []*render.Animation

	actionStarted bool
	seq           int64
	current       *Move
	committed     map[MoveKind]Move
}

func NewControls(engine render.Engine, target render.Mesh, normalizer field.Normalizer, intents Intents) *Controls {
	c := &Controls{
		engine:     engine,
		target:     target,
		normalizer: normalizer,
		intents:    intents,
		committed:  make(map[MoveKind]Move),
	}
	c.addAction(render.KeyLeft, "animation_left", render.PropRotation, func() Move { return c.rotate(-1) })
	c.addAction(render.KeyRight, "animation_right", render.PropRotation, func() Move { return c.rotate(1) })
	c.addAction(render.KeyUp, "animation_up", render.PropPosition, func() Move { return c.move(-1) })
	c.addAction(render.KeyDown, "animation_down", render.PropPosition, func() Move { return c.move(1) })
	return c
}

func (c *Controls) addAction(key render.Key, name string, prop render.Property, plan func() Move) {
	anim := render.NewAnimation(name, prop)
	id := c.engine.RegisterKeyAction(key, func() {
		if !c.CanRunAction() {
			return
		}
		c.actionStarted = true
		mv := plan()
		c.current = &mv
		anim.SetKeys([]render.Keyframe{
			{Frame: 0, Value: mv.From},
			{Frame: MaxFrame, Value: mv.Target},
		})
		c.engine.BeginAnimation(c.target, anim, 0, MaxFrame, c.onActionEnd)
	})
	c.actions = append(c.actions, id)
	c.animations = append(c.animations, anim)
	c.target.AttachAnimation(anim)
}

// rotate 先上报新朝向，再开始本地动画
func (c *Controls) rotate(direction float64) Move {
	from := c.target.Rotation()
	to := geom.V(from.X, from.Y+direction*geom.QuarterTurn, from.Z)
	c.intents.ChangeRotation(to)
	return c.newMove(Rotate, from, to)
}

// move forwardDirection=-1 前进，1 后退
func (c *Controls) move(forwardDirection float64) Move {
	from := c.target.Position()
	step := geom.StepFromYaw(c.target.Rotation().Y)
	candidate := geom.SnapToGrid(from.Add(step.Scale(forwardDirection)))
	to := candidate
	if c.normalizer != nil {
		to = c.normalizer.Normalize(candidate, from)
	}
	c.intents.ChangePosition(to)
	return c.newMove(Translate, from, to)
}

func (c *Controls) newMove(kind MoveKind, from, to geom.Vec3) Move {
	c.seq++
	return Move{Seq: c.seq, Kind: kind, From: from, Target: to, State: Pending}
}

func (c *Controls) onActionEnd() {
	if c.current != nil {
		c.current.State = Committed
		c.committed[c.current.Kind] = *c.current
		c.current = nil
	}
	c.actionStarted = false
}

// CanRunAction 没有进行中的动作时才接受新按键
func (c *Controls) CanRunAction() bool { return !c.actionStarted }

// Pending 进行中的动作
func (c *Controls) Pending() (Move, bool) {
	if c.current == nil {
		return Move{}, false
	}
	return *c.current, true
}

// LastCommitted 某类动作最近一次完成的结果
func (c *Controls) LastCommitted(kind MoveKind) (Move, bool) {
	mv, ok := c.committed[kind]
	return mv, ok
}

// ObserveServer 服务端回显本地玩家状态。不回滚，只在与本地已提交结果不一致时记录分歧
func (c *Controls) ObserveServer(kind MoveKind, v geom.Vec3) bool {
	mv, ok := c.committed[kind]
	if !ok || c.current != nil {
		return false
	}
	same := mv.Target == v
	if kind == Translate {
		same = mv.Target.SameCell(v)
	}
	if !same {
		logging.Log.Warnw("local state diverged from server", "kind", kind.String(), "seq", mv.Seq, "local", mv.Target.String(), "server", v.String())
	}
	return !same
}

// Dispose 注销按键，停止并只摘掉本实例挂上的动画
func (c *Controls) Dispose() {
	for _, id := range c.actions {
		c.engine.UnregisterKeyAction(id)
	}
	c.actions = nil
	// 进行中的动作就地停下，之后对网格的赋值不会被动画覆盖
	for _, anim := range c.animations {
		c.engine.StopAnimation(c.target, anim)
	}
	c.current = nil
	c.actionStarted = false
	c.target.DetachAnimations(c.animations)
	c.animations = nil
}
