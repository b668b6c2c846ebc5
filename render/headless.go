package render

import (
	"time"

	"tankarena/geom"
)

// Headless 不出图的 Engine 实现。非并发安全：只能在游戏主循环所在的 goroutine 使用
type Headless struct {
	meshes  []*mesh
	running []*runningAnim
	actions []keyAction
	nextID  ActionID
	camera  *camera
}

type keyAction struct {
	id  ActionID
	key Key
	fn  func()
}

type runningAnim struct {
	target Mesh
	source *Animation
	anim   *Animation // 开始播放时的关键帧快照
	from   float64
	to     float64
	frame  float64
	onEnd  func()
}

func NewHeadless() *Headless {
	return &Headless{}
}

func (h *Headless) CreateBox(name string, size geom.Vec3) Mesh {
	m := &mesh{name: name, size: size, visible: true}
	h.meshes = append(h.meshes, m)
	return m
}

func (h *Headless) CreateGround(name string, width, height float64) Mesh {
	return h.CreateBox(name, geom.V(width, 0, height))
}

func (h *Headless) BeginAnimation(target Mesh, anim *Animation, from, to int, onEnd func()) {
	var stopped []func()
	kept := h.running[:0]
	for _, r := range h.running {
		if r.target == target && r.anim.Property == anim.Property {
			if r.onEnd != nil {
				stopped = append(stopped, r.onEnd)
			}
			continue
		}
		kept = append(kept, r)
	}
	h.running = kept

	snap := &Animation{Name: anim.Name, Property: anim.Property, FPS: anim.FPS, keys: anim.Keys()}
	if snap.FPS <= 0 {
		snap.FPS = AnimationFPS
	}
	h.running = append(h.running, &runningAnim{
		target: target,
		source: anim,
		anim:   snap,
		from:   float64(from),
		to:     float64(to),
		frame:  float64(from),
		onEnd:  onEnd,
	})
	apply(target, snap.Property, snap.ValueAt(float64(from)))

	for _, fn := range stopped {
		fn()
	}
}

func (h *Headless) StopAnimation(target Mesh, anim *Animation) {
	kept := h.running[:0]
	for _, r := range h.running {
		if r.target == target && r.source == anim {
			continue
		}
		kept = append(kept, r)
	}
	h.running = kept
}

// Advance 推进动画时钟 dt；到达末帧的动画写入终值并回调 onEnd
func (h *Headless) Advance(dt time.Duration) {
	var finished []func()
	kept := h.running[:0]
	for _, r := range h.running {
		if r.target.Disposed() {
			continue
		}
		r.frame += dt.Seconds() * float64(r.anim.FPS)
		if r.frame >= r.to {
			apply(r.target, r.anim.Property, r.anim.ValueAt(r.to))
			if r.onEnd != nil {
				finished = append(finished, r.onEnd)
			}
			continue
		}
		apply(r.target, r.anim.Property, r.anim.ValueAt(r.frame))
		kept = append(kept, r)
	}
	h.running = kept
	for _, fn := range finished {
		fn()
	}
}

// Animating 当前是否有动画在目标上播放
func (h *Headless) Animating(target Mesh) bool {
	for _, r := range h.running {
		if r.target == target {
			return true
		}
	}
	return false
}

func (h *Headless) AttachCamera(target Mesh) Camera {
	c := &camera{target: target}
	h.camera = c
	return c
}

// Camera 最近一次挂上的相机
func (h *Headless) Camera() Camera {
	if h.camera == nil || h.camera.disposed {
		return nil
	}
	return h.camera
}

func (h *Headless) RegisterKeyAction(key Key, fn func()) ActionID {
	h.nextID++
	h.actions = append(h.actions, keyAction{id: h.nextID, key: key, fn: fn})
	return h.nextID
}

func (h *Headless) UnregisterKeyAction(id ActionID) {
	for i, a := range h.actions {
		if a.id == id {
			h.actions = append(h.actions[:i], h.actions[i+1:]...)
			return
		}
	}
}

// PressKey 模拟一次 keydown，按注册顺序触发
func (h *Headless) PressKey(key Key) {
	var fns []func()
	for _, a := range h.actions {
		if a.key == key {
			fns = append(fns, a.fn)
		}
	}
	for _, fn := range fns {
		fn()
	}
}

// KeyActions 已注册的按键动作数量
func (h *Headless) KeyActions() int { return len(h.actions) }

// LiveMeshes 未释放的网格数量
func (h *Headless) LiveMeshes() int {
	n := 0
	for _, m := range h.meshes {
		if !m.disposed {
			n++
		}
	}
	return n
}

func apply(m Mesh, p Property, v geom.Vec3) {
	if p == PropRotation {
		m.SetRotation(v)
		return
	}
	m.SetPosition(v)
}

type mesh struct {
	name       string
	size       geom.Vec3
	position   geom.Vec3
	rotation   geom.Vec3
	color      string
	visible    bool
	animations []*Animation
	disposed   bool
}

func (m *mesh) Name() string { return m.name }
func (m *mesh) Position() geom.Vec3 { return m.position }
func (m *mesh) SetPosition(v geom.Vec3) { m.position = v }
func (m *mesh) Rotation() geom.Vec3 { return m.rotation }
func (m *mesh) SetRotation(v geom.Vec3) { m.rotation = v }
func (m *mesh) Color() string { return m.color }
func (m *mesh) SetColor(hex string) { m.color = hex }
func (m *mesh) SetVisible(v bool) { m.visible = v }
func (m *mesh) Disposed() bool { return m.disposed }
func (m *mesh) Dispose() { m.disposed = true }
func (m *mesh) AttachAnimation(a *Animation) { m.animations = append(m.animations, a) }

func (m *mesh) Animations() []*Animation {
	return append([]*Animation(nil), m.animations...)
}

func (m *mesh) DetachAnimations(owned []*Animation) {
	kept := m.animations[:0]
	for _, a := range m.animations {
		mine := false
		for _, o := range owned {
			if a == o {
				mine = true
				break
			}
		}
		if !mine {
			kept = append(kept, a)
		}
	}
	m.animations = kept
}

type camera struct {
	target   Mesh
	disposed bool
}

func (c *camera) Target() Mesh { return c.target }
func (c *camera) Dispose() { c.disposed = true }
