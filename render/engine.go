// Package render 渲染引擎协作方：游戏核心只通过 Engine 创建网格、播放属性动画、挂相机、注册按键。
// Headless 是不出图的实现，供测试与 bot 客户端驱动同一套逻辑。
package render

import "tankarena/geom"

// Key 逻辑按键
type Key string

const (
	KeyLeft  Key = "left"
	KeyRight Key = "right"
	KeyUp    Key = "up"
	KeyDown  Key = "down"
	KeySpace Key = "space"
)

// Property 可动画的网格属性
type Property int

const (
	PropPosition Property = iota
	PropRotation
)

func (p Property) String() string {
	if p == PropRotation {
		return "rotation"
	}
	return "position"
}

// ActionID 按键动作注册句柄
type ActionID int

// Mesh 场景中的一个网格
type Mesh interface {
	Name() string
	Position() geom.Vec3
	SetPosition(geom.Vec3)
	Rotation() geom.Vec3
	SetRotation(geom.Vec3)
	Color() string
	SetColor(hex string)
	SetVisible(bool)

	// Animations 当前挂在网格上的动画（多个控制器可能共享同一网格）
	Animations() []*Animation
	AttachAnimation(a *Animation)
	// DetachAnimations 只移除给定的动画，其他控制器挂上的保留
	DetachAnimations(owned []*Animation)

	Dispose()
	Disposed() bool
}

// Camera 跟随相机
type Camera interface {
	Target() Mesh
	Dispose()
}

// Engine 游戏核心消费的渲染接口
type Engine interface {
	CreateBox(name string, size geom.Vec3) Mesh
	CreateGround(name string, width, height float64) Mesh
	// BeginAnimation 播放 anim 的 [from,to] 帧；同一网格同一属性上的旧动画会被停止（并回调其 onEnd）
	BeginAnimation(target Mesh, anim *Animation, from, to int, onEnd func())
	// StopAnimation 停在当前帧，不回调 onEnd
	StopAnimation(target Mesh, anim *Animation)
	AttachCamera(target Mesh) Camera
	RegisterKeyAction(key Key, fn func()) ActionID
	UnregisterKeyAction(id ActionID)
}
