package player

import (
	"tankarena/geom"
	"tankarena/render"
)

// animationCtrl 远端玩家的位移/转向过渡
type animationCtrl struct {
	engine   render.Engine
	model    render.Mesh
	position *render.Animation
	rotation *render.Animation
	active   int
}

func newAnimationCtrl(engine render.Engine, model render.Mesh, userID string) *animationCtrl {
	return &animationCtrl{
		engine:   engine,
		model:    model,
		position: render.NewAnimation("position-anim-player-"+userID, render.PropPosition),
		rotation: render.NewAnimation("rotation-anim-player-"+userID, render.PropRotation),
	}
}

func (a *animationCtrl) startPosition(v geom.Vec3) {
	a.begin(a.position, a.model.Position(), v)
}

func (a *animationCtrl) startRotation(v geom.Vec3) {
	a.begin(a.rotation, a.model.Rotation(), v)
}

func (a *animationCtrl) begin(anim *render.Animation, from, to geom.Vec3) {
	anim.SetKeys([]render.Keyframe{
		{Frame: 0, Value: from},
		{Frame: MaxFrame, Value: to},
	})
	a.active++
	a.engine.BeginAnimation(a.model, anim, 0, MaxFrame, func() { a.active-- })
}
