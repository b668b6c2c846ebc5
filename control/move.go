package control

import (
	"tankarena/field"
	"tankarena/geom"
	"tankarena/render"
)

// MoveController 把场地查询接到 Controls 上；场地尚未下发时不做限制
type MoveController struct {
	field    *field.Field
	controls *Controls
}

func NewMoveController(engine render.Engine, f *field.Field, mover render.Mesh, intents Intents) *MoveController {
	mc := &MoveController{field: f}
	mc.controls = NewControls(engine, mover, mc, intents)
	return mc
}

// Normalize 实现 field.Normalizer
func (mc *MoveController) Normalize(candidate, prev geom.Vec3) geom.Vec3 {
	if mc.field == nil {
		return candidate
	}
	return mc.field.Normalize(candidate, prev)
}

// SetField 场地被替换后切到新场地
func (mc *MoveController) SetField(f *field.Field) { mc.field = f }

func (mc *MoveController) Controls() *Controls { return mc.controls }

func (mc *MoveController) Dispose() {
	mc.controls.Dispose()
}
