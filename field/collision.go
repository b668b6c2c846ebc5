package field

import "tankarena/geom"

// Normalizer 碰撞规整：越界或撞上墙/玩家时退回原位置
type Normalizer interface {
	Normalize(candidate, prev geom.Vec3) geom.Vec3
}

// NormalizerFunc 让普通函数满足 Normalizer
type NormalizerFunc func(candidate, prev geom.Vec3) geom.Vec3

func (fn NormalizerFunc) Normalize(candidate, prev geom.Vec3) geom.Vec3 { return fn(candidate, prev) }

// Normalize 实现 Normalizer
func (f *Field) Normalize(candidate, prev geom.Vec3) geom.Vec3 {
	if !f.InBounds(candidate) {
		return prev
	}
	if len(f.WallsByPosition(candidate)) > 0 {
		return prev
	}
	if len(f.PlayersByPosition(candidate)) > 0 {
		return prev
	}
	return candidate
}
