package render

import (
	"sort"

	"tankarena/geom"
)

// AnimationFPS 动画时钟：固定 60 帧/秒，不随渲染帧率缩放
const AnimationFPS = 60

// Keyframe 关键帧
type Keyframe struct {
	Frame int
	Value geom.Vec3
}

// Animation 可复用的属性动画，播放前通过 SetKeys 写入关键帧
type Animation struct {
	Name     string
	Property Property
	FPS      int

	keys []Keyframe
}

func NewAnimation(name string, prop Property) *Animation {
	return &Animation{Name: name, Property: prop, FPS: AnimationFPS}
}

// SetKeys 覆盖关键帧（按帧号排序）
func (a *Animation) SetKeys(keys []Keyframe) {
	a.keys = append(a.keys[:0], keys...)
	sort.SliceStable(a.keys, func(i, j int) bool { return a.keys[i].Frame < a.keys[j].Frame })
}

func (a *Animation) Keys() []Keyframe {
	return append([]Keyframe(nil), a.keys...)
}

// ValueAt 在关键帧之间线性插值；越界时取端点
func (a *Animation) ValueAt(frame float64) geom.Vec3 {
	if len(a.keys) == 0 {
		return geom.Vec3{}
	}
	if frame <= float64(a.keys[0].Frame) {
		return a.keys[0].Value
	}
	for i := 1; i < len(a.keys); i++ {
		prev, next := a.keys[i-1], a.keys[i]
		if frame <= float64(next.Frame) {
			span := float64(next.Frame - prev.Frame)
			if span <= 0 {
				return next.Value
			}
			return prev.Value.Lerp(next.Value, (frame-float64(prev.Frame))/span)
		}
	}
	return a.keys[len(a.keys)-1].Value
}
