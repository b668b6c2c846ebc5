package geom

import "math"

// Direction 四个轴对齐方向之一，由偏航角量化得到
type Direction int

const (
	Forward Direction = iota
	Right
	Backward
	Left
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Right:
		return "right"
	case Backward:
		return "backward"
	case Left:
		return "left"
	default:
		return "unknown"
	}
}

// QuarterTurn 一次左右转向的角度
const QuarterTurn = math.Pi / 2

// QuantizeYaw 把偏航角吸附到最近的四分之一圈，返回唯一方向
// yaw≈0 → Forward，π/2 → Right，π → Backward，3π/2 → Left（负角度按模 4 处理）
func QuantizeYaw(yaw float64) Direction {
	k := int(math.Round(yaw/QuarterTurn)) % 4
	if k < 0 {
		k += 4
	}
	return Direction(k)
}

// Unit 返回方向对应的 (sin, cos) 吸附值，只可能是 {-1,0,1} 且恰有一个分量非零
func (d Direction) Unit() Vec3 {
	switch d {
	case Forward:
		return Vec3{Z: 1}
	case Right:
		return Vec3{X: 1}
	case Backward:
		return Vec3{Z: -1}
	case Left:
		return Vec3{X: -1}
	default:
		return Vec3{}
	}
}

// Ahead 朝向前方一格的位移；模型正面朝 -unit
func (d Direction) Ahead() Vec3 {
	return d.Unit().Scale(-1)
}

// StepFromYaw 偏航角量化后的一格位移（sin/cos 吸附到 {-1,0,1}）
func StepFromYaw(yaw float64) Vec3 {
	return QuantizeYaw(yaw).Unit()
}

// SnapToGrid 把 x/z 四舍五入到整数网格，y 保持不变
func SnapToGrid(v Vec3) Vec3 {
	return Vec3{X: math.Round(v.X), Y: v.Y, Z: math.Round(v.Z)}
}
