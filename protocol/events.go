// Package protocol WebSocket 事件名、信封编解码与负载结构，服务端与客户端共用
package protocol

import "tankarena/geom"

// 服务端 → 客户端
const (
	EventField               = "field"
	EventCreatePlayerSuccess = "create-player-success"
	EventPlayerJoined        = "player-joined"
	EventPlayerLeaved        = "player-leaved"
	EventPlayerChangedRot    = "player-changed-rotation"
	EventPlayerChangedPos    = "player-changed-position"
	EventPlayerShot          = "player-shot"
)

// 客户端 → 服务端
const (
	EventChangeRotation = "change-rotation"
	EventChangePosition = "change-position"
	EventShoot          = "shoot"
)

// Stat 生命值
type Stat struct {
	HP    int `json:"hp"`
	MaxHP int `json:"maxHp"`
}

// PlayerRecord 玩家完整记录（加入、创建成功、场地快照中使用）
type PlayerRecord struct {
	UserID   string    `json:"userID"`
	Position geom.Vec3 `json:"position"`
	Rotation geom.Vec3 `json:"rotation"`
	Color    string    `json:"color,omitempty"`
	Stat     Stat      `json:"stat"`
}

// WallDef 场地障碍物
type WallDef struct {
	Position geom.Vec3 `json:"position"`
	Size     float64   `json:"size"`
}

// FieldDef 场地定义，服务端在 "field" 事件中整体下发
type FieldDef struct {
	Width   float64        `json:"width"`
	Height  float64        `json:"height"`
	Debug   bool           `json:"debug,omitempty"`
	Walls   []WallDef      `json:"walls"`
	Players []PlayerRecord `json:"players,omitempty"`
}

// PositionChange player-changed-position 负载
type PositionChange struct {
	UserID   string    `json:"userID"`
	Position geom.Vec3 `json:"position"`
}

// RotationChange player-changed-rotation 负载
type RotationChange struct {
	UserID   string    `json:"userID"`
	Rotation geom.Vec3 `json:"rotation"`
}

// Shot 开火：客户端上行不带 userID，服务端转发时补上
type Shot struct {
	UserID   string    `json:"userID,omitempty"`
	Position geom.Vec3 `json:"position"`
	Rotation geom.Vec3 `json:"rotation"`
}

// Session GET /session 响应
type Session struct {
	UserID string `json:"userID"`
}
