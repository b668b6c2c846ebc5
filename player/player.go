// Package player 玩家实体与远端玩家名册
package player

import (
	"fmt"

	"tankarena/geom"
	"tankarena/protocol"
	"tankarena/render"
)

// MaxFrame 位移/转向动画长度（60 帧/秒下 6 帧）
const MaxFrame = 6

// Config 实体配置；用 NewMain / NewRemote 按用途构造，而不是靠可选字段组合
type Config struct {
	Record protocol.PlayerRecord
	// Animated 远端驱动：SetPosition/SetRotation 以动画过渡到目标值
	Animated bool
	// WithLabel 头顶显示 "Player: (id) hp: x/y" 标签
	WithLabel bool
}

// Player 场景中的一辆坦克
type Player struct {
	userID string
	color  string
	stat   protocol.Stat
	model  render.Mesh
	anim   *animationCtrl
	label  string
	labels bool
}

// NewMain 本地主玩家：位置由 Controls 驱动，带标签
func NewMain(engine render.Engine, rec protocol.PlayerRecord) *Player {
	return New(engine, Config{Record: rec, WithLabel: true})
}

// NewRemote 远端玩家：由网络事件驱动，动画过渡，无标签
func NewRemote(engine render.Engine, rec protocol.PlayerRecord) *Player {
	return New(engine, Config{Record: rec, Animated: true})
}

func New(engine render.Engine, cfg Config) *Player {
	rec := cfg.Record
	p := &Player{
		userID: rec.UserID,
		stat:   rec.Stat,
		labels: cfg.WithLabel,
	}
	p.model = engine.CreateBox("playerModel"+rec.UserID, geom.V(1, 1, 2))
	p.model.SetPosition(rec.Position)
	p.model.SetRotation(rec.Rotation)
	p.model.SetColor("#e6e6e6")
	if cfg.Animated {
		p.anim = newAnimationCtrl(engine, p.model, rec.UserID)
	}
	if rec.Color != "" {
		p.ChangeColor(rec.Color)
	}
	p.refreshLabel()
	return p
}

func (p *Player) UserID() string { return p.userID }

// SetUserID 主玩家在 create-player-success 之后才拿到正式 id
func (p *Player) SetUserID(id string) {
	p.userID = id
	p.refreshLabel()
}

func (p *Player) Model() render.Mesh { return p.model }

func (p *Player) Position() geom.Vec3 { return p.model.Position() }

func (p *Player) Rotation() geom.Vec3 { return p.model.Rotation() }

func (p *Player) Color() string { return p.model.Color() }

func (p *Player) ChangeColor(hex string) { p.model.SetColor(hex) }

func (p *Player) Stat() protocol.Stat { return p.stat }

func (p *Player) SetStat(s protocol.Stat) {
	p.stat = s
	p.refreshLabel()
}

// Label 标签文本；未启用标签时为空
func (p *Player) Label() string { return p.label }

// Animating 远端实体是否正在过渡
func (p *Player) Animating() bool {
	return p.anim != nil && p.anim.active > 0
}

func (p *Player) SetPosition(v geom.Vec3) {
	if p.anim != nil {
		p.anim.startPosition(v)
		return
	}
	p.model.SetPosition(v)
}

func (p *Player) SetRotation(v geom.Vec3) {
	if p.anim != nil {
		p.anim.startRotation(v)
		return
	}
	p.model.SetRotation(v)
}

// Record 当前状态转成协议记录
func (p *Player) Record() protocol.PlayerRecord {
	return protocol.PlayerRecord{
		UserID:   p.userID,
		Position: p.Position(),
		Rotation: p.Rotation(),
		Color:    p.Color(),
		Stat:     p.stat,
	}
}

func (p *Player) Dispose() {
	p.model.Dispose()
	p.label = ""
}

func (p *Player) refreshLabel() {
	if !p.labels {
		return
	}
	p.label = fmt.Sprintf("Player: (%s)\nhp: %d/%d", p.userID, p.stat.HP, p.stat.MaxHP)
}
