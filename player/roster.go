package player

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"tankarena/logging"
	"tankarena/missile"
	"tankarena/protocol"
	"tankarena/render"
)

var (
	ErrNotFound      = errors.New("player not found")
	ErrAlreadyExists = errors.New("player already exists")
)

type entry struct {
	player   *Player
	missiles *missile.Controller
}

// Roster 远端玩家名册（按 userID 索引），每个远端玩家附带一个 remote 模式的炮弹控制器。
// 与 Game 主循环同一 goroutine 使用，不加锁
type Roster struct {
	engine      render.Engine
	missileOpts missile.Options
	players     map[string]*entry
}

func NewRoster(engine render.Engine, missileOpts missile.Options) *Roster {
	missileOpts.Remote = true
	missileOpts.OnShoot = nil
	return &Roster{
		engine:      engine,
		missileOpts: missileOpts,
		players:     make(map[string]*entry),
	}
}

// AddPlayer player-joined：创建远端实体与其炮弹控制器
func (r *Roster) AddPlayer(rec protocol.PlayerRecord) (*Player, error) {
	if _, ok := r.players[rec.UserID]; ok {
		return nil, fmt.Errorf("add %q: %w", rec.UserID, ErrAlreadyExists)
	}
	p := NewRemote(r.engine, rec)
	r.players[rec.UserID] = &entry{
		player:   p,
		missiles: missile.NewController(r.engine, p, r.missileOpts),
	}
	logging.Log.Debugw("roster add", "userID", rec.UserID, "size", len(r.players))
	return p, nil
}

// RemovePlayer player-leaved：移除并释放实体与炮弹
func (r *Roster) RemovePlayer(userID string) error {
	e, ok := r.players[userID]
	if !ok {
		return fmt.Errorf("remove %q: %w", userID, ErrNotFound)
	}
	delete(r.players, userID)
	e.missiles.Dispose()
	e.player.Dispose()
	logging.Log.Debugw("roster remove", "userID", userID, "size", len(r.players))
	return nil
}

func (r *Roster) ChangePlayerRotation(rec protocol.RotationChange) error {
	e, ok := r.players[rec.UserID]
	if !ok {
		return fmt.Errorf("rotate %q: %w", rec.UserID, ErrNotFound)
	}
	e.player.SetRotation(rec.Rotation)
	return nil
}

func (r *Roster) ChangePlayerPosition(rec protocol.PositionChange) error {
	e, ok := r.players[rec.UserID]
	if !ok {
		return fmt.Errorf("move %q: %w", rec.UserID, ErrNotFound)
	}
	e.player.SetPosition(rec.Position)
	return nil
}

// Shot player-shot：由对应玩家的控制器发射
func (r *Roster) Shot(rec protocol.Shot) error {
	e, ok := r.players[rec.UserID]
	if !ok {
		return fmt.Errorf("shot %q: %w", rec.UserID, ErrNotFound)
	}
	e.missiles.ShootFrom(rec.Position, rec.Rotation)
	return nil
}

// RemoveAll 先取快照再逐个移除，避免边遍历边修改
func (r *Roster) RemoveAll() {
	for _, id := range r.ids() {
		_ = r.RemovePlayer(id)
	}
}

// Update 每帧推进所有远端炮弹
func (r *Roster) Update(now time.Time) {
	for _, e := range r.players {
		e.missiles.Update(now)
	}
}

func (r *Roster) Get(userID string) (*Player, bool) {
	e, ok := r.players[userID]
	if !ok {
		return nil, false
	}
	return e.player, true
}

// Missiles 某个远端玩家的炮弹控制器
func (r *Roster) Missiles(userID string) (*missile.Controller, bool) {
	e, ok := r.players[userID]
	if !ok {
		return nil, false
	}
	return e.missiles, true
}

// Players 按 userID 排序的快照
func (r *Roster) Players() []*Player {
	out := make([]*Player, 0, len(r.players))
	for _, id := range r.ids() {
		out = append(out, r.players[id].player)
	}
	return out
}

func (r *Roster) Len() int { return len(r.players) }

func (r *Roster) ids() []string {
	ids := make([]string, 0, len(r.players))
	for id := range r.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
