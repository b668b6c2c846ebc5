// Package game 组合根：持有引擎、相机、主玩家、名册、场地与网络，在一个 goroutine 里驱动全部状态
package game

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tankarena/control"
	"tankarena/field"
	"tankarena/geom"
	"tankarena/logging"
	"tankarena/missile"
	"tankarena/netclient"
	"tankarena/player"
	"tankarena/protocol"
	"tankarena/render"
)

const DefaultFrameRate = 60

// Options 客户端参数
type Options struct {
	SessionURL string // GET 拿 userID
	ServerURL  string // ws://.../ws
	FrameRate  int
	Missile    missile.Options

	HTTPClient  *http.Client
	Dialer      *websocket.Dialer
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// advancer 自己不跑渲染循环的引擎（Headless）需要由主循环推进动画时钟
type advancer interface {
	Advance(dt time.Duration)
}

type keyPresser interface {
	PressKey(key render.Key)
}

// Game 所有场景状态只在 Run 的循环里读写；外部通过 Post/Sync 投递
type Game struct {
	opts   Options
	engine render.Engine

	userID     string
	camera     render.Camera
	mainPlayer *player.Player
	roster     *player.Roster
	field      *field.Field
	moveCtrl   *control.MoveController
	missiles   *missile.Controller
	net        *netclient.Net
	stats      Stats

	tasks    chan func()
	stop     chan struct{}
	stopOnce sync.Once
}

func New(engine render.Engine, opts Options) *Game {
	if opts.FrameRate <= 0 {
		opts.FrameRate = DefaultFrameRate
	}
	g := &Game{
		opts:   opts,
		engine: engine,
		tasks:  make(chan func(), 256),
		stop:   make(chan struct{}),
	}
	g.createScene()
	return g
}

func (g *Game) createScene() {
	g.mainPlayer = player.NewMain(g.engine, protocol.PlayerRecord{
		UserID:   "temp-userID",
		Position: geom.V(0, 1, 0),
		Rotation: geom.V(-math.Pi/2, 0, 0),
		Color:    "#ffffff",
		Stat:     protocol.Stat{HP: 100, MaxHP: 100},
	})
	g.camera = g.engine.AttachCamera(g.mainPlayer.Model())
	g.roster = player.NewRoster(g.engine, g.opts.Missile)
}

// Run 先拿会话再建连接（顺序不能颠倒），然后进入主循环直到 ctx 结束
func (g *Game) Run(ctx context.Context) error {
	defer g.closeStop()

	userID, err := netclient.FetchSession(ctx, g.opts.HTTPClient, g.opts.SessionURL)
	if err != nil {
		return fmt.Errorf("bootstrap session: %w", err)
	}
	g.userID = userID
	logging.Log.Infow("session ready", "userID", userID)

	n, err := netclient.Dial(ctx, netclient.Options{
		URL:    g.opts.ServerURL,
		Query:  url.Values{"userID": {userID}},
		Roster: rosterSync{g},
		Events: netclient.Events{
			OnField:               g.onField,
			OnCreatePlayerSuccess: g.onCreatePlayerSuccess,
		},
		Post:        g.Post,
		Dialer:      g.opts.Dialer,
		BackoffBase: g.opts.BackoffBase,
		BackoffMax:  g.opts.BackoffMax,
	})
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	g.net = n

	err = g.loop(ctx)
	// 先让 Post 不再阻塞，读协程才能退出，Close 才能返回
	g.closeStop()
	if cerr := n.Close(); cerr != nil && !errors.Is(cerr, netclient.ErrClosed) {
		logging.Log.Warnw("close connection", "error", cerr)
	}
	return err
}

func (g *Game) closeStop() {
	g.stopOnce.Do(func() { close(g.stop) })
}

func (g *Game) loop(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(g.opts.FrameRate))
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-g.tasks:
			fn()
		case now := <-ticker.C:
			g.frame(now, now.Sub(last))
			last = now
		}
	}
}

// frame 每帧：推进动画、炮弹、帧统计
func (g *Game) frame(now time.Time, dt time.Duration) {
	if a, ok := g.engine.(advancer); ok {
		a.Advance(dt)
	}
	if g.missiles != nil {
		g.missiles.Update(now)
	}
	g.roster.Update(now)
	g.stats.update(now)
}

// Post 把 fn 投递到主循环；循环已退出时丢弃
func (g *Game) Post(fn func()) {
	select {
	case g.tasks <- fn:
	case <-g.stop:
	}
}

// Sync 在主循环里执行 fn 并等待完成
func (g *Game) Sync(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	g.Post(func() {
		fn()
		close(done)
	})
	select {
	case <-done:
		return nil
	case <-g.stop:
		return errors.New("game stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PressKey 模拟按键（bot 与测试使用；真实引擎自己投递键盘事件）
func (g *Game) PressKey(key render.Key) {
	g.Post(func() {
		if kp, ok := g.engine.(keyPresser); ok {
			kp.PressKey(key)
		}
	})
}

func (g *Game) onField(def protocol.FieldDef) {
	g.roster.RemoveAll()
	g.createField(def)
	for _, rec := range def.Players {
		if g.isSelf(rec.UserID) {
			continue
		}
		if _, err := g.roster.AddPlayer(rec); err != nil {
			logging.Log.Warnw("field player not added", "userID", rec.UserID, "error", err)
		}
	}
	logging.Log.Infow("field received", "width", def.Width, "height", def.Height, "walls", len(def.Walls), "players", g.roster.Len())
}

func (g *Game) createField(def protocol.FieldDef) {
	if g.field != nil {
		g.field.Dispose()
	}
	g.field = field.New(g.engine, def, g.roster)
	if g.moveCtrl != nil {
		g.moveCtrl.SetField(g.field)
	}
}

func (g *Game) onCreatePlayerSuccess(rec protocol.PlayerRecord) {
	logging.Log.Infow("create-player-success", "userID", rec.UserID, "position", rec.Position.String())
	// 旧控制器的动作动画要先停掉，否则会覆盖下面写入的位置
	if g.moveCtrl != nil {
		g.moveCtrl.Dispose()
		g.moveCtrl = nil
	}
	g.mainPlayer.SetUserID(rec.UserID)
	g.mainPlayer.SetPosition(rec.Position)
	g.mainPlayer.SetRotation(rec.Rotation)
	if rec.Color != "" {
		g.mainPlayer.ChangeColor(rec.Color)
	}
	if rec.Stat.MaxHP > 0 {
		g.mainPlayer.SetStat(rec.Stat)
	}

	g.camera.Dispose()
	g.camera = g.engine.AttachCamera(g.mainPlayer.Model())
	g.createMoveController()
	g.createMissileController()
}

func (g *Game) createMoveController() {
	if g.moveCtrl != nil {
		g.moveCtrl.Dispose()
	}
	g.moveCtrl = control.NewMoveController(g.engine, g.field, g.mainPlayer.Model(), g.net)
}

func (g *Game) createMissileController() {
	if g.missiles != nil {
		g.missiles.Dispose()
	}
	opts := g.opts.Missile
	opts.Remote = false
	opts.OnShoot = g.net.Shoot
	g.missiles = missile.NewController(g.engine, g.mainPlayer, opts)
}

func (g *Game) isSelf(userID string) bool {
	return userID == g.mainPlayer.UserID() || (g.userID != "" && userID == g.userID)
}

// 以下访问器只应在主循环内（Sync 回调里）调用

func (g *Game) UserID() string { return g.userID }
func (g *Game) MainPlayer() *player.Player { return g.mainPlayer }
func (g *Game) Roster() *player.Roster { return g.roster }
func (g *Game) Field() *field.Field { return g.field }
func (g *Game) Camera() render.Camera { return g.camera }
func (g *Game) MoveController() *control.MoveController { return g.moveCtrl }
func (g *Game) Missiles() *missile.Controller { return g.missiles }
func (g *Game) Stats() Stats { return g.stats }
