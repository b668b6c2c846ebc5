package game

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tankarena/config"
	"tankarena/control"
	"tankarena/geom"
	"tankarena/protocol"
	"tankarena/render"
	"tankarena/server"
)

type harness struct {
	t      *testing.T
	ts     *httptest.Server
	game   *Game
	engine *render.Headless
	ctx    context.Context
	cancel context.CancelFunc
	result chan error
}

func start(t *testing.T) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.Server.StaticDir = ""
	cfg.Room.TicksPerSecond = 100
	// 出生点离炮弹边界足够远
	cfg.Room.Width, cfg.Room.Height = 10, 10
	srv := server.New(cfg)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})

	engine := render.NewHeadless()
	g := New(engine, Options{
		SessionURL: ts.URL + "/session",
		ServerURL:  "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws",
		FrameRate:  120,
	})
	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{t: t, ts: ts, game: g, engine: engine, ctx: ctx, cancel: cancel, result: make(chan error, 1)}
	go func() { h.result <- g.Run(ctx) }()
	t.Cleanup(cancel)
	return h
}

// eventually 在主循环里求值 cond，直到为真
func (h *harness) eventually(cond func(g *Game) bool, msg string) {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		var ok bool
		if err := h.game.Sync(h.ctx, func() { ok = cond(h.game) }); err != nil {
			return false
		}
		return ok
	}, 3*time.Second, 10*time.Millisecond, msg)
}

func (h *harness) ready() {
	h.t.Helper()
	h.eventually(func(g *Game) bool {
		return g.UserID() != "" && g.MainPlayer().UserID() == g.UserID() && g.Field() != nil && g.MoveController() != nil
	}, "game did not finish joining")
}

// peer 一个直接用 websocket 接入的对手
type peer struct {
	t    *testing.T
	conn *websocket.Conn
}

func (h *harness) peer(userID string) *peer {
	h.t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(h.ts.URL, "http")+"/ws?userID="+userID, nil)
	require.NoError(h.t, err)
	h.t.Cleanup(func() { _ = conn.Close() })
	p := &peer{t: h.t, conn: conn}
	p.expect(protocol.EventField)
	p.expect(protocol.EventCreatePlayerSuccess)
	return p
}

func (p *peer) expect(event string) protocol.Envelope {
	p.t.Helper()
	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, b, err := p.conn.ReadMessage()
	require.NoError(p.t, err)
	env, err := protocol.DecodeEnvelope(b)
	require.NoError(p.t, err)
	require.Equal(p.t, event, env.Event)
	return env
}

func (p *peer) send(event string, payload any) {
	p.t.Helper()
	require.NoError(p.t, p.conn.WriteMessage(websocket.TextMessage, protocol.MustEncode(event, payload)))
}

func TestGameJoinsWithSessionIdentity(t *testing.T) {
	h := start(t)
	h.ready()

	var (
		pos    geom.Vec3
		hp     protocol.Stat
		target render.Mesh
		main   render.Mesh
		walls  int
	)
	require.NoError(t, h.game.Sync(h.ctx, func() {
		pos = h.game.MainPlayer().Position()
		hp = h.game.MainPlayer().Stat()
		target = h.game.Camera().Target()
		main = h.game.MainPlayer().Model()
		walls = len(h.game.Field().Walls())
	}))
	assert.Equal(t, 1.0, pos.Y)
	assert.Equal(t, protocol.Stat{HP: 100, MaxHP: 100}, hp)
	assert.Same(t, main, target)
	assert.Equal(t, len(config.Default().Room.Walls), walls)
}

func TestGameMirrorsPeers(t *testing.T) {
	h := start(t)
	h.ready()

	bob := h.peer("bob")
	h.eventually(func(g *Game) bool {
		_, ok := g.Roster().Get("bob")
		return ok
	}, "peer not added to roster")

	bob.send(protocol.EventChangePosition, geom.V(4, 1, 4))
	h.eventually(func(g *Game) bool {
		p, ok := g.Roster().Get("bob")
		return ok && !p.Animating() && p.Position() == geom.V(4, 1, 4)
	}, "peer position not mirrored")

	bob.send(protocol.EventShoot, protocol.Shot{Position: geom.V(4, 1, 4), Rotation: geom.V(0, 0, 0)})
	h.eventually(func(g *Game) bool {
		mc, ok := g.Roster().Missiles("bob")
		return ok && mc.Len() == 1
	}, "peer missile not spawned")

	require.NoError(t, bob.conn.Close())
	h.eventually(func(g *Game) bool { return g.Roster().Len() == 0 }, "peer not removed")
}

func TestGameReportsLocalIntents(t *testing.T) {
	h := start(t)
	h.ready()
	bob := h.peer("bob")
	h.eventually(func(g *Game) bool { return g.Roster().Len() == 1 }, "peer not added")

	var self string
	require.NoError(t, h.game.Sync(h.ctx, func() { self = h.game.UserID() }))

	h.game.PressKey(render.KeyRight)
	rot := bob.expect(protocol.EventPlayerChangedRot)
	rc, err := protocol.DecodePayload[protocol.RotationChange](rot)
	require.NoError(t, err)
	assert.Equal(t, self, rc.UserID)
	assert.InDelta(t, geom.QuarterTurn, rc.Rotation.Y, 1e-9)

	h.eventually(func(g *Game) bool {
		_, pending := g.MoveController().Controls().Pending()
		return !pending
	}, "rotation never committed")

	h.game.PressKey(render.KeySpace)
	shot := bob.expect(protocol.EventPlayerShot)
	sc, err := protocol.DecodePayload[protocol.Shot](shot)
	require.NoError(t, err)
	assert.Equal(t, self, sc.UserID)
	h.eventually(func(g *Game) bool { return g.Missiles().Len() == 1 }, "local missile not spawned")
}

func TestGameStopsOnCancel(t *testing.T) {
	h := start(t)
	h.ready()
	h.cancel()
	select {
	case err := <-h.result:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestGameFailsWithoutSession(t *testing.T) {
	g := New(render.NewHeadless(), Options{SessionURL: "http://127.0.0.1:1/session", ServerURL: "ws://127.0.0.1:1/ws"})
	err := g.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session")
}

type nopIntents struct{}

func (nopIntents) ChangeRotation(geom.Vec3) {}
func (nopIntents) ChangePosition(geom.Vec3) {}

func TestCreatePlayerSuccessDuringMoveKeepsServerPosition(t *testing.T) {
	engine := render.NewHeadless()
	g := New(engine, Options{})
	g.moveCtrl = control.NewMoveController(engine, nil, g.mainPlayer.Model(), nopIntents{})

	engine.PressKey(render.KeyUp)
	require.True(t, engine.Animating(g.mainPlayer.Model()))

	g.onCreatePlayerSuccess(protocol.PlayerRecord{
		UserID:   "u-1",
		Position: geom.V(3, 1, 3),
		Rotation: geom.V(0, 0, 0),
	})
	engine.Advance(time.Second)
	assert.Equal(t, geom.V(3, 1, 3), g.mainPlayer.Position())
	assert.Equal(t, "u-1", g.mainPlayer.UserID())
}

func TestRunReturnsWithStalledLoopAndFullQueue(t *testing.T) {
	h := start(t)
	h.ready()

	release := make(chan struct{})
	h.game.Post(func() { <-release })
	go func() {
		for i := 0; i < 2*cap(h.game.tasks); i++ {
			h.game.Post(func() {})
		}
	}()
	time.Sleep(50 * time.Millisecond)

	h.cancel()
	close(release)
	select {
	case err := <-h.result:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return")
	}

	posted := make(chan struct{})
	go func() {
		h.game.Post(func() {})
		close(posted)
	}()
	select {
	case <-posted:
	case <-time.After(time.Second):
		t.Fatal("Post blocked after Run returned")
	}
}
