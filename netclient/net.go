// Package netclient 客户端会话与 WebSocket 通道：入站事件分发到名册/回调，出站上报意图
package netclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tankarena/geom"
	"tankarena/logging"
	"tankarena/protocol"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendQueue  = 64

	DefaultBackoffBase = 250 * time.Millisecond
	DefaultBackoffMax  = 10 * time.Second
)

var ErrClosed = errors.New("netclient: closed")

// Roster 入站玩家事件的落点
type Roster interface {
	AddPlayer(rec protocol.PlayerRecord) error
	RemovePlayer(userID string) error
	ChangePlayerRotation(rec protocol.RotationChange) error
	ChangePlayerPosition(rec protocol.PositionChange) error
	Shot(rec protocol.Shot) error
}

// Events 交给组合根处理的入站事件
type Events struct {
	OnField               func(protocol.FieldDef)
	OnCreatePlayerSuccess func(protocol.PlayerRecord)
}

// Options 连接参数
type Options struct {
	URL    string     // ws://host:port/ws
	Query  url.Values // 会话身份，如 userID
	Roster Roster
	Events Events
	// Post 把处理函数投递到调用方的单线程循环；为空时在读协程内直接执行
	Post func(func())

	Dialer      *websocket.Dialer
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// Net 一条逻辑连接；底层断开后按指数退避自动重连，直到 Close 或 ctx 结束
type Net struct {
	opts   Options
	target string

	mu   sync.Mutex
	conn *websocket.Conn
	send chan []byte

	closed    chan struct{}
	closeOnce sync.Once
	done      chan struct{}
}

// Dial 建立第一条连接并启动读写协程；首连失败直接返回错误。ctx 结束等同于 Close
func Dial(ctx context.Context, opts Options) (*Net, error) {
	if opts.Roster == nil {
		return nil, fmt.Errorf("dial: roster is required")
	}
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("dial: parse url: %w", err)
	}
	if opts.Query != nil {
		u.RawQuery = opts.Query.Encode()
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.Post == nil {
		opts.Post = func(fn func()) { fn() }
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = DefaultBackoffBase
	}
	if opts.BackoffMax <= 0 {
		opts.BackoffMax = DefaultBackoffMax
	}

	n := &Net{
		opts:   opts,
		target: u.String(),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	conn, err := n.dial(ctx)
	if err != nil {
		return nil, err
	}
	logging.Log.Infow("WS: accepted a connection", "url", n.target)
	go n.run(ctx, conn)
	go func() {
		select {
		case <-ctx.Done():
			_ = n.Close()
		case <-n.done:
		}
	}()
	return n, nil
}

func (n *Net) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := n.opts.Dialer.DialContext(ctx, n.target, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", n.target, err)
	}
	return conn, nil
}

// run 连接生命周期：读到断开 → 退避 → 重连
func (n *Net) run(ctx context.Context, conn *websocket.Conn) {
	defer close(n.done)
	b := backoff{base: n.opts.BackoffBase, max: n.opts.BackoffMax}
	for {
		err := n.serve(conn)
		if n.stopped(ctx) {
			return
		}
		logging.Log.Warnw("WS: connection lost", "error", err)

		for {
			wait := b.next()
			select {
			case <-ctx.Done():
				return
			case <-n.closed:
				return
			case <-time.After(wait):
			}
			c, err := n.dial(ctx)
			if err != nil {
				logging.Log.Debugw("WS: reconnect failed", "error", err, "retryIn", b.peek())
				continue
			}
			conn = c
			b.reset()
			reconnects.Inc()
			logging.Log.Infow("WS: reconnected", "url", n.target)
			break
		}
	}
}

func (n *Net) stopped(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-n.closed:
		return true
	default:
		return false
	}
}

// serve 绑定连接并阻塞读取，返回时已清理发送队列
func (n *Net) serve(conn *websocket.Conn) error {
	send := make(chan []byte, sendQueue)
	n.mu.Lock()
	n.conn = conn
	n.send = send
	n.mu.Unlock()

	// Close 可能发生在绑定之前
	if n.stopped(context.Background()) {
		_ = conn.Close()
	}

	writerDone := make(chan struct{})
	go n.writePump(conn, send, writerDone)
	err := n.readPump(conn)

	n.mu.Lock()
	if n.send == send {
		close(send)
		n.send = nil
		n.conn = nil
	}
	n.mu.Unlock()
	<-writerDone
	_ = conn.Close()
	return err
}

// writePump 独立协程，负责从 send 队列写出并定期 ping
func (n *Net) writePump(conn *websocket.Conn, send <-chan []byte, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-send:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				_ = conn.Close()
				drain(send)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				drain(send)
				return
			}
		}
	}
}

// drain 写失败后继续消费直到队列被关闭，避免 emit 端阻塞在满队列上
func drain(send <-chan []byte) {
	for range send {
	}
}

func (n *Net) readPump(conn *websocket.Conn) error {
	conn.SetReadLimit(1 << 20) // 1MB
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		n.dispatch(payload)
	}
}

// dispatch 入站事件表：field / create-player-success 交给回调，其余交给名册
func (n *Net) dispatch(payload []byte) {
	env, err := protocol.DecodeEnvelope(payload)
	if err != nil {
		handlerErrors.WithLabelValues("invalid").Inc()
		logging.Log.Warnw("WS: bad message", "error", err)
		return
	}

	var apply func() error
	switch env.Event {
	case protocol.EventField:
		def, err := protocol.DecodePayload[protocol.FieldDef](env)
		if err != nil {
			n.fail(env.Event, err)
			return
		}
		apply = func() error {
			if n.opts.Events.OnField != nil {
				n.opts.Events.OnField(def)
			}
			return nil
		}
	case protocol.EventCreatePlayerSuccess:
		rec, err := protocol.DecodePayload[protocol.PlayerRecord](env)
		if err != nil {
			n.fail(env.Event, err)
			return
		}
		apply = func() error {
			if n.opts.Events.OnCreatePlayerSuccess != nil {
				n.opts.Events.OnCreatePlayerSuccess(rec)
			}
			return nil
		}
	case protocol.EventPlayerJoined:
		rec, err := protocol.DecodePayload[protocol.PlayerRecord](env)
		if err != nil {
			n.fail(env.Event, err)
			return
		}
		apply = func() error { return n.opts.Roster.AddPlayer(rec) }
	case protocol.EventPlayerLeaved:
		id, err := protocol.DecodePayload[string](env)
		if err != nil {
			n.fail(env.Event, err)
			return
		}
		apply = func() error { return n.opts.Roster.RemovePlayer(id) }
	case protocol.EventPlayerChangedRot:
		rec, err := protocol.DecodePayload[protocol.RotationChange](env)
		if err != nil {
			n.fail(env.Event, err)
			return
		}
		apply = func() error { return n.opts.Roster.ChangePlayerRotation(rec) }
	case protocol.EventPlayerChangedPos:
		rec, err := protocol.DecodePayload[protocol.PositionChange](env)
		if err != nil {
			n.fail(env.Event, err)
			return
		}
		apply = func() error { return n.opts.Roster.ChangePlayerPosition(rec) }
	case protocol.EventPlayerShot:
		rec, err := protocol.DecodePayload[protocol.Shot](env)
		if err != nil {
			n.fail(env.Event, err)
			return
		}
		apply = func() error { return n.opts.Roster.Shot(rec) }
	default:
		logging.Log.Debugw("WS: ignored event", "event", env.Event)
		return
	}

	messagesReceived.WithLabelValues(env.Event).Inc()
	event := env.Event
	n.opts.Post(func() {
		if err := apply(); err != nil {
			n.fail(event, err)
		}
	})
}

func (n *Net) fail(event string, err error) {
	handlerErrors.WithLabelValues(event).Inc()
	logging.Log.Warnw("WS: event not applied", "event", event, "error", err)
}

// ChangeRotation 上报新朝向（不等确认、不重试）
func (n *Net) ChangeRotation(rotation geom.Vec3) {
	n.emit(protocol.EventChangeRotation, rotation)
}

// ChangePosition 上报新位置（不等确认、不重试）
func (n *Net) ChangePosition(position geom.Vec3) {
	n.emit(protocol.EventChangePosition, position)
}

// Shoot 上报开火
func (n *Net) Shoot(position, rotation geom.Vec3) {
	n.emit(protocol.EventShoot, protocol.Shot{Position: position, Rotation: rotation})
}

// emit 非阻塞入队；断线或队列满时丢弃
func (n *Net) emit(event string, payload any) {
	b, err := protocol.Encode(event, payload)
	if err != nil {
		messagesDropped.WithLabelValues("encode").Inc()
		logging.Log.Errorw("WS: encode failed", "event", event, "error", err)
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.send == nil {
		messagesDropped.WithLabelValues("disconnected").Inc()
		return
	}
	select {
	case n.send <- b:
		messagesSent.WithLabelValues(event).Inc()
	default:
		messagesDropped.WithLabelValues("queue_full").Inc()
	}
}

// Connected 当前是否绑定了底层连接
func (n *Net) Connected() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.conn != nil
}

// Done 读写协程全部退出后关闭
func (n *Net) Done() <-chan struct{} { return n.done }

// Close 停止重连并关闭当前连接
func (n *Net) Close() error {
	first := false
	n.closeOnce.Do(func() {
		first = true
		close(n.closed)
	})
	if !first {
		return ErrClosed
	}
	n.mu.Lock()
	conn := n.conn
	n.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	<-n.done
	return nil
}

// backoff 指数退避：base, 2base, 4base ... 封顶 max
type backoff struct {
	base, max, cur time.Duration
}

func (b *backoff) next() time.Duration {
	if b.cur == 0 {
		b.cur = b.base
	} else {
		b.cur *= 2
		if b.cur > b.max {
			b.cur = b.max
		}
	}
	return b.cur
}

func (b *backoff) peek() time.Duration { return b.cur }

func (b *backoff) reset() { b.cur = 0 }
