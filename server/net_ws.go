package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"tankarena/logging"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	ws *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func NewClientConn(ws *websocket.Conn) *ClientConn {
	return &ClientConn{
		ws:   ws,
		send: make(chan []byte, 64),
	}
}

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃，防止阻塞 Tick）
func (c *ClientConn) Enqueue(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- b:
	default:
		logging.Log.Debugw("WS: send queue full, message dropped", "remote", c.ws.RemoteAddr().String())
	}
}

// Close 关闭发送队列，写协程发完剩余消息后关闭底层连接；可重复调用
func (c *ClientConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定期 ping
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取客户端消息，经限流与解析后注入房间
func (c *ClientConn) readPump(room *Room, playerID PlayerID, limiter *rate.Limiter) {
	defer c.ws.Close()
	// 读泵退出时，通知房间在 Tick 线程中移除该玩家
	defer room.RequestLeave(playerID, c)
	c.ws.SetReadLimit(1 << 16) // 64KB
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { return c.ws.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Log.Debugw("WS: read error", "userID", playerID, "error", err)
			}
			return
		}
		if limiter != nil && !limiter.Allow() {
			room.metrics.IncThrottled()
			continue
		}
		in, err := parseInput(playerID, payload)
		if err != nil {
			room.metrics.IncInvalid()
			logging.Log.Debugw("WS: bad input", "userID", playerID, "error", err)
			continue
		}
		room.OnInput(in)
	}
}

// HandleWS WebSocket 接入：/ws?userID=...&room=room-1
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("userID")
	if playerID == "" {
		http.Error(w, "missing userID query", http.StatusBadRequest)
		return
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Log.Warnw("WS: upgrade error", "error", err)
		return
	}
	// 升级成功才建房，失败的握手不会留下空房间
	room := s.rooms.GetOrCreateRoom(r.URL.Query().Get("room"))
	logging.Log.Infow("WS: accepted a connection", "userID", playerID, "room", room.ID, "remote", r.RemoteAddr)

	var limiter *rate.Limiter
	if s.cfg.Room.InputsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.cfg.Room.InputsPerSecond), max(s.cfg.Room.InputBurst, 1))
	}

	client := NewClientConn(ws)
	go client.writePump()
	room.RequestJoin(PlayerID(playerID), client)
	go client.readPump(room, PlayerID(playerID), limiter)
}
