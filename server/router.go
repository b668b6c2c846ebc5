// Package server 中继服务：会话下发、WebSocket 房间转发、管理与监控接口
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tankarena/config"
)

// Server 持有房间管理器与配置；路由见 Router
type Server struct {
	cfg      config.Config
	rooms    *RoomManager
	upgrader websocket.Upgrader
}

// New 创建服务并预创建默认房间
func New(cfg config.Config) *Server {
	s := &Server{
		cfg:   cfg,
		rooms: NewRoomManager(OptionsFromConfig(cfg.Room)),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 客户端可能由其他端口的开发服务器提供，来源校验交给 CORS 配置
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.rooms.GetOrCreateRoom(DefaultRoomID)
	return s
}

func (s *Server) Rooms() *RoomManager { return s.rooms }

// Close 停止所有房间并断开玩家
func (s *Server) Close() { s.rooms.Close() }

// Router 组装 HTTP 路由
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/session", s.HandleSession)
	r.Get("/ws", s.HandleWS)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Timeout(5 * time.Second))
		r.Get("/config", s.HandleAdminConfig)
		r.Post("/config", s.HandleAdminConfig)
		r.Get("/metrics", s.HandleMetrics)
		r.Get("/rooms", s.HandleRooms)
	})

	// 前后端分离：将 / 映射到静态资源目录
	if dir := s.cfg.Server.StaticDir; dir != "" {
		r.Handle("/*", http.FileServer(http.Dir(dir)))
	}
	return r
}
