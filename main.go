package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"tankarena/config"
	"tankarena/logging"
	"tankarena/server"
)

// tankarena 中继服务入口：会话、WebSocket 房间与静态资源
func main() {
	var cfgPath, addr string
	flag.StringVar(&cfgPath, "config", "tankarena.yaml", "path to yaml config (optional)")
	flag.StringVar(&addr, "addr", "", "server listen address, overrides config, e.g. :8080")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if err := logging.Init(logging.Options{File: cfg.Log.File, Level: cfg.Log.Level, Stderr: cfg.Log.Stderr}); err != nil {
		panic(err)
	}
	defer logging.Sync()

	// 默认房间由 server.New 预创建，便于快速试跑
	s := server.New(cfg)

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: s.Router()}
	go func() {
		logging.Log.Infof("tankarena listening on %s; open http://localhost%v/", cfg.Server.Addr, cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Log.Warnw("shutdown", "error", err)
	}
	s.Close()
}
