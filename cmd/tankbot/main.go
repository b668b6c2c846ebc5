// tankbot 无界面客户端：连上中继服务，从标准输入读按键（w/a/s/d 移动转向，空格或 f 开火）
package main

import (
	"bufio"
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tankarena/config"
	"tankarena/game"
	"tankarena/logging"
	"tankarena/missile"
	"tankarena/render"
)

var keyMap = map[rune]render.Key{
	'w': render.KeyUp,
	's': render.KeyDown,
	'a': render.KeyLeft,
	'd': render.KeyRight,
	' ': render.KeySpace,
	'f': render.KeySpace,
}

func main() {
	var cfgPath, metricsAddr string
	flag.StringVar(&cfgPath, "config", "tankarena.yaml", "path to yaml config (optional)")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "serve client prometheus metrics on this address, e.g. :9100")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}
	if err := logging.Init(logging.Options{File: cfg.Log.File, Level: cfg.Log.Level, Stderr: true}); err != nil {
		panic(err)
	}
	defer logging.Sync()

	if metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				logging.Log.Warnw("metrics listener stopped", "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := render.NewHeadless()
	g := game.New(engine, game.Options{
		SessionURL: cfg.Client.SessionURL,
		ServerURL:  cfg.Client.ServerURL,
		FrameRate:  cfg.Client.FrameRate,
		Missile: missile.Options{
			Speed:    cfg.Client.MissileSpeed,
			Interval: cfg.Client.MissileInterval,
			Bounds:   cfg.Client.MissileBounds,
		},
	})

	go readKeys(ctx, g)

	if err := g.Run(ctx); err != nil {
		logging.Log.Errorw("client stopped", "error", err)
		os.Exit(1)
	}
}

func readKeys(ctx context.Context, g *game.Game) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.ToLower(sc.Text())
		if line == "" {
			line = " "
		}
		for _, r := range line {
			if key, ok := keyMap[r]; ok {
				g.PressKey(key)
			}
		}
	}
}
