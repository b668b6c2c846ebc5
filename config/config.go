// Package config 客户端与服务端配置：默认值 → 可选 yaml 文件 → 可选 .env → 环境变量
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tankarena/geom"
	"tankarena/protocol"
)

// Config 全部配置
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
	Room   RoomConfig   `yaml:"room"`
	Client ClientConfig `yaml:"client"`
}

// LogConfig 日志落盘与级别
type LogConfig struct {
	File   string `yaml:"file"`
	Level  string `yaml:"level"`
	Stderr bool   `yaml:"stderr"`
}

// ServerConfig 中继服务监听参数
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	StaticDir      string        `yaml:"staticDir"`
	AllowedOrigins []string      `yaml:"allowedOrigins"`
	ShutdownGrace  time.Duration `yaml:"shutdownGrace"`
}

// RoomConfig 房间与场地
type RoomConfig struct {
	Width            float64            `yaml:"width"`
	Height           float64            `yaml:"height"`
	Walls            []protocol.WallDef `yaml:"walls"`
	TicksPerSecond   int                `yaml:"ticksPerSecond"`
	MaxInputsPerTick int                `yaml:"maxInputsPerTick"`
	InputsPerSecond  float64            `yaml:"inputsPerSecond"`
	InputBurst       int                `yaml:"inputBurst"`
	SimulateDropProb float64            `yaml:"simulateDropProb"`
	Debug            bool               `yaml:"debug"`
}

// ClientConfig 客户端连接与炮弹参数
type ClientConfig struct {
	ServerURL       string        `yaml:"serverURL"`
	SessionURL      string        `yaml:"sessionURL"`
	FrameRate       int           `yaml:"frameRate"`
	MissileSpeed    float64       `yaml:"missileSpeed"`
	MissileInterval time.Duration `yaml:"missileInterval"`
	MissileBounds   geom.Box      `yaml:"missileBounds"`
}

var dotenvPath = ".env"

// Default 默认配置
func Default() Config {
	return Config{
		Log: LogConfig{
			File:  "app.log",
			Level: "info",
		},
		Server: ServerConfig{
			Addr:           ":8080",
			StaticDir:      "web",
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
			ShutdownGrace:  5 * time.Second,
		},
		Room: RoomConfig{
			Width:  20,
			Height: 20,
			Walls: []protocol.WallDef{
				{Position: geom.V(3, 1, 3), Size: 1},
				{Position: geom.V(-4, 1, 2), Size: 1},
				{Position: geom.V(2, 1, -5), Size: 1},
			},
			TicksPerSecond:   20,
			MaxInputsPerTick: 4,
			InputsPerSecond:  30,
			InputBurst:       10,
		},
		Client: ClientConfig{
			ServerURL:       "ws://localhost:8080/ws",
			SessionURL:      "http://localhost:8080/session",
			FrameRate:       60,
			MissileSpeed:    2,
			MissileInterval: time.Second,
			MissileBounds: geom.Box{
				Min: geom.V(-10, 0, -10),
				Max: geom.V(10, 10, 10),
			},
		},
	}
}

// Load path 为空或文件不存在时只用默认值与环境变量
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	// .env 只补充尚未设置的变量
	if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	if port := getEnv("PORT", ""); port != "" {
		c.Server.Addr = ":" + port
	}
	c.Server.StaticDir = getEnv("STATIC_DIR", c.Server.StaticDir)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnv("LOG_FILE", c.Log.File)
	c.Client.ServerURL = getEnv("TANK_SERVER_URL", c.Client.ServerURL)
	c.Client.SessionURL = getEnv("TANK_SESSION_URL", c.Client.SessionURL)
	c.Room.TicksPerSecond = getEnvInt("TANK_TICKS_PER_SECOND", c.Room.TicksPerSecond)
	c.Room.SimulateDropProb = getEnvFloat("TANK_SIMULATE_DROP_PROB", c.Room.SimulateDropProb)
}

// Validate 拒绝会让房间或循环无法运行的取值
func (c Config) Validate() error {
	switch {
	case c.Room.Width <= 0 || c.Room.Height <= 0:
		return fmt.Errorf("room size must be positive, got %vx%v", c.Room.Width, c.Room.Height)
	case c.Room.TicksPerSecond <= 0:
		return fmt.Errorf("room.ticksPerSecond must be positive, got %d", c.Room.TicksPerSecond)
	case c.Room.SimulateDropProb < 0 || c.Room.SimulateDropProb > 1:
		return fmt.Errorf("room.simulateDropProb must be in [0,1], got %v", c.Room.SimulateDropProb)
	case c.Client.FrameRate <= 0:
		return fmt.Errorf("client.frameRate must be positive, got %d", c.Client.FrameRate)
	}
	return nil
}

// FieldDef 用房间配置生成的场地定义（玩家列表由房间填充）
func (r RoomConfig) FieldDef() protocol.FieldDef {
	walls := make([]protocol.WallDef, len(r.Walls))
	copy(walls, r.Walls)
	return protocol.FieldDef{
		Width:  r.Width,
		Height: r.Height,
		Debug:  r.Debug,
		Walls:  walls,
	}
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
