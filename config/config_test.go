package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tankarena/geom"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tank.yaml")
	yml := `
log:
  level: debug
room:
  width: 30
  height: 10
  walls:
    - position: {x: 1, y: 1, z: 1}
      size: 1
client:
  missileInterval: 500ms
  missileBounds:
    min: {x: -5, y: 0, z: -5}
    max: {x: 5, y: 5, z: 5}
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("TANK_SIMULATE_DROP_PROB", "0.25")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.Server.Addr)
	require.Equal(t, "warn", cfg.Log.Level)
	require.Equal(t, 30.0, cfg.Room.Width)
	require.Len(t, cfg.Room.Walls, 1)
	require.Equal(t, geom.V(1, 1, 1), cfg.Room.Walls[0].Position)
	require.Equal(t, 0.25, cfg.Room.SimulateDropProb)
	require.Equal(t, 500*time.Millisecond, cfg.Client.MissileInterval)
	require.Equal(t, geom.V(5, 5, 5), cfg.Client.MissileBounds.Max)
	// 未出现在文件里的字段保持默认
	require.Equal(t, 20, cfg.Room.TicksPerSecond)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("STATIC_DIR=public\n"), 0o644))
	old := dotenvPath
	dotenvPath = path
	t.Cleanup(func() {
		dotenvPath = old
		os.Unsetenv("STATIC_DIR")
	})

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "public", cfg.Server.StaticDir)
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("room:\n  simulateDropProb: 2\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("room: [oops"), 0o644))
	_, err = Load(path)
	require.Error(t, err)
}

func TestFieldDefCopiesWalls(t *testing.T) {
	rc := Default().Room
	def := rc.FieldDef()
	require.Equal(t, rc.Width, def.Width)
	require.Len(t, def.Walls, len(rc.Walls))
	def.Walls[0].Size = 99
	require.NotEqual(t, 99.0, rc.Walls[0].Size)
}
