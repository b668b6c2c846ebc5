package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitWritesToFile(t *testing.T) {
	prev := Log
	defer func() { Log = prev }()

	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, Init(Options{File: path, Level: "info"}))

	Log.Debugw("hidden")
	Log.Infow("player joined", "userID", "u-1")
	Sync()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), "player joined")
	require.NotContains(t, string(b), "hidden")
}

func TestInitRejectsBadLevel(t *testing.T) {
	prev := Log
	defer func() { Log = prev }()

	require.Error(t, Init(Options{Level: "loud"}))
}

func TestUseObserver(t *testing.T) {
	prev := Log
	defer func() { Log = prev }()

	core, recorded := observer.New(zapcore.InfoLevel)
	Use(zap.New(core))
	Log.Warnw("divergence", "userID", "u-2")

	logs := recorded.All()
	require.Len(t, logs, 1)
	require.Equal(t, "u-2", logs[0].ContextMap()["userID"])
}
