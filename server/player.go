package server

import (
	"math/rand"

	"tankarena/protocol"
)

// PlayerID 玩家唯一标识（即会话 userID）
type PlayerID string

// palette 新玩家随机取色
var palette = []string{"#e74c3c", "#3498db", "#2ecc71", "#f1c40f", "#9b59b6", "#1abc9c", "#e67e22"}

const defaultHP = 100

// Player 房间内的玩家实体：最近一次上报的状态 + 连接
type Player struct {
	ID     PlayerID
	Record protocol.PlayerRecord

	Conn *ClientConn

	inputsThisTick int
}

func randomColor(rng *rand.Rand) string {
	return palette[rng.Intn(len(palette))]
}
