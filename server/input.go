package server

import (
	"fmt"

	"tankarena/geom"
	"tankarena/protocol"
)

// Input 客户端上报的一条意图，在 Tick 中被应用并转发
type Input struct {
	PlayerID PlayerID
	Event    string
	Position geom.Vec3
	Rotation geom.Vec3
}

// parseInput 解析 {"event","data"} 文本消息；未知事件返回错误
func parseInput(pid PlayerID, payload []byte) (Input, error) {
	env, err := protocol.DecodeEnvelope(payload)
	if err != nil {
		return Input{}, err
	}
	in := Input{PlayerID: pid, Event: env.Event}
	switch env.Event {
	case protocol.EventChangePosition:
		in.Position, err = protocol.DecodePayload[geom.Vec3](env)
	case protocol.EventChangeRotation:
		in.Rotation, err = protocol.DecodePayload[geom.Vec3](env)
	case protocol.EventShoot:
		var shot protocol.Shot
		shot, err = protocol.DecodePayload[protocol.Shot](env)
		in.Position, in.Rotation = shot.Position, shot.Rotation
	default:
		return Input{}, fmt.Errorf("unknown event %q", env.Event)
	}
	if err != nil {
		return Input{}, err
	}
	return in, nil
}
