package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tankarena/geom"
	"tankarena/protocol"
)

func newBareRoom(opts RoomOptions) *Room {
	opts.Seed = 1
	if opts.Field.Width == 0 {
		opts.Field = protocol.FieldDef{Width: 4, Height: 4}
	}
	return NewRoom("test", opts)
}

func addPlayer(r *Room, id string, pos geom.Vec3) *Player {
	p := &Player{ID: PlayerID(id), Record: protocol.PlayerRecord{UserID: id, Position: pos}}
	r.players[p.ID] = p
	return p
}

func moveInput(id string, pos geom.Vec3) Input {
	return Input{PlayerID: PlayerID(id), Event: protocol.EventChangePosition, Position: pos}
}

func TestPerTickInputCap(t *testing.T) {
	r := newBareRoom(RoomOptions{MaxInputsPerTick: 2})
	p := addPlayer(r, "a", geom.V(0, 1, 0))
	for i := 1; i <= 5; i++ {
		r.OnInput(moveInput("a", geom.V(float64(i), 1, 0)))
	}
	r.Tick()

	snap := r.Metrics().Snapshot()
	assert.EqualValues(t, 2, snap["inputs_accepted"])
	assert.EqualValues(t, 3, snap["rate_limited"])
	assert.Equal(t, geom.V(2, 1, 0), p.Record.Position)

	// 下一个 Tick 计数重置
	r.OnInput(moveInput("a", geom.V(9, 1, 0)))
	r.Tick()
	assert.EqualValues(t, 3, r.Metrics().Snapshot()["inputs_accepted"])
	assert.EqualValues(t, 2, r.TickSeq())
}

func TestSimulatedDrop(t *testing.T) {
	r := newBareRoom(RoomOptions{SimulateDropProb: 1})
	p := addPlayer(r, "a", geom.V(0, 1, 0))
	r.OnInput(moveInput("a", geom.V(1, 1, 0)))
	r.Tick()
	assert.EqualValues(t, 1, r.Metrics().Snapshot()["drops_simulated"])
	assert.Equal(t, geom.V(0, 1, 0), p.Record.Position)

	r.SetSimulateDropProb(0)
	r.OnInput(moveInput("a", geom.V(1, 1, 0)))
	r.Tick()
	assert.Equal(t, geom.V(1, 1, 0), p.Record.Position)
}

func TestInputsFromUnknownPlayersIgnored(t *testing.T) {
	r := newBareRoom(RoomOptions{})
	r.OnInput(moveInput("ghost", geom.V(1, 1, 0)))
	r.Tick()
	assert.EqualValues(t, 0, r.Metrics().Snapshot()["inputs_accepted"])
}

func TestInputChannelFullDiscards(t *testing.T) {
	r := newBareRoom(RoomOptions{})
	for i := 0; i < cap(r.inputChan)+3; i++ {
		r.OnInput(moveInput("a", geom.V(0, 1, 0)))
	}
	assert.EqualValues(t, 3, r.Metrics().Snapshot()["chan_full_discarded"])
}

func TestSpawnCellAvoidsWallsAndPlayers(t *testing.T) {
	// 2x2 场地共 9 个格子：8 个被墙占住，剩下 (1,_,1)
	var walls []protocol.WallDef
	for x := -1; x <= 1; x++ {
		for z := -1; z <= 1; z++ {
			if x == 1 && z == 1 {
				continue
			}
			walls = append(walls, protocol.WallDef{Position: geom.V(float64(x), 1, float64(z)), Size: 1})
		}
	}
	r := newBareRoom(RoomOptions{Field: protocol.FieldDef{Width: 2, Height: 2, Walls: walls}})
	c, ok := r.spawnCell()
	require.True(t, ok)
	assert.Equal(t, geom.V(1, 1, 1), c)

	addPlayer(r, "a", c)
	_, ok = r.spawnCell()
	assert.False(t, ok)
}

func TestFieldForExcludesSelfAndIsSorted(t *testing.T) {
	r := newBareRoom(RoomOptions{})
	addPlayer(r, "c", geom.V(0, 1, 0))
	addPlayer(r, "a", geom.V(1, 1, 0))
	addPlayer(r, "b", geom.V(0, 1, 1))

	def := r.fieldFor("b")
	require.Len(t, def.Players, 2)
	assert.Equal(t, "a", def.Players[0].UserID)
	assert.Equal(t, "c", def.Players[1].UserID)
	assert.Equal(t, 4.0, def.Width)
}

func TestParseInput(t *testing.T) {
	in, err := parseInput("a", protocol.MustEncode(protocol.EventChangeRotation, geom.V(0, 1, 0)))
	require.NoError(t, err)
	assert.Equal(t, geom.V(0, 1, 0), in.Rotation)
	assert.Equal(t, PlayerID("a"), in.PlayerID)

	in, err = parseInput("a", protocol.MustEncode(protocol.EventShoot, protocol.Shot{Position: geom.V(1, 1, 1), Rotation: geom.V(0, 2, 0)}))
	require.NoError(t, err)
	assert.Equal(t, geom.V(1, 1, 1), in.Position)
	assert.Equal(t, geom.V(0, 2, 0), in.Rotation)

	_, err = parseInput("a", protocol.MustEncode("teleport", geom.V(0, 0, 0)))
	assert.Error(t, err)
	_, err = parseInput("a", []byte(`{"event":"change-position"}`))
	assert.ErrorIs(t, err, protocol.ErrEmptyPayload)
	_, err = parseInput("a", []byte(`not json`))
	assert.Error(t, err)
}

func TestStopWithoutStart(t *testing.T) {
	r := newBareRoom(RoomOptions{})
	r.Stop()
	r.Stop()
}

func TestJoinAndLeaveInSameTickLeavesNoPlayer(t *testing.T) {
	r := newBareRoom(RoomOptions{})
	for i := 0; i < 50; i++ {
		c := NewClientConn(nil)
		r.RequestJoin("u1", c)
		r.RequestLeave("u1", c)
		r.Tick()
		require.Empty(t, r.players, "iteration %d", i)
		require.Equal(t, 0, r.PlayerCount())
	}
	snap := r.Metrics().Snapshot()
	assert.EqualValues(t, 50, snap["joins"])
	assert.EqualValues(t, 50, snap["leaves"])
}
