package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tankarena/geom"
)

func TestEncodeUsesEventDataShape(t *testing.T) {
	b, err := Encode(EventPlayerChangedPos, PositionChange{UserID: "u1", Position: geom.V(1, 1, 0)})
	require.NoError(t, err)
	require.JSONEq(t, `{"event":"player-changed-position","data":{"userID":"u1","position":{"x":1,"y":1,"z":0}}}`, string(b))
}

func TestPlayerLeavedCarriesBareID(t *testing.T) {
	env, err := DecodeEnvelope(MustEncode(EventPlayerLeaved, "u-9"))
	require.NoError(t, err)
	id, err := DecodePayload[string](env)
	require.NoError(t, err)
	require.Equal(t, "u-9", id)
}

func TestDecodeErrors(t *testing.T) {
	_, err := DecodeEnvelope(nil)
	require.ErrorIs(t, err, ErrEmptyMessage)

	_, err = DecodeEnvelope([]byte(`{"data":{}}`))
	require.Error(t, err)

	_, err = DecodeEnvelope([]byte(`not json`))
	require.Error(t, err)

	env, err := DecodeEnvelope([]byte(`{"event":"field"}`))
	require.NoError(t, err)
	_, err = DecodePayload[FieldDef](env)
	require.ErrorIs(t, err, ErrEmptyPayload)

	_, err = Encode("", nil)
	require.Error(t, err)
}

func TestFieldDefDecodesWallsAndPlayers(t *testing.T) {
	raw := `{"event":"field","data":{"width":20,"height":10,"walls":[{"position":{"x":2,"y":0.5,"z":3},"size":1}],
		"players":[{"userID":"a","position":{"x":0,"y":1,"z":0},"rotation":{"x":0,"y":0,"z":0},"stat":{"hp":80,"maxHp":100}}]}}`
	env, err := DecodeEnvelope([]byte(raw))
	require.NoError(t, err)
	def, err := DecodePayload[FieldDef](env)
	require.NoError(t, err)
	require.Equal(t, 20.0, def.Width)
	require.Len(t, def.Walls, 1)
	require.Equal(t, geom.V(2, 0.5, 3), def.Walls[0].Position)
	require.Equal(t, Stat{HP: 80, MaxHP: 100}, def.Players[0].Stat)
}
