package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwood-mud/engine/internal/game/item"
	"github.com/driftwood-mud/engine/internal/game/player"
)

func TestEncodeDecode_Broadcast(t *testing.T) {
	msg := Message{Broadcast: &GlobalBroadcast{
		Type:       BroadcastGossip,
		SenderName: "Mira",
		Text:       "anyone selling pelts?",
	}}

	data, err := encodeMessage("engine-a", "", msg)
	require.NoError(t, err)

	got, err := decodeMessage(data)
	require.NoError(t, err)
	assert.Equal(t, "engine-a", got.SourceEngineID)
	require.NotNil(t, got.Broadcast)
	assert.Equal(t, BroadcastGossip, got.Broadcast.Type)
	assert.Equal(t, "Mira", got.Broadcast.SenderName)
	assert.Equal(t, "anyone selling pelts?", got.Broadcast.Text)
	assert.Nil(t, got.Tell)
}

func TestEncodeDecode_Tell(t *testing.T) {
	msg := Message{Tell: &TellMessage{FromName: "Mira", ToName: "Tomas", Text: "meet at the docks"}}

	data, err := encodeMessage("engine-a", "engine-b", msg)
	require.NoError(t, err)

	hdr, err := ParseFrameHeader(data)
	require.NoError(t, err)
	assert.Equal(t, "engine-b", hdr.TargetEngineID)
	assert.Equal(t, "engine-a", hdr.SourceEngineID)
	assert.False(t, hdr.IsHello())

	got, err := decodeMessage(data)
	require.NoError(t, err)
	require.NotNil(t, got.Tell)
	assert.Equal(t, "Tomas", got.Tell.ToName)
}

func TestEncodeDecode_KickAndTransfer(t *testing.T) {
	kick := Message{Kick: &KickRequest{TargetPlayerName: "Tomas"}}
	data, err := encodeMessage("engine-a", "", kick)
	require.NoError(t, err)
	got, err := decodeMessage(data)
	require.NoError(t, err)
	require.NotNil(t, got.Kick)
	assert.Equal(t, "Tomas", got.Kick.TargetPlayerName)

	transfer := Message{Transfer: &TransferRequest{
		StaffName:        "Greta",
		TargetPlayerName: "Tomas",
		TargetRoomID:     "harbor:docks",
	}}
	data, err = encodeMessage("engine-a", "", transfer)
	require.NoError(t, err)
	got, err = decodeMessage(data)
	require.NoError(t, err)
	require.NotNil(t, got.Transfer)
	assert.Equal(t, "Greta", got.Transfer.StaffName)
	assert.Equal(t, "harbor:docks", string(got.Transfer.TargetRoomID))
}

func TestEncodeDecode_ZoneHandoffCarriesSnapshot(t *testing.T) {
	msg := Message{Handoff: &ZoneHandoff{
		PlayerName:   "Mira",
		TargetRoomID: "forest:trailhead",
		Snapshot: player.Record{
			Name:      "Mira",
			RoomID:    "forest:trailhead",
			Hp:        17,
			BaseMaxHp: 25,
			Level:     4,
			XpTotal:   640,
			Gold:      52,
			Inventory: []item.Snapshot{{ID: "item-1", Keyword: "vial", Charges: 2}},
			Equipment: []item.Snapshot{{ID: "item-2", Keyword: "leathercap", Charges: 0, Slot: "head"}},
		},
	}}

	data, err := encodeMessage("engine-a", "engine-b", msg)
	require.NoError(t, err)

	got, err := decodeMessage(data)
	require.NoError(t, err)
	require.NotNil(t, got.Handoff)
	assert.Equal(t, "Mira", got.Handoff.Snapshot.Name)
	assert.Equal(t, 17, got.Handoff.Snapshot.Hp)
	require.Len(t, got.Handoff.Snapshot.Inventory, 1)
	assert.Equal(t, "vial", got.Handoff.Snapshot.Inventory[0].Keyword)
	require.Len(t, got.Handoff.Snapshot.Equipment, 1)
	assert.Equal(t, "head", string(got.Handoff.Snapshot.Equipment[0].Slot))
}

func TestEncodeMessage_EmptyPayload(t *testing.T) {
	_, err := encodeMessage("engine-a", "", Message{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no payload")
}

func TestDecodeMessage_UnknownType(t *testing.T) {
	_, err := decodeMessage([]byte(`{"type":"teleport","source_engine_id":"engine-a","payload":{}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown bus message type")
}

func TestDecodeMessage_MalformedJSON(t *testing.T) {
	_, err := decodeMessage([]byte(`{nope`))
	assert.Error(t, err)
}

func TestParseFrameHeader_Hello(t *testing.T) {
	data, err := helloFrame("engine-a")
	require.NoError(t, err)

	hdr, err := ParseFrameHeader(data)
	require.NoError(t, err)
	assert.True(t, hdr.IsHello())
	assert.Equal(t, "engine-a", hdr.SourceEngineID)
	assert.Empty(t, hdr.TargetEngineID)
}

func TestParseFrameHeader_MissingType(t *testing.T) {
	_, err := ParseFrameHeader([]byte(`{"source_engine_id":"engine-a"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing type")
}
