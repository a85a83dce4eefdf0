package broker

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/avvvet/arenax-services/internal/comm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlePayloadBroadcastsArenaEvents(t *testing.T) {
	var got []*comm.WSMessage
	b := NewBroker(nil, func(m *comm.WSMessage) { got = append(got, m) })

	msg, err := comm.NewEvent(comm.EventPlayerUpdated, "arena-1", time.Unix(100, 0))
	require.NoError(t, err)
	msg.SocketId = "someone"
	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	b.HandlePayload(raw)

	require.Len(t, got, 1)
	assert.Equal(t, comm.EventPlayerUpdated, got[0].Type)
	assert.Empty(t, got[0].SocketId)

	var data comm.EventData
	require.NoError(t, json.Unmarshal(got[0].Data, &data))
	assert.Equal(t, "arena-1", data.Source)
}

func TestHandlePayloadDropsOthers(t *testing.T) {
	calls := 0
	b := NewBroker(nil, func(*comm.WSMessage) { calls++ })

	b.HandlePayload([]byte(`{"type":"callNumber"}`))
	b.HandlePayload([]byte(`not json`))

	assert.Zero(t, calls)
}
