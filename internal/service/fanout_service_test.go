package service

import (
	"testing"

	"actually-colab-be/internal/entity"
	"actually-colab-be/pkg/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastSkipsUnreachablePeers(t *testing.T) {
	f := newFixture(t)
	alice := f.join(t, "alice", entity.AccessLevelFull)
	bob := f.join(t, "bob", entity.AccessLevelReadOnly)
	f.gateway.setDown(alice.conn)

	evt := protocol.NewEvent(protocol.ActionChatMessageSent, f.owner.user.Id, protocol.ChatMessage{Message: "hi"})
	require.NoError(t, f.fanout.Broadcast(f.ctx, f.notebookId, evt))

	assert.Empty(t, f.gateway.envelopes(t, alice.conn))
	for _, conn := range []string{f.owner.conn, bob.conn} {
		envs := f.gateway.envelopes(t, conn)
		require.Len(t, envs, 1)
		assert.Equal(t, protocol.ActionChatMessageSent, envs[0].Action)
		require.NotNil(t, envs[0].TriggeredBy)
		assert.Equal(t, f.owner.user.Id, *envs[0].TriggeredBy)
	}
}

func TestBroadcastOnlyReachesBoundConnections(t *testing.T) {
	f := newFixture(t)
	idle := f.addUser(t, "idle")
	f.grant(t, idle, entity.AccessLevelFull)
	idleConn := f.connect(t, idle, false)

	evt := protocol.NewEvent(protocol.ActionCellCreated, f.owner.user.Id, protocol.Cell{})
	require.NoError(t, f.fanout.Broadcast(f.ctx, f.notebookId, evt))

	assert.Len(t, f.gateway.envelopes(t, f.owner.conn), 1)
	assert.Empty(t, f.gateway.envelopes(t, idleConn))
}

func TestEmitToOneSurfacesGatewayError(t *testing.T) {
	f := newFixture(t)
	f.gateway.setDown(f.owner.conn)

	err := f.fanout.EmitToOne(f.ctx, f.owner.conn, protocol.NewEvent(protocol.ActionError, f.owner.user.Id, nil))
	assert.ErrorIs(t, err, ErrConnectionGone)
}
