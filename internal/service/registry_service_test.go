package service

import (
	"testing"
	"time"

	"actually-colab-be/internal/entity"
	"actually-colab-be/internal/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectUnknownUserIsUnauthorized(t *testing.T) {
	f := newFixture(t)

	err := f.registry.Connect(f.ctx, uuid.NewString(), uuid.New(), time.Now())
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))
}

func TestOpenNotebookTwiceIsConflict(t *testing.T) {
	f := newFixture(t)

	err := f.registry.OpenNotebook(f.ctx, f.owner.conn, f.notebookId, time.Now())
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	err = f.registry.OpenNotebook(f.ctx, f.owner.conn, uuid.New(), time.Now())
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}

func TestDisconnectReleasesEveryLock(t *testing.T) {
	f := newFixture(t)
	a := f.addCell(t)
	b := f.addCell(t)
	c := f.addCell(t)
	alice := f.join(t, "alice", entity.AccessLevelFull)

	for _, cell := range []*entity.Cell{a, b} {
		_, err := f.cells.Lock(f.ctx, alice.conn, alice.user.Id, f.notebookId, cell.Id)
		require.NoError(t, err)
	}
	_, err := f.cells.Lock(f.ctx, f.owner.conn, f.owner.user.Id, f.notebookId, c.Id)
	require.NoError(t, err)

	result, err := f.registry.Disconnect(f.ctx, alice.conn, time.Now())
	require.NoError(t, err)
	require.NotNil(t, result.Session)
	assert.False(t, result.Session.IsOpen())

	released := map[uuid.UUID]bool{}
	for _, cell := range result.UnlockedCells {
		assert.Nil(t, cell.LockHeldBy)
		released[cell.Id] = true
	}
	assert.Equal(t, map[uuid.UUID]bool{a.Id: true, b.Id: true}, released)

	assert.Nil(t, f.loadCell(t, a.Id).LockHeldBy)
	assert.Nil(t, f.loadCell(t, b.Id).LockHeldBy)
	assert.Equal(t, f.owner.user.Id, *f.loadCell(t, c.Id).LockHeldBy)

	active, err := f.registry.ActiveConnections(f.ctx, f.notebookId)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{f.owner.conn}, active)

	again, err := f.registry.Disconnect(f.ctx, alice.conn, time.Now())
	require.NoError(t, err)
	assert.Nil(t, again.Session)
	assert.Empty(t, again.UnlockedCells)
}

func TestCloseNotebookReleasesLocksAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	cell := f.addCell(t)
	alice := f.join(t, "alice", entity.AccessLevelFull)

	_, err := f.cells.Lock(f.ctx, alice.conn, alice.user.Id, f.notebookId, cell.Id)
	require.NoError(t, err)

	result, err := f.registry.CloseNotebook(f.ctx, alice.conn, f.notebookId, time.Now())
	require.NoError(t, err)
	require.NotNil(t, result.Session)
	require.Len(t, result.UnlockedCells, 1)
	assert.Equal(t, cell.Id, result.UnlockedCells[0].Id)

	again, err := f.registry.CloseNotebook(f.ctx, alice.conn, f.notebookId, time.Now())
	require.NoError(t, err)
	assert.Nil(t, again.Session)

	users, err := f.registry.ConnectedUsers(f.ctx, f.notebookId)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.owner.user.Id}, users)

	// The connection stays registered and may open the notebook again.
	require.NoError(t, f.registry.OpenNotebook(f.ctx, alice.conn, f.notebookId, time.Now()))
}

func TestRequireBound(t *testing.T) {
	f := newFixture(t)
	stranger := f.addUser(t, "stranger")
	conn := f.connect(t, stranger, false)

	_, err := f.registry.RequireBound(f.ctx, conn, f.notebookId)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	session, err := f.registry.RequireBound(f.ctx, f.owner.conn, f.notebookId)
	require.NoError(t, err)
	assert.Equal(t, f.owner.user.Id, session.UserId)
}
