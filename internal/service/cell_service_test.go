package service

import (
	"fmt"
	"sync"
	"testing"

	"actually-colab-be/internal/entity"
	"actually-colab-be/internal/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockCell(t *testing.T) {
	f := newFixture(t)
	cell := f.addCell(t)
	alice := f.join(t, "alice", entity.AccessLevelFull)
	bob := f.join(t, "bob", entity.AccessLevelFull)

	locked, err := f.cells.Lock(f.ctx, alice.conn, alice.user.Id, f.notebookId, cell.Id)
	require.NoError(t, err)
	require.NotNil(t, locked.LockHeldBy)
	assert.Equal(t, alice.user.Id, *locked.LockHeldBy)

	t.Run("another user gets Conflict", func(t *testing.T) {
		_, err := f.cells.Lock(f.ctx, bob.conn, bob.user.Id, f.notebookId, cell.Id)
		assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
	})

	t.Run("the holder locking again gets Conflict", func(t *testing.T) {
		_, err := f.cells.Lock(f.ctx, alice.conn, alice.user.Id, f.notebookId, cell.Id)
		assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
	})

	assert.Equal(t, alice.user.Id, *f.loadCell(t, cell.Id).LockHeldBy)
}

func TestConcurrentLocksHaveExactlyOneWinner(t *testing.T) {
	f := newFixture(t)
	cell := f.addCell(t)

	const contenders = 12
	members := make([]member, contenders)
	for i := range members {
		members[i] = f.join(t, fmt.Sprintf("user%d", i), entity.AccessLevelFull)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   []uuid.UUID
		conflicts int
	)
	for _, m := range members {
		wg.Add(1)
		go func(m member) {
			defer wg.Done()
			_, err := f.cells.Lock(f.ctx, m.conn, m.user.Id, f.notebookId, cell.Id)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners = append(winners, m.user.Id)
				return
			}
			if apperror.KindOf(err) == apperror.KindConflict {
				conflicts++
			}
		}(m)
	}
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, contenders-1, conflicts)
	assert.Equal(t, winners[0], *f.loadCell(t, cell.Id).LockHeldBy)
}

func TestReadOnlyUserCannotLock(t *testing.T) {
	f := newFixture(t)
	cell := f.addCell(t)
	reader := f.join(t, "reader", entity.AccessLevelReadOnly)

	_, err := f.cells.Lock(f.ctx, reader.conn, reader.user.Id, f.notebookId, cell.Id)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
	assert.Nil(t, f.loadCell(t, cell.Id).LockHeldBy)
}

func TestUserWithoutGrantCannotLock(t *testing.T) {
	f := newFixture(t)
	cell := f.addCell(t)
	stranger := f.addUser(t, "stranger")
	conn := f.connect(t, stranger, false)

	_, err := f.cells.Lock(f.ctx, conn, stranger.Id, f.notebookId, cell.Id)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}

func TestMutationsRequireBoundConnection(t *testing.T) {
	f := newFixture(t)
	cell := f.addCell(t)
	alice := f.addUser(t, "alice")
	f.grant(t, alice, entity.AccessLevelFull)

	t.Run("unknown connection", func(t *testing.T) {
		_, err := f.cells.Lock(f.ctx, "missing", alice.Id, f.notebookId, cell.Id)
		assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))
	})

	t.Run("notebook not opened", func(t *testing.T) {
		conn := f.connect(t, alice, false)
		_, err := f.cells.Lock(f.ctx, conn, alice.Id, f.notebookId, cell.Id)
		assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
	})

	assert.Nil(t, f.loadCell(t, cell.Id).LockHeldBy)
}

func TestLockMissingCellIsBadRequest(t *testing.T) {
	f := newFixture(t)

	_, err := f.cells.Lock(f.ctx, f.owner.conn, f.owner.user.Id, f.notebookId, uuid.New())
	assert.Equal(t, apperror.KindBadRequest, apperror.KindOf(err))
}

func TestEditRequiresHolder(t *testing.T) {
	f := newFixture(t)
	cell := f.addCell(t)
	alice := f.join(t, "alice", entity.AccessLevelFull)
	bob := f.join(t, "bob", entity.AccessLevelFull)

	_, err := f.cells.Lock(f.ctx, alice.conn, alice.user.Id, f.notebookId, cell.Id)
	require.NoError(t, err)

	_, err = f.cells.Edit(f.ctx, bob.conn, bob.user.Id, f.notebookId, cell.Id, entity.CellEdit{Contents: "x = 1"})
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	cursor := 5
	edited, err := f.cells.Edit(f.ctx, alice.conn, alice.user.Id, f.notebookId, cell.Id, entity.CellEdit{Contents: "y = 2", CursorPos: &cursor})
	require.NoError(t, err)
	assert.Equal(t, "y = 2", edited.Contents)
	assert.Equal(t, entity.LanguagePython, edited.Language)
	require.NotNil(t, edited.CursorPos)
	assert.Equal(t, 5, *edited.CursorPos)
}

func TestUnlockByNonHolderIsConflict(t *testing.T) {
	f := newFixture(t)
	cell := f.addCell(t)
	alice := f.join(t, "alice", entity.AccessLevelFull)
	bob := f.join(t, "bob", entity.AccessLevelFull)

	_, err := f.cells.Lock(f.ctx, alice.conn, alice.user.Id, f.notebookId, cell.Id)
	require.NoError(t, err)

	_, err = f.cells.Unlock(f.ctx, bob.conn, bob.user.Id, f.notebookId, cell.Id, nil)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
	assert.Equal(t, alice.user.Id, *f.loadCell(t, cell.Id).LockHeldBy)
}

func TestUnlockPersistsEditsAndClearsCursor(t *testing.T) {
	f := newFixture(t)
	cell := f.addCell(t)
	alice := f.join(t, "alice", entity.AccessLevelFull)

	_, err := f.cells.Lock(f.ctx, alice.conn, alice.user.Id, f.notebookId, cell.Id)
	require.NoError(t, err)

	cursor := 3
	_, err = f.cells.Edit(f.ctx, alice.conn, alice.user.Id, f.notebookId, cell.Id, entity.CellEdit{Contents: "pending", CursorPos: &cursor})
	require.NoError(t, err)

	unlocked, err := f.cells.Unlock(f.ctx, alice.conn, alice.user.Id, f.notebookId, cell.Id, nil)
	require.NoError(t, err)
	assert.Nil(t, unlocked.LockHeldBy)
	assert.Nil(t, unlocked.CursorPos)
	assert.Equal(t, "pending", unlocked.Contents)

	_, err = f.cells.Lock(f.ctx, alice.conn, alice.user.Id, f.notebookId, cell.Id)
	require.NoError(t, err)
	_, err = f.cells.Unlock(f.ctx, alice.conn, alice.user.Id, f.notebookId, cell.Id, &entity.CellEdit{Contents: "final", Language: entity.LanguageMarkdown})
	require.NoError(t, err)

	stored := f.loadCell(t, cell.Id)
	assert.Equal(t, "final", stored.Contents)
	assert.Equal(t, entity.LanguageMarkdown, stored.Language)
	assert.Nil(t, stored.LockHeldBy)
}

func TestCreateCellInsertsAndShifts(t *testing.T) {
	f := newFixture(t)
	first := f.addCell(t)
	second := f.addCell(t)
	assert.Equal(t, 0, first.Position)
	assert.Equal(t, 1, second.Position)

	at := 1
	inserted, err := f.cells.Create(f.ctx, f.owner.conn, f.owner.user.Id, f.notebookId, entity.LanguageMarkdown, &at)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted.Position)
	assert.Nil(t, inserted.LockHeldBy)
	assert.Equal(t, 2, f.loadCell(t, second.Id).Position)

	far := 99
	appended, err := f.cells.Create(f.ctx, f.owner.conn, f.owner.user.Id, f.notebookId, entity.LanguagePython, &far)
	require.NoError(t, err)
	assert.Equal(t, 3, appended.Position)
}

func TestCreateCellRequiresFullAccess(t *testing.T) {
	f := newFixture(t)
	reader := f.join(t, "reader", entity.AccessLevelReadOnly)

	_, err := f.cells.Create(f.ctx, reader.conn, reader.user.Id, f.notebookId, entity.LanguagePython, nil)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}

func TestDeleteRequiresLock(t *testing.T) {
	f := newFixture(t)
	cell := f.addCell(t)

	err := f.cells.Delete(f.ctx, f.owner.conn, f.owner.user.Id, f.notebookId, cell.Id)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	_, err = f.cells.Lock(f.ctx, f.owner.conn, f.owner.user.Id, f.notebookId, cell.Id)
	require.NoError(t, err)
	require.NoError(t, f.cells.Delete(f.ctx, f.owner.conn, f.owner.user.Id, f.notebookId, cell.Id))

	gone, err := f.factory.NewUnitOfWork(f.ctx).CellRepository().FindById(f.ctx, f.notebookId, cell.Id)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestSaveOutput(t *testing.T) {
	f := newFixture(t)
	cell := f.addCell(t)

	out, err := f.cells.SaveOutput(f.ctx, f.owner.conn, f.owner.user.Id, f.notebookId, cell.Id, "packed")
	require.NoError(t, err)
	assert.Equal(t, "packed", out.Output)
	assert.Equal(t, f.owner.user.Id, out.UserId)

	_, err = f.cells.SaveOutput(f.ctx, f.owner.conn, f.owner.user.Id, f.notebookId, uuid.New(), "packed")
	assert.Equal(t, apperror.KindBadRequest, apperror.KindOf(err))
}
