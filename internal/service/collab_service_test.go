package service

import (
	"testing"
	"time"

	"actually-colab-be/internal/entity"
	"actually-colab-be/internal/pkg/apperror"
	"actually-colab-be/pkg/protocol"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastError(t *testing.T, f *fixture, conn string) protocol.ErrorReport {
	t.Helper()
	env := findAction(f.gateway.envelopes(t, conn), protocol.ActionError)
	require.NotNil(t, env, "expected an error event")
	assert.Nil(t, env.TriggeredBy)
	report, err := protocol.Unmarshal[protocol.ErrorReport](env)
	require.NoError(t, err)
	return report
}

func TestOpenNotebookSendsContentsThenAnnounces(t *testing.T) {
	f := newFixture(t)
	f.addCell(t)
	alice := f.addUser(t, "alice")
	f.grant(t, alice, entity.AccessLevelReadOnly)
	m := member{user: alice, conn: f.connect(t, alice, false)}

	f.send(t, m, protocol.ActionOpenNotebook, protocol.OpenNotebook{NbId: f.notebookId})

	envs := f.gateway.envelopes(t, m.conn)
	require.Equal(t, []protocol.Action{protocol.ActionNotebookContents, protocol.ActionNotebookOpened}, actionsOf(envs))

	contents, err := protocol.Unmarshal[protocol.NotebookContents](envs[0])
	require.NoError(t, err)
	assert.Equal(t, "demo", contents.Name)
	assert.Len(t, contents.Cells, 1)
	assert.Len(t, contents.Users, 2)
	assert.ElementsMatch(t, []uuid.UUID{f.owner.user.Id, alice.Id}, contents.ConnectedUsers)

	opened := findAction(f.gateway.envelopes(t, f.owner.conn), protocol.ActionNotebookOpened)
	require.NotNil(t, opened)
	profile, err := protocol.Unmarshal[protocol.User](opened)
	require.NoError(t, err)
	assert.Equal(t, alice.Email, profile.Email)
}

func TestOpenNotebookWithoutAccessIsForbidden(t *testing.T) {
	f := newFixture(t)
	stranger := f.addUser(t, "stranger")
	m := member{user: stranger, conn: f.connect(t, stranger, false)}

	f.send(t, m, protocol.ActionOpenNotebook, protocol.OpenNotebook{NbId: f.notebookId})

	report := lastError(t, f, m.conn)
	assert.Equal(t, string(apperror.KindForbidden), report.Code)
	assert.Equal(t, protocol.ActionOpenNotebook, report.RequestAction)
	assert.Empty(t, f.gateway.envelopes(t, f.owner.conn))
}

func TestLockConflictIsReportedOnlyToRequester(t *testing.T) {
	f := newFixture(t)
	cell := f.addCell(t)
	alice := f.join(t, "alice", entity.AccessLevelFull)
	bob := f.join(t, "bob", entity.AccessLevelFull)

	f.send(t, alice, protocol.ActionLockCell, protocol.LockCell{NbId: f.notebookId, CellId: cell.Id})
	f.gateway.reset()

	f.send(t, bob, protocol.ActionLockCell, protocol.LockCell{NbId: f.notebookId, CellId: cell.Id})

	report := lastError(t, f, bob.conn)
	assert.Equal(t, string(apperror.KindConflict), report.Code)
	assert.Empty(t, f.gateway.envelopes(t, alice.conn))
	assert.Empty(t, f.gateway.envelopes(t, f.owner.conn))
}

func TestEditFlowBroadcastsEveryStep(t *testing.T) {
	f := newFixture(t)
	alice := f.join(t, "alice", entity.AccessLevelFull)

	f.send(t, alice, protocol.ActionCreateCell, protocol.CreateCell{NbId: f.notebookId, Language: protocol.LanguagePython})
	created := findAction(f.gateway.envelopes(t, f.owner.conn), protocol.ActionCellCreated)
	require.NotNil(t, created)
	cell, err := protocol.Unmarshal[protocol.Cell](created)
	require.NoError(t, err)

	f.send(t, alice, protocol.ActionLockCell, protocol.LockCell{NbId: f.notebookId, CellId: cell.CellId})
	f.send(t, alice, protocol.ActionEditCell, protocol.EditCell{NbId: f.notebookId, CellId: cell.CellId, CellData: &protocol.CellData{Contents: "print(1)"}})
	f.send(t, alice, protocol.ActionUnlockCell, protocol.UnlockCell{NbId: f.notebookId, CellId: cell.CellId})

	envs := f.gateway.envelopes(t, f.owner.conn)
	assert.Equal(t, []protocol.Action{
		protocol.ActionCellCreated,
		protocol.ActionCellLocked,
		protocol.ActionCellEdited,
		protocol.ActionCellUnlocked,
	}, actionsOf(envs))

	unlocked, err := protocol.Unmarshal[protocol.Cell](envs[3])
	require.NoError(t, err)
	assert.Equal(t, "print(1)", unlocked.Contents)
	assert.Nil(t, unlocked.LockHeldBy)
	assert.Equal(t, alice.user.Id, *envs[3].TriggeredBy)
}

func TestEditWithNullDataDeletesCell(t *testing.T) {
	f := newFixture(t)
	cell := f.addCell(t)

	f.send(t, f.owner, protocol.ActionLockCell, protocol.LockCell{NbId: f.notebookId, CellId: cell.Id})
	f.send(t, f.owner, protocol.ActionEditCell, protocol.EditCell{NbId: f.notebookId, CellId: cell.Id})

	deleted := findAction(f.gateway.envelopes(t, f.owner.conn), protocol.ActionCellDeleted)
	require.NotNil(t, deleted)
	ref, err := protocol.Unmarshal[protocol.CellRef](deleted)
	require.NoError(t, err)
	assert.Equal(t, cell.Id, ref.CellId)
}

func TestUpdateOutputIsBroadcast(t *testing.T) {
	f := newFixture(t)
	cell := f.addCell(t)
	reader := f.join(t, "reader", entity.AccessLevelReadOnly)

	f.send(t, f.owner, protocol.ActionUpdateOutput, protocol.UpdateOutput{NbId: f.notebookId, CellId: cell.Id, Output: "b64"})

	env := findAction(f.gateway.envelopes(t, reader.conn), protocol.ActionOutputUpdated)
	require.NotNil(t, env)
	out, err := protocol.Unmarshal[protocol.Output](env)
	require.NoError(t, err)
	assert.Equal(t, "b64", out.Output)
	assert.Equal(t, f.owner.user.Id, out.Uid)
}

func TestShareGrantsAccess(t *testing.T) {
	f := newFixture(t)
	carol := f.addUser(t, "carol")
	level := protocol.AccessReadOnly

	f.send(t, f.owner, protocol.ActionShareNotebook, protocol.ShareNotebook{
		NbId:        f.notebookId,
		Emails:      []string{"CAROL@example.com"},
		AccessLevel: &level,
	})

	env := findAction(f.gateway.envelopes(t, f.owner.conn), protocol.ActionNotebookShared)
	require.NotNil(t, env)
	shared, err := protocol.Unmarshal[protocol.NotebookShared](env)
	require.NoError(t, err)
	require.Len(t, shared.Users, 1)
	assert.Equal(t, carol.Id, shared.Users[0].Uid)
	assert.Equal(t, protocol.AccessReadOnly, shared.Users[0].AccessLevel)

	got, err := f.access.AssertCanRead(f.ctx, carol.Id, f.notebookId)
	require.NoError(t, err)
	assert.Equal(t, entity.AccessLevelReadOnly, got)
}

func TestShareValidation(t *testing.T) {
	f := newFixture(t)
	full := protocol.AccessFull
	reader := f.join(t, "reader", entity.AccessLevelReadOnly)

	tests := []struct {
		name   string
		sender member
		emails []string
		code   apperror.Kind
	}{
		{name: "with yourself", sender: f.owner, emails: []string{f.owner.user.Email}, code: apperror.KindBadRequest},
		{name: "with nobody known", sender: f.owner, emails: []string{"ghost@example.com"}, code: apperror.KindBadRequest},
		{name: "from a Read Only user", sender: reader, emails: []string{"ghost@example.com"}, code: apperror.KindForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.gateway.reset()
			f.send(t, tt.sender, protocol.ActionShareNotebook, protocol.ShareNotebook{NbId: f.notebookId, Emails: tt.emails, AccessLevel: &full})
			assert.Equal(t, string(tt.code), lastError(t, f, tt.sender.conn).Code)
		})
	}
}

func TestRevokeUnlocksAndUnbinds(t *testing.T) {
	f := newFixture(t)
	cell := f.addCell(t)
	bob := f.join(t, "bob", entity.AccessLevelFull)

	f.send(t, bob, protocol.ActionLockCell, protocol.LockCell{NbId: f.notebookId, CellId: cell.Id})
	f.gateway.reset()

	f.send(t, f.owner, protocol.ActionShareNotebook, protocol.ShareNotebook{NbId: f.notebookId, Emails: []string{bob.user.Email}})

	assert.Nil(t, f.loadCell(t, cell.Id).LockHeldBy)

	active, err := f.registry.ActiveConnections(f.ctx, f.notebookId)
	require.NoError(t, err)
	assert.Equal(t, []string{f.owner.conn}, active)

	_, err = f.access.AssertCanRead(f.ctx, bob.user.Id, f.notebookId)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	ownerEnvs := f.gateway.envelopes(t, f.owner.conn)
	assert.Equal(t, []protocol.Action{protocol.ActionCellUnlocked, protocol.ActionNotebookUnshared}, actionsOf(ownerEnvs))

	bobEnvs := f.gateway.envelopes(t, bob.conn)
	require.Equal(t, []protocol.Action{protocol.ActionNotebookUnshared}, actionsOf(bobEnvs))
	unshared, err := protocol.Unmarshal[protocol.NotebookUnshared](bobEnvs[0])
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{bob.user.Id}, unshared.Uids)

	// Bob's connection survives but can no longer touch the notebook.
	f.send(t, bob, protocol.ActionLockCell, protocol.LockCell{NbId: f.notebookId, CellId: cell.Id})
	assert.Equal(t, string(apperror.KindForbidden), lastError(t, f, bob.conn).Code)
}

func TestCloseNotebookAnnouncesReleasedLocks(t *testing.T) {
	f := newFixture(t)
	cell := f.addCell(t)
	alice := f.join(t, "alice", entity.AccessLevelFull)

	f.send(t, alice, protocol.ActionLockCell, protocol.LockCell{NbId: f.notebookId, CellId: cell.Id})
	f.gateway.reset()

	f.send(t, alice, protocol.ActionCloseNotebook, protocol.CloseNotebook{NbId: f.notebookId})

	assert.Equal(t, []protocol.Action{protocol.ActionNotebookClosed}, actionsOf(f.gateway.envelopes(t, alice.conn)))
	assert.Equal(t, []protocol.Action{protocol.ActionCellUnlocked, protocol.ActionNotebookClosed}, actionsOf(f.gateway.envelopes(t, f.owner.conn)))

	f.gateway.reset()
	f.send(t, alice, protocol.ActionCloseNotebook, protocol.CloseNotebook{NbId: f.notebookId})
	assert.Empty(t, f.gateway.envelopes(t, alice.conn))
}

func TestChatRequiresOpenNotebook(t *testing.T) {
	f := newFixture(t)
	alice := f.addUser(t, "alice")
	f.grant(t, alice, entity.AccessLevelReadOnly)
	m := member{user: alice, conn: f.connect(t, alice, false)}

	f.send(t, m, protocol.ActionSendChatMessage, protocol.SendChatMessage{NbId: f.notebookId, Message: "hello"})
	assert.Equal(t, string(apperror.KindForbidden), lastError(t, f, m.conn).Code)

	require.NoError(t, f.registry.OpenNotebook(f.ctx, m.conn, f.notebookId, time.Now()))
	f.send(t, m, protocol.ActionSendChatMessage, protocol.SendChatMessage{NbId: f.notebookId, Message: "hello"})

	env := findAction(f.gateway.envelopes(t, f.owner.conn), protocol.ActionChatMessageSent)
	require.NotNil(t, env)
	msg, err := protocol.Unmarshal[protocol.ChatMessage](env)
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Message)
	assert.Equal(t, alice.Id, msg.Uid)
}

func TestMalformedFrameIsBadRequest(t *testing.T) {
	f := newFixture(t)

	f.collab.HandleMessage(f.ctx, f.owner.conn, []byte(`{"action":"teleport","data":{}}`))
	assert.Equal(t, string(apperror.KindBadRequest), lastError(t, f, f.owner.conn).Code)

	f.gateway.reset()
	f.collab.HandleMessage(f.ctx, f.owner.conn, []byte(`not json`))
	assert.Equal(t, string(apperror.KindBadRequest), lastError(t, f, f.owner.conn).Code)
}

func TestUnregisteredConnectionIsUnauthorized(t *testing.T) {
	f := newFixture(t)
	ghost := member{conn: "ghost"}

	f.send(t, ghost, protocol.ActionOpenNotebook, protocol.OpenNotebook{NbId: f.notebookId})
	assert.Equal(t, string(apperror.KindUnauthorized), lastError(t, f, ghost.conn).Code)
}
