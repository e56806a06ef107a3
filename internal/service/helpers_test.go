package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"actually-colab-be/internal/dto"
	"actually-colab-be/internal/entity"
	"actually-colab-be/internal/pkg/logger"
	"actually-colab-be/internal/repository/memory"
	"actually-colab-be/internal/repository/unitofwork"
	"actually-colab-be/pkg/protocol"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fakeGateway records every frame per connection. Connections in down refuse delivery.
type fakeGateway struct {
	mu     sync.Mutex
	frames map[string][][]byte
	down   map[string]bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		frames: make(map[string][][]byte),
		down:   make(map[string]bool),
	}
}

func (g *fakeGateway) PostToConnection(ctx context.Context, connectionId string, payload []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.down[connectionId] {
		return ErrConnectionGone
	}
	g.frames[connectionId] = append(g.frames[connectionId], payload)
	return nil
}

func (g *fakeGateway) setDown(connectionId string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.down[connectionId] = true
}

func (g *fakeGateway) envelopes(t *testing.T, connectionId string) []*protocol.Envelope {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]*protocol.Envelope, 0, len(g.frames[connectionId]))
	for _, raw := range g.frames[connectionId] {
		env, err := protocol.DecodeEvent(raw)
		require.NoError(t, err)
		out = append(out, env)
	}
	return out
}

// received reports whether conn got a frame with action. Safe outside the test goroutine.
func (g *fakeGateway) received(connectionId string, action protocol.Action) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, raw := range g.frames[connectionId] {
		if env, err := protocol.DecodeEvent(raw); err == nil && env.Action == action {
			return true
		}
	}
	return false
}

func (g *fakeGateway) reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.frames = make(map[string][][]byte)
}

type member struct {
	user *entity.User
	conn string
}

type fixture struct {
	ctx        context.Context
	factory    unitofwork.RepositoryFactory
	gateway    *fakeGateway
	registry   ISessionRegistry
	access     IAccessService
	cells      ICellService
	notebooks  INotebookService
	shares     IShareService
	fanout     IFanoutService
	reconciler IReconcilerService
	collab     ICollabService
	pubSub     *gochannel.GoChannel

	notebookId uuid.UUID
	owner      member
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	factory := unitofwork.NewMemoryRepositoryFactory(store)
	log := logger.NewNopLogger()
	gateway := newFakeGateway()

	registry := NewSessionRegistry(factory)
	identity := NewIdentityService(factory, memory.NewIdentityCache(time.Minute))
	access := NewAccessService(factory)
	cells := NewCellService(factory, access)
	notebooks := NewNotebookService(factory, access)
	shares := NewShareService(factory, access, nil)
	fanout := NewFanoutService(registry, gateway, 4, log)

	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })
	reconciler := NewReconcilerService(pubSub, "connection_closed", 10*time.Millisecond, registry, fanout, identity, log)

	f := &fixture{
		ctx:        context.Background(),
		factory:    factory,
		gateway:    gateway,
		registry:   registry,
		access:     access,
		cells:      cells,
		notebooks:  notebooks,
		shares:     shares,
		fanout:     fanout,
		reconciler: reconciler,
		collab:     NewCollabService(registry, identity, access, cells, notebooks, shares, fanout, reconciler, log),
		pubSub:     pubSub,
	}

	owner := f.addUser(t, "owner")
	res, err := notebooks.Create(f.ctx, owner.Id, &dto.CreateNotebookRequest{Name: "demo"})
	require.NoError(t, err)
	f.notebookId = res.Id
	f.owner = member{user: owner, conn: f.connect(t, owner, true)}
	return f
}

func (f *fixture) addUser(t *testing.T, name string) *entity.User {
	t.Helper()
	user := &entity.User{Name: name, Email: name + "@example.com"}
	require.NoError(t, f.factory.NewUnitOfWork(f.ctx).UserRepository().Create(f.ctx, user))
	return user
}

func (f *fixture) grant(t *testing.T, user *entity.User, level entity.AccessLevel) {
	t.Helper()
	err := f.factory.NewUnitOfWork(f.ctx).AccessRepository().Grant(f.ctx, []*entity.NotebookAccess{{
		NotebookId:  f.notebookId,
		UserId:      user.Id,
		AccessLevel: level,
	}})
	require.NoError(t, err)
}

// connect registers a fresh connection for user, optionally opening the notebook.
func (f *fixture) connect(t *testing.T, user *entity.User, open bool) string {
	t.Helper()
	conn := uuid.NewString()
	require.NoError(t, f.registry.Connect(f.ctx, conn, user.Id, time.Now()))
	if open {
		require.NoError(t, f.registry.OpenNotebook(f.ctx, conn, f.notebookId, time.Now()))
	}
	return conn
}

// join adds a user with the given level and a connection bound to the notebook.
func (f *fixture) join(t *testing.T, name string, level entity.AccessLevel) member {
	t.Helper()
	user := f.addUser(t, name)
	f.grant(t, user, level)
	return member{user: user, conn: f.connect(t, user, true)}
}

func (f *fixture) addCell(t *testing.T) *entity.Cell {
	t.Helper()
	cell, err := f.cells.Create(f.ctx, f.owner.conn, f.owner.user.Id, f.notebookId, entity.LanguagePython, nil)
	require.NoError(t, err)
	return cell
}

func (f *fixture) loadCell(t *testing.T, cellId uuid.UUID) *entity.Cell {
	t.Helper()
	cell, err := f.factory.NewUnitOfWork(f.ctx).CellRepository().FindById(f.ctx, f.notebookId, cellId)
	require.NoError(t, err)
	require.NotNil(t, cell)
	return cell
}

func (f *fixture) send(t *testing.T, m member, action protocol.Action, data interface{}) {
	t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(t, err)
	raw, err := json.Marshal(protocol.Envelope{Action: action, Data: payload})
	require.NoError(t, err)
	f.collab.HandleMessage(f.ctx, m.conn, raw)
}

func actionsOf(envs []*protocol.Envelope) []protocol.Action {
	out := make([]protocol.Action, 0, len(envs))
	for _, e := range envs {
		out = append(out, e.Action)
	}
	return out
}

func findAction(envs []*protocol.Envelope, action protocol.Action) *protocol.Envelope {
	for _, e := range envs {
		if e.Action == action {
			return e
		}
	}
	return nil
}
