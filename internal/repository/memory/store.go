package memory

import (
	"sync"

	"actually-colab-be/internal/entity"

	"github.com/google/uuid"
)

type accessKey struct {
	notebookId uuid.UUID
	userId     uuid.UUID
}

type outputKey struct {
	notebookId uuid.UUID
	cellId     uuid.UUID
	userId     uuid.UUID
}

type dataset struct {
	users     map[uuid.UUID]*entity.User
	notebooks map[uuid.UUID]*entity.Notebook
	cells     map[uuid.UUID]*entity.Cell
	sessions  map[string]*entity.ActiveSession
	access    map[accessKey]*entity.NotebookAccess
	grantSeq  map[accessKey]int
	outputs   map[outputKey]*entity.CellOutput
	seq       int
}

func newDataset() *dataset {
	return &dataset{
		users:     make(map[uuid.UUID]*entity.User),
		notebooks: make(map[uuid.UUID]*entity.Notebook),
		cells:     make(map[uuid.UUID]*entity.Cell),
		sessions:  make(map[string]*entity.ActiveSession),
		access:    make(map[accessKey]*entity.NotebookAccess),
		grantSeq:  make(map[accessKey]int),
		outputs:   make(map[outputKey]*entity.CellOutput),
	}
}

func (d *dataset) clone() *dataset {
	c := newDataset()
	c.seq = d.seq
	for k, v := range d.users {
		u := *v
		c.users[k] = &u
	}
	for k, v := range d.notebooks {
		n := *v
		c.notebooks[k] = &n
	}
	for k, v := range d.cells {
		c.cells[k] = copyCell(v)
	}
	for k, v := range d.sessions {
		c.sessions[k] = copySession(v)
	}
	for k, v := range d.access {
		a := *v
		c.access[k] = &a
	}
	for k, v := range d.grantSeq {
		c.grantSeq[k] = v
	}
	for k, v := range d.outputs {
		o := *v
		c.outputs[k] = &o
	}
	return c
}

// Store is a process-local database used by the memory driver and by tests.
// A Scope with an open transaction holds mu until commit or rollback.
type Store struct {
	mu   sync.Mutex
	data *dataset
}

func NewStore() *Store {
	return &Store{data: newDataset()}
}

// Scope is the view a unit of work has on the store.
type Scope struct {
	store    *Store
	inTx     bool
	snapshot *dataset
}

func (s *Store) NewScope() *Scope {
	return &Scope{store: s}
}

func (sc *Scope) Begin() {
	sc.store.mu.Lock()
	sc.snapshot = sc.store.data.clone()
	sc.inTx = true
}

func (sc *Scope) Commit() {
	sc.snapshot = nil
	sc.inTx = false
	sc.store.mu.Unlock()
}

func (sc *Scope) Rollback() {
	sc.store.data = sc.snapshot
	sc.snapshot = nil
	sc.inTx = false
	sc.store.mu.Unlock()
}

func (sc *Scope) InTx() bool {
	return sc.inTx
}

func (sc *Scope) run(fn func(d *dataset) error) error {
	if sc.inTx {
		return fn(sc.store.data)
	}
	sc.store.mu.Lock()
	defer sc.store.mu.Unlock()
	return fn(sc.store.data)
}

func copyCell(c *entity.Cell) *entity.Cell {
	out := *c
	if c.LockHeldBy != nil {
		holder := *c.LockHeldBy
		out.LockHeldBy = &holder
	}
	if c.CursorPos != nil {
		pos := *c.CursorPos
		out.CursorPos = &pos
	}
	return &out
}

func copySession(s *entity.ActiveSession) *entity.ActiveSession {
	out := *s
	if s.NotebookId != nil {
		nb := *s.NotebookId
		out.NotebookId = &nb
	}
	if s.DisconnectedAt != nil {
		at := *s.DisconnectedAt
		out.DisconnectedAt = &at
	}
	return &out
}
