package protocol

import "github.com/google/uuid"

// Request is one decoded inbound message. The concrete type identifies the action.
type Request interface {
	Action() Action
	Notebook() uuid.UUID
}

// CellData carries the editable part of a cell.
type CellData struct {
	Language  string `json:"language,omitempty" validate:"omitempty,oneof=python markdown"`
	Contents  string `json:"contents"`
	CursorPos *int   `json:"cursor_pos,omitempty" validate:"omitempty,min=0"`
}

type OpenNotebook struct {
	NbId uuid.UUID `json:"nb_id" validate:"required"`
}

type CloseNotebook struct {
	NbId uuid.UUID `json:"nb_id" validate:"required"`
}

type CreateCell struct {
	NbId     uuid.UUID `json:"nb_id" validate:"required"`
	Language string    `json:"language" validate:"required,oneof=python markdown"`
	Position *int      `json:"position,omitempty" validate:"omitempty,min=0"`
}

type LockCell struct {
	NbId   uuid.UUID `json:"nb_id" validate:"required"`
	CellId uuid.UUID `json:"cell_id" validate:"required"`
}

// UnlockCell may carry final contents to persist in the same step.
type UnlockCell struct {
	NbId     uuid.UUID `json:"nb_id" validate:"required"`
	CellId   uuid.UUID `json:"cell_id" validate:"required"`
	CellData *CellData `json:"cellData,omitempty"`
}

// EditCell with a nil CellData deletes the cell.
type EditCell struct {
	NbId     uuid.UUID `json:"nb_id" validate:"required"`
	CellId   uuid.UUID `json:"cell_id" validate:"required"`
	CellData *CellData `json:"cellData"`
}

type UpdateOutput struct {
	NbId   uuid.UUID `json:"nb_id" validate:"required"`
	CellId uuid.UUID `json:"cell_id" validate:"required"`
	Output string    `json:"output" validate:"required"`
}

// ShareNotebook with a nil AccessLevel revokes access for the emails.
type ShareNotebook struct {
	NbId        uuid.UUID `json:"nb_id" validate:"required"`
	Emails      []string  `json:"emails" validate:"required,min=1,dive,required,email"`
	AccessLevel *string   `json:"access_level"`
}

type SendChatMessage struct {
	NbId    uuid.UUID `json:"nb_id" validate:"required"`
	Message string    `json:"message" validate:"required,max=4000"`
}

func (OpenNotebook) Action() Action    { return ActionOpenNotebook }
func (CloseNotebook) Action() Action   { return ActionCloseNotebook }
func (CreateCell) Action() Action      { return ActionCreateCell }
func (LockCell) Action() Action        { return ActionLockCell }
func (UnlockCell) Action() Action      { return ActionUnlockCell }
func (EditCell) Action() Action        { return ActionEditCell }
func (UpdateOutput) Action() Action    { return ActionUpdateOutput }
func (ShareNotebook) Action() Action   { return ActionShareNotebook }
func (SendChatMessage) Action() Action { return ActionSendChatMessage }

func (r OpenNotebook) Notebook() uuid.UUID    { return r.NbId }
func (r CloseNotebook) Notebook() uuid.UUID   { return r.NbId }
func (r CreateCell) Notebook() uuid.UUID      { return r.NbId }
func (r LockCell) Notebook() uuid.UUID        { return r.NbId }
func (r UnlockCell) Notebook() uuid.UUID      { return r.NbId }
func (r EditCell) Notebook() uuid.UUID        { return r.NbId }
func (r UpdateOutput) Notebook() uuid.UUID    { return r.NbId }
func (r ShareNotebook) Notebook() uuid.UUID   { return r.NbId }
func (r SendChatMessage) Notebook() uuid.UUID { return r.NbId }
