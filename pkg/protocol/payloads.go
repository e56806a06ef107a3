package protocol

import "github.com/google/uuid"

type User struct {
	Uid   uuid.UUID `json:"uid"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type NotebookUser struct {
	User
	AccessLevel string `json:"access_level"`
}

// Cell is the broadcast view of a cell. TimeModified is epoch milliseconds.
type Cell struct {
	CellId       uuid.UUID  `json:"cell_id"`
	NbId         uuid.UUID  `json:"nb_id"`
	Position     int        `json:"position"`
	Language     string     `json:"language"`
	Contents     string     `json:"contents"`
	LockHeldBy   *uuid.UUID `json:"lock_held_by"`
	CursorPos    *int       `json:"cursor_pos"`
	TimeModified int64      `json:"time_modified"`
}

type NotebookContents struct {
	NbId           uuid.UUID      `json:"nb_id"`
	Name           string         `json:"name"`
	Language       string         `json:"language"`
	TimeModified   int64          `json:"time_modified"`
	Users          []NotebookUser `json:"users"`
	Cells          []Cell         `json:"cells"`
	ConnectedUsers []uuid.UUID    `json:"connected_users"`
}

type NotebookRef struct {
	NbId uuid.UUID `json:"nb_id"`
}

type CellRef struct {
	NbId   uuid.UUID `json:"nb_id"`
	CellId uuid.UUID `json:"cell_id"`
}

type Output struct {
	NbId         uuid.UUID `json:"nb_id"`
	CellId       uuid.UUID `json:"cell_id"`
	Uid          uuid.UUID `json:"uid"`
	Output       string    `json:"output"`
	TimeModified int64     `json:"time_modified"`
}

type ChatMessage struct {
	Uid       uuid.UUID `json:"uid"`
	NbId      uuid.UUID `json:"nb_id"`
	Message   string    `json:"message"`
	Timestamp int64     `json:"timestamp"`
}

type NotebookShared struct {
	NbId  uuid.UUID      `json:"nb_id"`
	Users []NotebookUser `json:"users"`
}

type NotebookUnshared struct {
	NbId uuid.UUID   `json:"nb_id"`
	Uids []uuid.UUID `json:"uids"`
}

// ErrorReport is sent privately to the requester when an action fails.
type ErrorReport struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	RequestAction Action `json:"request_action,omitempty"`
}
