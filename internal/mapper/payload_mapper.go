package mapper

import (
	"actually-colab-be/internal/entity"
	"actually-colab-be/pkg/protocol"

	"github.com/google/uuid"
)

// Converters from domain entities to the socket payloads.

func ToUserPayload(u *entity.User) protocol.User {
	return protocol.User{Uid: u.Id, Name: u.Name, Email: u.Email}
}

func ToMemberPayloads(members []*entity.NotebookMember) []protocol.NotebookUser {
	out := make([]protocol.NotebookUser, 0, len(members))
	for _, m := range members {
		out = append(out, protocol.NotebookUser{
			User:        ToUserPayload(&m.User),
			AccessLevel: string(m.AccessLevel),
		})
	}
	return out
}

func ToCellPayload(c *entity.Cell) protocol.Cell {
	return protocol.Cell{
		CellId:       c.Id,
		NbId:         c.NotebookId,
		Position:     c.Position,
		Language:     c.Language,
		Contents:     c.Contents,
		LockHeldBy:   c.LockHeldBy,
		CursorPos:    c.CursorPos,
		TimeModified: c.UpdatedAt.UnixMilli(),
	}
}

func ToCellPayloads(cells []*entity.Cell) []protocol.Cell {
	out := make([]protocol.Cell, 0, len(cells))
	for _, c := range cells {
		out = append(out, ToCellPayload(c))
	}
	return out
}

func ToNotebookContents(nb *entity.Notebook, members []*entity.NotebookMember, cells []*entity.Cell, connected []uuid.UUID) protocol.NotebookContents {
	if connected == nil {
		connected = []uuid.UUID{}
	}
	return protocol.NotebookContents{
		NbId:           nb.Id,
		Name:           nb.Name,
		Language:       nb.Language,
		TimeModified:   nb.UpdatedAt.UnixMilli(),
		Users:          ToMemberPayloads(members),
		Cells:          ToCellPayloads(cells),
		ConnectedUsers: connected,
	}
}

func ToOutputPayload(o *entity.CellOutput) protocol.Output {
	return protocol.Output{
		NbId:         o.NotebookId,
		CellId:       o.CellId,
		Uid:          o.UserId,
		Output:       o.Output,
		TimeModified: o.UpdatedAt.UnixMilli(),
	}
}
