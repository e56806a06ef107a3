package mapper

import (
	"actually-colab-be/internal/entity"
	"actually-colab-be/internal/model"
)

type CellMapper struct{}

func NewCellMapper() *CellMapper {
	return &CellMapper{}
}

func (m *CellMapper) ToEntity(c *model.Cell) *entity.Cell {
	if c == nil {
		return nil
	}
	return &entity.Cell{
		Id:         c.Id,
		NotebookId: c.NotebookId,
		Position:   c.Position,
		Language:   c.Language,
		Contents:   c.Contents,
		LockHeldBy: c.LockHeldBy,
		CursorPos:  c.CursorPos,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func (m *CellMapper) ToModel(c *entity.Cell) *model.Cell {
	if c == nil {
		return nil
	}
	return &model.Cell{
		Id:         c.Id,
		NotebookId: c.NotebookId,
		Position:   c.Position,
		Language:   c.Language,
		Contents:   c.Contents,
		LockHeldBy: c.LockHeldBy,
		CursorPos:  c.CursorPos,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func (m *CellMapper) ToEntities(cells []model.Cell) []*entity.Cell {
	entities := make([]*entity.Cell, len(cells))
	for i := range cells {
		entities[i] = m.ToEntity(&cells[i])
	}
	return entities
}

func (m *CellMapper) OutputToModel(o *entity.CellOutput) *model.CellOutput {
	return &model.CellOutput{
		NotebookId: o.NotebookId,
		CellId:     o.CellId,
		UserId:     o.UserId,
		Output:     o.Output,
		UpdatedAt:  o.UpdatedAt,
	}
}
