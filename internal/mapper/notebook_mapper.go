package mapper

import (
	"actually-colab-be/internal/entity"
	"actually-colab-be/internal/model"
)

type NotebookMapper struct{}

func NewNotebookMapper() *NotebookMapper {
	return &NotebookMapper{}
}

func (m *NotebookMapper) ToEntity(n *model.Notebook) *entity.Notebook {
	if n == nil {
		return nil
	}
	return &entity.Notebook{
		Id:        n.Id,
		Name:      n.Name,
		Language:  n.Language,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

func (m *NotebookMapper) ToModel(n *entity.Notebook) *model.Notebook {
	if n == nil {
		return nil
	}
	return &model.Notebook{
		Id:        n.Id,
		Name:      n.Name,
		Language:  n.Language,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

func (m *NotebookMapper) ToEntities(notebooks []*model.Notebook) []*entity.Notebook {
	entities := make([]*entity.Notebook, len(notebooks))
	for i, n := range notebooks {
		entities[i] = m.ToEntity(n)
	}
	return entities
}

func (m *NotebookMapper) AccessToModels(grants []*entity.NotebookAccess) []*model.NotebookAccessLevel {
	models := make([]*model.NotebookAccessLevel, len(grants))
	for i, g := range grants {
		models[i] = &model.NotebookAccessLevel{
			NotebookId:  g.NotebookId,
			UserId:      g.UserId,
			AccessLevel: string(g.AccessLevel),
		}
	}
	return models
}
