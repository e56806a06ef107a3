package dto

import (
	"time"

	"actually-colab-be/pkg/protocol"

	"github.com/google/uuid"
)

type CreateNotebookRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Language string `json:"language" validate:"omitempty,oneof=python"`
}

type CreateNotebookResponse struct {
	Id uuid.UUID `json:"nb_id"`
}

type GetAllNotebookResponse struct {
	Id        uuid.UUID               `json:"nb_id"`
	Name      string                  `json:"name"`
	Language  string                  `json:"language"`
	UpdatedAt time.Time               `json:"time_modified"`
	Users     []protocol.NotebookUser `json:"users"`
}
