package dto

import (
	"time"

	"github.com/google/uuid"
)

type UserProfileResponse struct {
	Id            uuid.UUID `json:"uid"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	NotebookCount int       `json:"notebook_count"`
	CreatedAt     time.Time `json:"created_at"`
}

type UpdateProfileRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}
