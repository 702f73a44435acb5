package model

import (
	"slices"

	"github.com/google/uuid"
)

const RoleAdmin = "admin"

// Identity is a session resolved by the authentication collaborator.
type Identity struct {
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
	Roles  []string  `json:"roles"`
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.UserID != uuid.Nil && slices.Contains(i.Roles, RoleAdmin)
}
