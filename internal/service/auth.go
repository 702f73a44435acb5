package service

import (
	"context"

	"github.com/webitel/admin-notify-service/internal/domain/model"
)

// Auther resolves an opaque session token to an identity.
// Implementations return model.ErrUnauthorized for unknown or expired tokens.
type Auther interface {
	Inspect(ctx context.Context, token string) (*model.Identity, error)
}

// AuthorizeAdmin resolves the token and requires the administrator role.
func AuthorizeAdmin(ctx context.Context, auther Auther, token string) (*model.Identity, error) {
	if token == "" {
		return nil, model.ErrUnauthorized
	}
	identity, err := auther.Inspect(ctx, token)
	if err != nil {
		return nil, err
	}
	if !identity.IsAdmin() {
		return nil, model.ErrUnauthorized
	}
	return identity, nil
}
