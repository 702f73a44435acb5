package auth

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/google/uuid"
	"github.com/webitel/admin-notify-service/config"
	"github.com/webitel/admin-notify-service/internal/domain/model"
	"github.com/webitel/admin-notify-service/internal/service"
)

var _ service.Auther = (*StaticAuther)(nil)

type staticEntry struct {
	token    []byte
	identity model.Identity
}

// StaticAuther resolves tokens from a fixed table loaded at startup.
type StaticAuther struct {
	entries []staticEntry
}

func NewStaticAuther(tokens []config.StaticIdentity) (*StaticAuther, error) {
	a := &StaticAuther{entries: make([]staticEntry, 0, len(tokens))}
	for i, t := range tokens {
		if t.Token == "" {
			return nil, fmt.Errorf("auth.tokens[%d]: empty token", i)
		}
		userID, err := uuid.Parse(t.UserID)
		if err != nil {
			return nil, fmt.Errorf("auth.tokens[%d]: user_id: %w", i, err)
		}
		a.entries = append(a.entries, staticEntry{
			token: []byte(t.Token),
			identity: model.Identity{
				UserID: userID,
				Name:   t.Name,
				Roles:  append([]string(nil), t.Roles...),
			},
		})
	}
	return a, nil
}

func (a *StaticAuther) Inspect(_ context.Context, token string) (*model.Identity, error) {
	candidate := []byte(token)
	for _, e := range a.entries {
		if subtle.ConstantTimeCompare(e.token, candidate) == 1 {
			identity := e.identity
			return &identity, nil
		}
	}
	return nil, model.ErrUnauthorized
}
