// Package access decides who may use the bot. The owner manages the list.
package access

import (
	"context"
	"errors"
	"fmt"
)

var ErrNotOwner = errors.New("only the bot owner can manage access")

// Repo is the persisted authorized-user list.
type Repo interface {
	Add(ctx context.Context, userID, addedBy int64) error
	Remove(ctx context.Context, userID int64) (bool, error)
	List(ctx context.Context) ([]int64, error)
	Contains(ctx context.Context, userID int64) (bool, error)
}

type Guard struct {
	Owner int64
	Repo  Repo
}

func NewGuard(owner int64, repo Repo) *Guard {
	return &Guard{Owner: owner, Repo: repo}
}

func (g *Guard) IsOwner(userID int64) bool { return userID != 0 && userID == g.Owner }

// Allowed reports whether userID may run extractions. The owner always may.
func (g *Guard) Allowed(ctx context.Context, userID int64) (bool, error) {
	if g.IsOwner(userID) {
		return true, nil
	}
	return g.Repo.Contains(ctx, userID)
}

// Seed adds ids on behalf of the owner, typically from configuration at startup.
func (g *Guard) Seed(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		if err := g.Repo.Add(ctx, id, g.Owner); err != nil {
			return fmt.Errorf("seed user %d: %w", id, err)
		}
	}
	return nil
}

func (g *Guard) Grant(ctx context.Context, actor, userID int64) error {
	if !g.IsOwner(actor) {
		return ErrNotOwner
	}
	if userID <= 0 {
		return fmt.Errorf("invalid user id %d", userID)
	}
	return g.Repo.Add(ctx, userID, actor)
}

// Revoke reports whether the user had been on the list. The owner cannot be revoked.
func (g *Guard) Revoke(ctx context.Context, actor, userID int64) (bool, error) {
	if !g.IsOwner(actor) {
		return false, ErrNotOwner
	}
	if g.IsOwner(userID) {
		return false, errors.New("the owner cannot be removed")
	}
	return g.Repo.Remove(ctx, userID)
}

func (g *Guard) List(ctx context.Context, actor int64) ([]int64, error) {
	if !g.IsOwner(actor) {
		return nil, ErrNotOwner
	}
	return g.Repo.List(ctx)
}
