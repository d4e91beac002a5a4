// Package auth answers whether a user may act on an account.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/leonpanjtar/metaforge-sub002/internal/models"
)

// deployRoles are the membership roles allowed to push ads to the platform.
var deployRoles = map[string]bool{
	models.RoleOwner:  true,
	models.RoleAdmin:  true,
	models.RoleEditor: true,
}

// Authorizer is the single capability check used by every batch entry point.
type Authorizer struct {
	store models.Store
}

// NewAuthorizer creates an Authorizer reading accounts and memberships from store.
func NewAuthorizer(store models.Store) *Authorizer {
	return &Authorizer{store: store}
}

// CanDeploy reports whether userID owns accountID or holds a deploying role in it.
// Unknown accounts and users without membership yield false, not an error.
func (a *Authorizer) CanDeploy(ctx context.Context, userID, accountID string) (bool, error) {
	if userID == "" || accountID == "" {
		return false, nil
	}

	acct, err := a.store.GetAccount(ctx, accountID)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load account %s: %w", accountID, err)
	}
	if acct.OwnerID == userID {
		return true, nil
	}

	m, err := a.store.GetMembership(ctx, accountID, userID)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load membership %s/%s: %w", accountID, userID, err)
	}
	return deployRoles[m.Role], nil
}
