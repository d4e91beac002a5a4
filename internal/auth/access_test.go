package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonpanjtar/metaforge-sub002/internal/models"
)

func setupStore() *models.InMemoryStore {
	s := models.NewInMemoryStore()
	s.PutAccount(models.Account{ID: "acc1", OwnerID: "owner"})
	s.PutMembership(models.Membership{AccountID: "acc1", UserID: "ed", Role: models.RoleEditor})
	s.PutMembership(models.Membership{AccountID: "acc1", UserID: "adm", Role: models.RoleAdmin})
	s.PutMembership(models.Membership{AccountID: "acc1", UserID: "view", Role: models.RoleViewer})
	return s
}

func TestCanDeploy(t *testing.T) {
	a := NewAuthorizer(setupStore())
	ctx := context.Background()

	cases := []struct {
		user, account string
		want          bool
	}{
		{"owner", "acc1", true},
		{"ed", "acc1", true},
		{"adm", "acc1", true},
		{"view", "acc1", false},
		{"stranger", "acc1", false},
		{"owner", "missing", false},
		{"", "acc1", false},
	}
	for _, tc := range cases {
		got, err := a.CanDeploy(ctx, tc.user, tc.account)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "user %s on %s", tc.user, tc.account)
	}
}

type failingStore struct {
	models.Store
}

func (failingStore) GetAccount(context.Context, string) (*models.Account, error) {
	return nil, errors.New("db down")
}

func TestCanDeployStoreError(t *testing.T) {
	a := NewAuthorizer(failingStore{Store: models.NewInMemoryStore()})
	ok, err := a.CanDeploy(context.Background(), "u", "acc1")
	assert.Error(t, err)
	assert.False(t, ok)
}
