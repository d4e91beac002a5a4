package models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_PlacementCopySemantics(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	p := &Placement{ID: "pl-1", Targeting: Targeting{Countries: []string{"US"}}}
	require.NoError(t, s.SavePlacement(ctx, p))

	// Mutating the caller's copy must not leak into the store.
	p.Targeting.Countries[0] = "DE"
	p.ExternalRef = "ext-1"

	got, err := s.GetPlacement(ctx, "pl-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"US"}, got.Targeting.Countries)
	assert.Empty(t, got.ExternalRef)
}

func TestInMemoryStore_ComponentMetadata(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	c := &Component{ID: "img-1", Kind: KindMediaAsset, MediaType: MediaTypeImage}
	require.NoError(t, s.SaveComponent(ctx, c))

	loaded, err := s.GetComponent(ctx, "img-1")
	require.NoError(t, err)
	assert.Empty(t, loaded.UploadRef())

	loaded.SetUploadRef(MediaTypeImage, "hash-abc")
	require.NoError(t, s.SaveComponent(ctx, loaded))

	again, err := s.GetComponent(ctx, "img-1")
	require.NoError(t, err)
	assert.Equal(t, "hash-abc", again.UploadRef())
	assert.Equal(t, MediaTypeImage, again.Metadata[MetaUploadKind])
}

func TestInMemoryStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	_, err := s.GetPlacement(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetCombination(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetMembership(ctx, "acc", "user")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStore_ListDeployedCombinations(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	require.NoError(t, s.SaveCombination(ctx, &Combination{ID: "b", Deployed: true, ExternalAdRef: "ad-b"}))
	require.NoError(t, s.SaveCombination(ctx, &Combination{ID: "a", Deployed: true, ExternalAdRef: "ad-a"}))
	require.NoError(t, s.SaveCombination(ctx, &Combination{ID: "c"}))

	got, err := s.ListDeployedCombinations(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}
