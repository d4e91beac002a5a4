package deploy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leonpanjtar/metaforge-sub002/internal/models"
	"github.com/leonpanjtar/metaforge-sub002/internal/platform"
)

func TestPageResolverOrder(t *testing.T) {
	client := newFakeClient()
	r := NewPageResolver(zap.NewNop(), DefaultPageStrategies(client, "me")...)
	ctx := context.Background()

	page, err := r.Resolve(ctx, PageContext{
		Placement: models.Placement{PageRef: "pl_page"},
		Account:   models.Account{PageRef: "acct_page"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pl_page", page)

	page, err = r.Resolve(ctx, PageContext{
		Placement: models.Placement{PromotedObject: &models.PromotedObject{PageID: "promoted_page"}},
		Account:   models.Account{PageRef: "acct_page"},
	})
	require.NoError(t, err)
	assert.Equal(t, "promoted_page", page)

	page, err = r.Resolve(ctx, PageContext{Account: models.Account{PageRef: "acct_page"}})
	require.NoError(t, err)
	assert.Equal(t, "acct_page", page)
	assert.Equal(t, 0, client.count("ListPages"))

	page, err = r.Resolve(ctx, PageContext{})
	require.NoError(t, err)
	assert.Equal(t, "page_listed", page)
}

func TestPageResolverStopsOnUnexpectedError(t *testing.T) {
	client := newFakeClient()
	client.listPagesErr = &platform.Error{StatusCode: 403, Code: 200, Type: "OAuthException", Message: "Permissions error"}
	r := NewPageResolver(zap.NewNop(), DefaultPageStrategies(client, "me")...)

	_, err := r.Resolve(context.Background(), PageContext{})
	require.Error(t, err)
	assert.Equal(t, KindPrerequisiteUnavailable, KindOf(err))
	var de *Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 200, de.Code)
}

func TestPageResolverNotFoundFallsThrough(t *testing.T) {
	client := newFakeClient()
	client.listPagesErr = notFound("me")
	r := NewPageResolver(zap.NewNop(), ListedPage{Client: client}, staticPage("fallback"))

	page, err := r.Resolve(context.Background(), PageContext{})
	require.NoError(t, err)
	assert.Equal(t, "fallback", page)
}

type staticPage string

func (s staticPage) Name() string { return "static" }

func (s staticPage) ResolvePage(context.Context, PageContext) (string, error) { return string(s), nil }

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindInternal, KindOf(errors.New("x")))
	assert.Equal(t, KindForbidden, KindOf(newError(KindForbidden, nil, "no")))
	assert.True(t, KindPrerequisiteUnavailable.RequestLevel())
	assert.False(t, KindUpstreamRejected.RequestLevel())
}
