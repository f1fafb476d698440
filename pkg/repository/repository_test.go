package repository

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesengine/pkg/db/dbtest"
	"github.com/smallbiznis/salesengine/pkg/db/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID      snowflake.ID `gorm:"primaryKey"`
	OwnerID snowflake.ID `gorm:"not null;index"`
	Name    string
}

func TestStore_ForOwnerIsolatesTenants(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t, &widget{})
	base := ProvideStore[widget](db)

	require.NoError(t, base.Create(ctx, &widget{ID: 1, OwnerID: 10, Name: "b"}))
	require.NoError(t, base.Create(ctx, &widget{ID: 2, OwnerID: 10, Name: "a"}))
	require.NoError(t, base.Create(ctx, &widget{ID: 3, OwnerID: 20, Name: "c"}))

	mine := base.ForOwner(10)
	items, err := mine.Find(ctx, &widget{}, option.WithSortBy(option.QuerySortBy{Field: "name"}))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].Name)

	other, err := mine.FindOne(ctx, &widget{ID: 3})
	require.NoError(t, err)
	assert.Nil(t, other)

	count, err := mine.Count(ctx, &widget{ID: 3})
	require.NoError(t, err)
	assert.Zero(t, count)

	updated, err := mine.Update(ctx, snowflake.ID(3), map[string]any{"name": "stolen"})
	require.NoError(t, err)
	assert.False(t, updated)

	deleted, err := mine.Delete(ctx, snowflake.ID(3))
	require.NoError(t, err)
	assert.False(t, deleted)

	total, err := base.Count(ctx, &widget{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestStore_UpdateAndDeleteOwnRows(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t, &widget{})
	mine := ProvideStore[widget](db).ForOwner(10)
	require.NoError(t, mine.Create(ctx, &widget{ID: 1, OwnerID: 10, Name: "old"}))

	updated, err := mine.WithTrx(db).Update(ctx, snowflake.ID(1), map[string]any{"name": "new"})
	require.NoError(t, err)
	assert.True(t, updated)

	got, err := mine.FindOne(ctx, &widget{ID: 1})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "new", got.Name)

	deleted, err := mine.Delete(ctx, snowflake.ID(1))
	require.NoError(t, err)
	assert.True(t, deleted)
}
