package ownercontext

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
)

func TestOwnerIDRoundTrip(t *testing.T) {
	ctx := WithOwnerID(context.Background(), snowflake.ID(42))

	id, ok := OwnerIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, snowflake.ID(42), id)

	_, ok = UserIDFromContext(ctx)
	assert.False(t, ok)
}

func TestOwnerIDFromContext_ZeroIsUnset(t *testing.T) {
	ctx := WithOwnerID(context.Background(), 0)
	_, ok := OwnerIDFromContext(ctx)
	assert.False(t, ok)
}
