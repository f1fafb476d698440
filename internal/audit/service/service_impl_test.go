package service

import (
	"context"
	"testing"

	auditdomain "github.com/smallbiznis/salesengine/internal/audit/domain"
	"github.com/smallbiznis/salesengine/internal/audit/repository"
	"github.com/smallbiznis/salesengine/internal/ownercontext"
	"github.com/smallbiznis/salesengine/pkg/db/dbtest"
	"github.com/smallbiznis/salesengine/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAuditLog_ResolvesActorAndOwnerFromContext(t *testing.T) {
	db := dbtest.Open(t, &auditdomain.AuditLog{})
	node := dbtest.Node(t)
	svc := NewService(Params{DB: db, Log: zap.NewNop(), GenID: node, Repo: repository.Provide()})

	ownerID := node.Generate()
	userID := node.Generate()
	ctx := ownercontext.WithOwnerID(context.Background(), ownerID)
	ctx = ownercontext.WithUserID(ctx, userID)
	ctx = ownercontext.WithRequestID(ctx, "req-1")

	targetID := "  42 "
	require.NoError(t, svc.AuditLog(ctx, nil, "sale.processed", "sale", &targetID, map[string]any{"items": 2}))

	var entry auditdomain.AuditLog
	require.NoError(t, db.First(&entry).Error)
	require.NotNil(t, entry.OwnerID)
	assert.Equal(t, ownerID, *entry.OwnerID)
	assert.Equal(t, auditdomain.ActorTypeUser, entry.ActorType)
	require.NotNil(t, entry.TargetID)
	assert.Equal(t, "42", *entry.TargetID)
	assert.Equal(t, "req-1", entry.Metadata["request_id"])
}

func TestAuditLog_RequiresAction(t *testing.T) {
	db := dbtest.Open(t, &auditdomain.AuditLog{})
	svc := NewService(Params{DB: db, Log: zap.NewNop(), GenID: dbtest.Node(t), Repo: repository.Provide()})

	err := svc.AuditLog(context.Background(), nil, " ", "sale", nil, nil)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestList_PaginatesNewestFirst(t *testing.T) {
	db := dbtest.Open(t, &auditdomain.AuditLog{})
	node := dbtest.Node(t)
	svc := NewService(Params{DB: db, Log: zap.NewNop(), GenID: node, Repo: repository.Provide()})

	ownerID := node.Generate()
	ctx := ownercontext.WithOwnerID(context.Background(), ownerID)
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.AuditLog(ctx, &ownerID, "invoice.status_changed", "invoice", nil, nil))
	}

	first, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	assert.Len(t, first.AuditLogs, 2)
	assert.True(t, first.HasMore)
	require.NotEmpty(t, first.NextPageToken)

	second, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken}})
	require.NoError(t, err)
	assert.Len(t, second.AuditLogs, 1)
	assert.False(t, second.HasMore)

	_, err = svc.List(context.Background(), auditdomain.ListAuditLogRequest{})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidOwner)
}
