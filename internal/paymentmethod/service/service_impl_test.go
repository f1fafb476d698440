package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesengine/internal/apperror"
	auditdomain "github.com/smallbiznis/salesengine/internal/audit/domain"
	"github.com/smallbiznis/salesengine/internal/ownercontext"
	"github.com/smallbiznis/salesengine/internal/paymentmethod/domain"
	"github.com/smallbiznis/salesengine/internal/paymentmethod/repository"
	"github.com/smallbiznis/salesengine/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type failingAudit struct {
	auditdomain.Service
}

func (failingAudit) AuditLog(context.Context, *snowflake.ID, string, string, *string, map[string]any) error {
	return errors.New("audit store unavailable")
}

func newService(t *testing.T) (domain.Service, context.Context, snowflake.ID) {
	t.Helper()
	db := dbtest.Open(t, &domain.PaymentMethod{})
	svc := New(Params{DB: db, Log: zap.NewNop(), GenID: dbtest.Node(t), Repo: repository.Provide()})
	owner := snowflake.ID(7001)
	return svc, ownercontext.WithOwnerID(context.Background(), owner), owner
}

func TestCreate_AppliesTypeDefaults(t *testing.T) {
	svc, ctx, _ := newService(t)

	method, err := svc.Create(ctx, domain.CreateRequest{Name: "Bank Transfer", Type: "bank_transfer"})
	require.NoError(t, err)
	assert.Equal(t, "bank-transfer", method.Code)
	assert.Equal(t, []string{"bank_name", "reference_number"}, []string(method.RequiredFields))

	_, err = svc.Create(ctx, domain.CreateRequest{Name: "Crypto", Type: "bitcoin"})
	assert.ErrorIs(t, err, domain.ErrInvalidType)
}

func TestValidate_ListsMissingFields(t *testing.T) {
	svc, ctx, owner := newService(t)
	method, err := svc.Create(ctx, domain.CreateRequest{Name: "Cheque", Type: "cheque"})
	require.NoError(t, err)

	_, err = svc.Validate(ctx, owner, method.ID.String(), map[string]string{"bank_name": "GTB"})
	require.Error(t, err)
	appErr := apperror.As(err)
	assert.Equal(t, apperror.KindValidation, appErr.Kind)
	assert.Equal(t, "payment_details", appErr.Field)
	assert.Contains(t, appErr.Message, "cheque_number")

	got, err := svc.Validate(ctx, owner, "cheque", map[string]string{"bank_name": "GTB", "cheque_number": "0042"})
	require.NoError(t, err)
	assert.Equal(t, method.ID, got.ID)
}

func TestLookup_InactiveAndMissing(t *testing.T) {
	svc, ctx, owner := newService(t)
	method, err := svc.Create(ctx, domain.CreateRequest{Name: "Cash", Type: "cash"})
	require.NoError(t, err)

	_, err = svc.SetActive(ctx, method.ID.String(), false)
	require.NoError(t, err)

	_, err = svc.Lookup(ctx, owner, "cash")
	assert.Equal(t, apperror.KindBusinessLogic, apperror.KindOf(err))

	_, err = svc.Lookup(ctx, owner, "unknown")
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	_, err = svc.Lookup(ctx, snowflake.ID(1), method.ID.String())
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestCreate_LogsAuditFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	db := dbtest.Open(t, &domain.PaymentMethod{})
	svc := New(Params{DB: db, Log: zap.New(core), GenID: dbtest.Node(t), Repo: repository.Provide(), AuditSvc: failingAudit{}})
	ctx := ownercontext.WithOwnerID(context.Background(), snowflake.ID(7001))

	method, err := svc.Create(ctx, domain.CreateRequest{Name: "Cash", Type: "cash"})
	require.NoError(t, err)

	entries := logs.FilterMessage("paymentmethod.audit.failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, method.ID.String(), entries[0].ContextMap()["method_id"])
	assert.Equal(t, "audit store unavailable", entries[0].ContextMap()["error"])
}
