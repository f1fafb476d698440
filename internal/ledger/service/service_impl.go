package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/smallbiznis/salesengine/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		genID: p.GenID,
	}
}

func (s *Service) RecordTx(ctx context.Context, tx *gorm.DB, entry ledgerdomain.Entry) (bool, error) {
	if entry.OwnerID == 0 {
		return false, ledgerdomain.ErrInvalidOwner
	}
	switch entry.SourceType {
	case ledgerdomain.SourceTypeSale, ledgerdomain.SourceTypeSaleSettlement,
		ledgerdomain.SourceTypeSalePayment, ledgerdomain.SourceTypeInvoice:
	default:
		return false, ledgerdomain.ErrInvalidSourceType
	}
	if entry.SourceID == 0 {
		return false, ledgerdomain.ErrInvalidSourceID
	}
	if !entry.Amount.IsPositive() {
		return false, ledgerdomain.ErrInvalidAmount
	}
	currency := strings.ToUpper(strings.TrimSpace(entry.Currency))
	if currency == "" {
		return false, ledgerdomain.ErrInvalidCurrency
	}

	now := time.Now().UTC()
	occurredAt := entry.OccurredAt.UTC()
	if entry.OccurredAt.IsZero() {
		occurredAt = now
	}

	row := ledgerdomain.Transaction{
		ID:          s.genID.Generate(),
		OwnerID:     entry.OwnerID,
		SaleID:      entry.SaleID,
		InvoiceID:   entry.InvoiceID,
		SourceType:  entry.SourceType,
		SourceID:    entry.SourceID,
		Kind:        ledgerdomain.KindMoneyIn,
		Amount:      entry.Amount.Round(2),
		Currency:    currency,
		Description: strings.TrimSpace(entry.Description),
		OccurredAt:  occurredAt,
		CreatedAt:   now,
	}
	if len(entry.Metadata) > 0 {
		row.Metadata = datatypes.JSONMap(entry.Metadata)
	}

	result := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source_type"}, {Name: "source_id"}, {Name: "kind"}},
			DoNothing: true,
		}).
		Create(&row)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		s.log.Debug("ledger.transaction.duplicate",
			zap.String("source_type", string(entry.SourceType)),
			zap.String("source_id", entry.SourceID.String()),
		)
		return false, nil
	}
	return true, nil
}

func (s *Service) DeleteForSaleTx(ctx context.Context, tx *gorm.DB, saleID snowflake.ID) (int64, error) {
	result := tx.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Delete(&ledgerdomain.Transaction{})
	return result.RowsAffected, result.Error
}

func (s *Service) ListBySale(ctx context.Context, saleID snowflake.ID) ([]ledgerdomain.Transaction, error) {
	var items []ledgerdomain.Transaction
	err := s.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Order("occurred_at ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
