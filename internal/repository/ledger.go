package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "github.com/wfunc/harvest-slot/internal/errors"
	"github.com/wfunc/harvest-slot/internal/models"
)

// LedgerRepository 钱包流水仓储接口
type LedgerRepository interface {
	BaseRepository
	Create(ctx context.Context, entry *models.LedgerEntry) error
	ListByRound(ctx context.Context, roundID string) ([]*models.LedgerEntry, error)
	ListBySession(ctx context.Context, sessionID string, p *Pagination) ([]*models.LedgerEntry, error)
	Sum(ctx context.Context, sessionID string) (decimal.Decimal, error)
}

// ledgerRepo 钱包流水仓储实现
type ledgerRepo struct {
	*BaseRepo
}

// NewLedgerRepository 创建钱包流水仓储
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Create 写入一条流水
func (r *ledgerRepo) Create(ctx context.Context, entry *models.LedgerEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return apperrors.Wrapf(err, apperrors.ErrDatabaseInsert, "ledger %s", entry.EntryID)
	}
	return nil
}

// ListByRound 按写入顺序列出某局的流水
func (r *ledgerRepo) ListByRound(ctx context.Context, roundID string) ([]*models.LedgerEntry, error) {
	var entries []*models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Order("id asc").
		Find(&entries).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return entries, nil
}

// ListBySession 分页列出会话流水（最新在前）
func (r *ledgerRepo) ListBySession(ctx context.Context, sessionID string, p *Pagination) ([]*models.LedgerEntry, error) {
	var entries []*models.LedgerEntry

	if err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("session_id = ?", sessionID).
		Count(&p.Total).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id desc").
		Scopes(Paginate(p)).
		Find(&entries).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return entries, nil
}

// Sum 会话流水合计，应等于当前余额
func (r *ledgerRepo) Sum(ctx context.Context, sessionID string) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("session_id = ?", sessionID).
		Pluck("amount", &amounts).Error
	if err != nil {
		return decimal.Zero, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total, nil
}
