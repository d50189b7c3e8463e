package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "github.com/wfunc/harvest-slot/internal/errors"
	"github.com/wfunc/harvest-slot/internal/models"
)

// RoundRepository 对局记录仓储接口
type RoundRepository interface {
	BaseRepository
	Create(ctx context.Context, record *models.RoundRecord) error
	FindByRoundID(ctx context.Context, roundID string) (*models.RoundRecord, error)
	List(ctx context.Context, sessionID string, p *Pagination) ([]*models.RoundRecord, error)
	Summary(ctx context.Context, sessionID string) (*RoundSummary, error)
}

// RoundSummary 会话对局汇总
type RoundSummary struct {
	Rounds        int64           `json:"rounds"`
	WinRounds     int64           `json:"win_rounds"`
	BigWins       int64           `json:"big_wins"`
	WildBonuses   int64           `json:"wild_bonuses"`
	MaxMultiplier int             `json:"max_multiplier"`
	TotalStaked   decimal.Decimal `json:"total_staked"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
}

// Net 玩家净输赢
func (s *RoundSummary) Net() decimal.Decimal {
	return s.TotalPaid.Sub(s.TotalStaked)
}

// roundRepo 对局记录仓储实现
type roundRepo struct {
	*BaseRepo
}

// NewRoundRepository 创建对局记录仓储
func NewRoundRepository(db *gorm.DB) RoundRepository {
	return &roundRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Create 保存对局
func (r *roundRepo) Create(ctx context.Context, record *models.RoundRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return apperrors.Wrapf(err, apperrors.ErrDatabaseInsert, "round %s", record.RoundID)
	}
	return nil
}

// FindByRoundID 根据对局ID查找
func (r *roundRepo) FindByRoundID(ctx context.Context, roundID string) (*models.RoundRecord, error) {
	var record models.RoundRecord
	err := r.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		First(&record).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.Newf(apperrors.ErrNotFound, "round %s", roundID)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return &record, nil
}

// List 按时间倒序分页列出会话内的对局
func (r *roundRepo) List(ctx context.Context, sessionID string, p *Pagination) ([]*models.RoundRecord, error) {
	var records []*models.RoundRecord

	// 查询总数
	if err := r.db.WithContext(ctx).
		Model(&models.RoundRecord{}).
		Where("session_id = ?", sessionID).
		Count(&p.Total).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	// 查询数据
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("played_at desc, id desc").
		Scopes(Paginate(p)).
		Find(&records).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return records, nil
}

// Summary 汇总会话内的对局
func (r *roundRepo) Summary(ctx context.Context, sessionID string) (*RoundSummary, error) {
	summary := &RoundSummary{
		TotalStaked: decimal.Zero,
		TotalPaid:   decimal.Zero,
	}

	// 计数类统计交给SQL
	err := r.db.WithContext(ctx).
		Model(&models.RoundRecord{}).
		Where("session_id = ?", sessionID).
		Select(
			"COUNT(*) as rounds",
			"COUNT(CASE WHEN has_any_win THEN 1 END) as win_rounds",
			"COUNT(CASE WHEN is_big_win THEN 1 END) as big_wins",
			"COUNT(CASE WHEN has_wild_bonus THEN 1 END) as wild_bonuses",
			"COALESCE(MAX(highest_multiplier), 0) as max_multiplier",
		).
		Row().Scan(
			&summary.Rounds,
			&summary.WinRounds,
			&summary.BigWins,
			&summary.WildBonuses,
			&summary.MaxMultiplier,
		)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	// 金额以文本保存，在内存中按十进制求和避免浮点误差
	var amounts []struct {
		Stake       decimal.Decimal
		TotalPayout decimal.Decimal
	}
	err = r.db.WithContext(ctx).
		Model(&models.RoundRecord{}).
		Select("stake", "total_payout").
		Where("session_id = ?", sessionID).
		Find(&amounts).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	for _, a := range amounts {
		summary.TotalStaked = summary.TotalStaked.Add(a.Stake)
		summary.TotalPaid = summary.TotalPaid.Add(a.TotalPayout)
	}
	return summary, nil
}
