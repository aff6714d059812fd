package repository

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/wfunc/spider-arena/internal/errors"
	"github.com/wfunc/spider-arena/internal/models"
	"gorm.io/gorm"
)

// BattleRepository 战斗记录仓储接口
// 战斗与回合在结算事务中一次性写入；回合只追加，不修改。
type BattleRepository interface {
	BaseRepository
	CreateTx(tx *gorm.DB, battle *models.Battle, turns []models.BattleTurn) error
	FindByBattleID(ctx context.Context, battleID string) (*models.Battle, error)
	FindByChallengeID(ctx context.Context, challengeID uint) (*models.Battle, error)
	GetTurns(ctx context.Context, battleID string) ([]models.BattleTurn, error)
	MarkRevealed(ctx context.Context, battleID string) error
	ListByUser(ctx context.Context, userID uint, pagination *Pagination) ([]*models.Battle, error)
}

// battleRepo 战斗记录仓储实现
type battleRepo struct {
	*BaseRepo
}

// NewBattleRepository 创建战斗记录仓储
func NewBattleRepository(db *gorm.DB) BattleRepository {
	return &battleRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// CreateTx 在事务中写入战斗记录与全部回合
func (r *battleRepo) CreateTx(tx *gorm.DB, battle *models.Battle, turns []models.BattleTurn) error {
	if err := tx.Create(battle).Error; err != nil {
		return err
	}

	if len(turns) > 0 {
		if err := tx.Create(&turns).Error; err != nil {
			return err
		}
	}

	return nil
}

// WithTx 使用事务
func (r *battleRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &battleRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}

// FindByBattleID 根据战斗ID查找
func (r *battleRepo) FindByBattleID(ctx context.Context, battleID string) (*models.Battle, error) {
	var battle models.Battle
	err := r.db.WithContext(ctx).Where("battle_id = ?", battleID).First(&battle).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrBattleNotFound, "战斗ID: "+battleID)
		}
		return nil, err
	}
	return &battle, nil
}

// FindByChallengeID 根据挑战ID查找战斗记录
func (r *battleRepo) FindByChallengeID(ctx context.Context, challengeID uint) (*models.Battle, error) {
	var battle models.Battle
	err := r.db.WithContext(ctx).Where("challenge_id = ?", challengeID).First(&battle).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.ErrBattleNotFound, "挑战ID: %d", challengeID)
		}
		return nil, err
	}
	return &battle, nil
}

// GetTurns 获取战斗的全部回合（按回合序号升序）
func (r *battleRepo) GetTurns(ctx context.Context, battleID string) ([]models.BattleTurn, error) {
	var turns []models.BattleTurn
	err := r.db.WithContext(ctx).
		Where("battle_id = ?", battleID).
		Order("turn_index ASC").
		Find(&turns).Error
	return turns, err
}

// MarkRevealed 标记战报已回放
func (r *battleRepo) MarkRevealed(ctx context.Context, battleID string) error {
	return r.db.WithContext(ctx).Model(&models.Battle{}).
		Where("battle_id = ?", battleID).
		Updates(map[string]interface{}{
			"revealed":    true,
			"revealed_at": time.Now(),
		}).Error
}

// ListByUser 列出用户参与的战斗（胜负均含）
func (r *battleRepo) ListByUser(ctx context.Context, userID uint, pagination *Pagination) ([]*models.Battle, error) {
	var battles []*models.Battle
	query := r.db.WithContext(ctx).Model(&models.Battle{}).
		Where("winner_user_id = ? OR loser_user_id = ?", userID, userID)

	query.Count(&pagination.Total)

	err := query.
		Scopes(Paginate(pagination)).
		Order("created_at DESC").
		Find(&battles).Error
	return battles, err
}
