package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/wfunc/spider-arena/internal/errors"
	"github.com/wfunc/spider-arena/internal/game/battle"
	"github.com/wfunc/spider-arena/internal/models"
	"github.com/wfunc/spider-arena/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// battleService 战斗服务实现
type battleService struct {
	db            *gorm.DB
	challengeRepo repository.ChallengeRepository
	battleRepo    repository.BattleRepository
	spiderRepo    repository.SpiderRepository
	userRepo      repository.UserRepository
	cfg           *battle.Config
	log           *zap.Logger
}

// NewBattleService 创建战斗服务
func NewBattleService(
	db *gorm.DB,
	challengeRepo repository.ChallengeRepository,
	battleRepo repository.BattleRepository,
	spiderRepo repository.SpiderRepository,
	userRepo repository.UserRepository,
	cfg *battle.Config,
	log *zap.Logger,
) BattleService {
	if cfg == nil {
		cfg = battle.DefaultConfig()
	}
	return &battleService{
		db:            db,
		challengeRepo: challengeRepo,
		battleRepo:    battleRepo,
		spiderRepo:    spiderRepo,
		userRepo:      userRepo,
		cfg:           cfg,
		log:           log,
	}
}

// ResolveChallenge 结算已接受的挑战
// 模拟是纯计算，先在内存中跑到终局，再用单个事务落库：
// accepted->resolved的条件更新、战斗与回合写入、归属转移、战绩更新
// 要么全部生效要么全部回滚。重复调用以及并发竞争的败方
// 都会拿到首次结算落库的同一结果。
func (s *battleService) ResolveChallenge(ctx context.Context, challengeID uint) (*models.Battle, error) {
	challenge, err := s.challengeRepo.FindByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	// 已结算：返回落库结果，幂等
	if challenge.Status == models.ChallengeStatusResolved {
		return s.battleRepo.FindByChallengeID(ctx, challengeID)
	}

	if challenge.Status != models.ChallengeStatusAccepted {
		return nil, apperrors.Newf(apperrors.ErrNotAccepted,
			"挑战ID: %d, 当前状态: %s", challengeID, challenge.Status)
	}

	if challenge.Seed == "" {
		return nil, apperrors.Newf(apperrors.ErrInvalidSeed, "挑战ID: %d", challengeID)
	}

	// 读取双方蜘蛛；被删除的参战方是致命错误，不产生任何变更
	proposerSpider, err := s.spiderRepo.FindByID(ctx, challenge.ProposerSpiderID)
	if err != nil {
		return nil, err
	}
	accepterSpider, err := s.spiderRepo.FindByID(ctx, *challenge.AccepterSpiderID)
	if err != nil {
		return nil, err
	}

	proposerSnap := toSnapshot(proposerSpider)
	accepterSnap := toSnapshot(accepterSpider)

	result, err := battle.Simulate(s.cfg, proposerSnap, accepterSnap,
		battle.NewSeededSource(challenge.Seed))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInvalidStats)
	}

	winnerSnap := result.WinnerSnapshot(proposerSnap, accepterSnap)
	loserSnap := result.LoserSnapshot(proposerSnap, accepterSnap)

	record := buildBattleRecord(challenge, result, proposerSnap, accepterSnap)
	turns := buildTurnRecords(record.BattleID, result.Turns)

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		// 条件更新是唯一的推进点：竞争败方在这里失败并整体回滚
		if err := s.challengeRepo.TransitionTx(tx, challengeID,
			models.ChallengeStatusAccepted, models.ChallengeStatusResolved,
			map[string]interface{}{
				"battle_id":   record.BattleID,
				"winner_id":   winnerSnap.OwnerID,
				"loser_id":    loserSnap.OwnerID,
				"resolved_at": now,
			}); err != nil {
			return err
		}

		if err := s.battleRepo.CreateTx(tx, record, turns); err != nil {
			return err
		}

		// 败方蜘蛛归属转移给胜方
		if err := s.spiderRepo.TransferOwnership(tx,
			loserSnap.SpiderID, loserSnap.OwnerID, winnerSnap.OwnerID); err != nil {
			return err
		}

		if err := s.spiderRepo.RecordBattleResult(tx,
			winnerSnap.SpiderID, loserSnap.SpiderID); err != nil {
			return err
		}

		return s.userRepo.RecordBattleResult(tx, winnerSnap.OwnerID, loserSnap.OwnerID)
	})

	if err != nil {
		// 竞争败方：首次结算已经（或正在）落库，读回它的结果
		if apperrors.Is(err, apperrors.ErrChallengeConflict) {
			if existing, findErr := s.battleRepo.FindByChallengeID(ctx, challengeID); findErr == nil {
				return existing, nil
			}
			return nil, apperrors.Newf(apperrors.ErrAlreadyResolved, "挑战ID: %d", challengeID)
		}
		s.log.Error("结算事务失败", zap.Error(err), zap.Uint("challenge_id", challengeID))
		return nil, apperrors.Wrap(err, apperrors.ErrTransaction)
	}

	s.log.Info("挑战结算完成",
		zap.Uint("challenge_id", challengeID),
		zap.String("battle_id", record.BattleID),
		zap.Uint("winner_user_id", winnerSnap.OwnerID),
		zap.Uint("loser_user_id", loserSnap.OwnerID),
		zap.Int("turn_count", result.TurnCount),
		zap.String("outcome", string(result.Outcome)),
	)
	return record, nil
}

// GetBattle 查询战斗记录
func (s *battleService) GetBattle(ctx context.Context, battleID string) (*models.Battle, error) {
	return s.battleRepo.FindByBattleID(ctx, battleID)
}

// GetRevealFeed 获取战报回放数据（回合按序号升序）
func (s *battleService) GetRevealFeed(ctx context.Context, battleID string) (*RevealFeed, error) {
	record, err := s.battleRepo.FindByBattleID(ctx, battleID)
	if err != nil {
		return nil, err
	}

	turns, err := s.battleRepo.GetTurns(ctx, battleID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	// 回合数与记录不一致说明数据损坏
	if len(turns) != record.TurnCount {
		return nil, apperrors.Newf(apperrors.ErrBattleCorrupted,
			"战斗ID: %s, 期望回合: %d, 实际回合: %d", battleID, record.TurnCount, len(turns))
	}

	return &RevealFeed{Battle: record, Turns: turns}, nil
}

// MarkRevealed 标记战报已回放
func (s *battleService) MarkRevealed(ctx context.Context, battleID string) error {
	if _, err := s.battleRepo.FindByBattleID(ctx, battleID); err != nil {
		return err
	}
	return s.battleRepo.MarkRevealed(ctx, battleID)
}

// ListByUser 查询用户的战斗历史
func (s *battleService) ListByUser(ctx context.Context, userID uint, page, pageSize int) ([]*models.Battle, int64, error) {
	pagination := repository.NewPagination(page, pageSize)
	battles, err := s.battleRepo.ListByUser(ctx, userID, pagination)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return battles, pagination.Total, nil
}

// toSnapshot 从蜘蛛记录生成参战快照
func toSnapshot(spider *models.Spider) *battle.Snapshot {
	return &battle.Snapshot{
		SpiderID:   spider.ID,
		OwnerID:    spider.OwnerID,
		Name:       spider.Name,
		Vitality:   spider.Vitality,
		Offense:    spider.Offense,
		Agility:    spider.Agility,
		Resilience: spider.Resilience,
		Toxicity:   spider.Toxicity,
		Craft:      spider.Craft,
	}
}

// snapshotMap 快照落库格式
func snapshotMap(s *battle.Snapshot) models.JSONMap {
	return models.JSONMap{
		"spider_id":  s.SpiderID,
		"owner_id":   s.OwnerID,
		"name":       s.Name,
		"vitality":   s.Vitality,
		"offense":    s.Offense,
		"agility":    s.Agility,
		"resilience": s.Resilience,
		"toxicity":   s.Toxicity,
		"craft":      s.Craft,
	}
}

// buildBattleRecord 由模拟结果构造战斗记录
func buildBattleRecord(challenge *models.Challenge, result *battle.Result, proposer, accepter *battle.Snapshot) *models.Battle {
	winner := result.WinnerSnapshot(proposer, accepter)
	loser := result.LoserSnapshot(proposer, accepter)

	return &models.Battle{
		BattleID:         uuid.NewString(),
		ChallengeID:      challenge.ID,
		Seed:             challenge.Seed,
		ProposerSnapshot: snapshotMap(proposer),
		AccepterSnapshot: snapshotMap(accepter),
		Outcome:          string(result.Outcome),
		WinnerUserID:     &winner.OwnerID,
		WinnerSpiderID:   &winner.SpiderID,
		LoserUserID:      &loser.OwnerID,
		LoserSpiderID:    &loser.SpiderID,
		TurnCount:        result.TurnCount,
		ProposerFinalHP:  result.ProposerFinalHP,
		AccepterFinalHP:  result.AccepterFinalHP,
	}
}

// buildTurnRecords 由模拟回合构造落库回合
func buildTurnRecords(battleID string, turns []battle.Turn) []models.BattleTurn {
	records := make([]models.BattleTurn, 0, len(turns))
	for _, t := range turns {
		records = append(records, models.BattleTurn{
			BattleID:         battleID,
			TurnIndex:        t.Index,
			Side:             string(t.Side),
			ActionKind:       string(t.Action),
			AttackRoll:       t.AttackRoll,
			DefenseRoll:      t.DefenseRoll,
			Dodged:           t.Dodged,
			Critical:         t.Critical,
			Damage:           t.Damage,
			DefenderHPBefore: t.DefenderHPBefore,
			DefenderHPAfter:  t.DefenderHPAfter,
		})
	}
	return records
}
