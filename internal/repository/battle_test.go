package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	apperrors "github.com/wfunc/spider-arena/internal/errors"
	"github.com/wfunc/spider-arena/internal/models"
	"gorm.io/gorm"
)

// BattleRepositoryTestSuite 战斗记录仓储测试套件
type BattleRepositoryTestSuite struct {
	suite.Suite
	db         *gorm.DB
	battleRepo BattleRepository
}

func (suite *BattleRepositoryTestSuite) SetupTest() {
	suite.db = SetupTestDB()
	suite.battleRepo = NewBattleRepository(suite.db)
}

func (suite *BattleRepositoryTestSuite) TearDownTest() {
	CleanupTestDB(suite.db)
}

// 创建一条测试战斗记录与回合
func (suite *BattleRepositoryTestSuite) createTestBattle(challengeID uint) *models.Battle {
	winnerUser := uint(10)
	winnerSpider := uint(1)
	loserUser := uint(20)
	loserSpider := uint(2)

	battle := &models.Battle{
		BattleID:         uuid.NewString(),
		ChallengeID:      challengeID,
		Seed:             "test-seed",
		ProposerSnapshot: models.JSONMap{"spider_id": 1, "offense": 50},
		AccepterSnapshot: models.JSONMap{"spider_id": 2, "offense": 40},
		Outcome:          models.BattleOutcomeKnockout,
		WinnerUserID:     &winnerUser,
		WinnerSpiderID:   &winnerSpider,
		LoserUserID:      &loserUser,
		LoserSpiderID:    &loserSpider,
		TurnCount:        3,
		ProposerFinalHP:  42,
		AccepterFinalHP:  0,
	}

	turns := []models.BattleTurn{
		{BattleID: battle.BattleID, TurnIndex: 1, Side: models.SideProposer, ActionKind: models.ActionKindAttack, AttackRoll: 15, DefenseRoll: 3, Damage: 20, DefenderHPBefore: 60, DefenderHPAfter: 40},
		{BattleID: battle.BattleID, TurnIndex: 2, Side: models.SideAccepter, ActionKind: models.ActionKindAttack, AttackRoll: 5, DefenseRoll: 18, Dodged: true, Damage: 0, DefenderHPBefore: 70, DefenderHPAfter: 70},
		{BattleID: battle.BattleID, TurnIndex: 3, Side: models.SideProposer, ActionKind: models.ActionKindSpecial, AttackRoll: 20, DefenseRoll: 2, Critical: true, Damage: 40, DefenderHPBefore: 40, DefenderHPAfter: 0},
	}

	err := suite.db.Transaction(func(tx *gorm.DB) error {
		return suite.battleRepo.CreateTx(tx, battle, turns)
	})
	suite.Require().NoError(err)
	return battle
}

// TestBattleRepository_CreateAndFind 测试写入与查找
func (suite *BattleRepositoryTestSuite) TestBattleRepository_CreateAndFind() {
	ctx := context.Background()
	battle := suite.createTestBattle(1)

	found, err := suite.battleRepo.FindByBattleID(ctx, battle.BattleID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), battle.Seed, found.Seed)
	assert.Equal(suite.T(), 3, found.TurnCount)
	assert.Equal(suite.T(), uint(10), *found.WinnerUserID)

	byChallenge, err := suite.battleRepo.FindByChallengeID(ctx, 1)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), battle.BattleID, byChallenge.BattleID)

	_, err = suite.battleRepo.FindByBattleID(ctx, "missing")
	assert.True(suite.T(), apperrors.Is(err, apperrors.ErrBattleNotFound))
}

// TestBattleRepository_GetTurns 测试回合按序号升序返回
func (suite *BattleRepositoryTestSuite) TestBattleRepository_GetTurns() {
	ctx := context.Background()
	battle := suite.createTestBattle(2)

	turns, err := suite.battleRepo.GetTurns(ctx, battle.BattleID)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), turns, 3)

	for i, turn := range turns {
		assert.Equal(suite.T(), i+1, turn.TurnIndex)
	}

	// 被闪避的回合伤害为0
	assert.True(suite.T(), turns[1].Dodged)
	assert.Zero(suite.T(), turns[1].Damage)
}

// TestBattleRepository_MarkRevealed 测试标记回放
func (suite *BattleRepositoryTestSuite) TestBattleRepository_MarkRevealed() {
	ctx := context.Background()
	battle := suite.createTestBattle(3)

	err := suite.battleRepo.MarkRevealed(ctx, battle.BattleID)
	assert.NoError(suite.T(), err)

	found, _ := suite.battleRepo.FindByBattleID(ctx, battle.BattleID)
	assert.True(suite.T(), found.Revealed)
	assert.NotNil(suite.T(), found.RevealedAt)
	assert.WithinDuration(suite.T(), time.Now(), *found.RevealedAt, 5*time.Second)
}

// TestBattleRepository_ListByUser 测试按用户查询战斗历史
func (suite *BattleRepositoryTestSuite) TestBattleRepository_ListByUser() {
	ctx := context.Background()
	suite.createTestBattle(4)
	suite.createTestBattle(5)

	pagination := NewPagination(1, 10)
	asWinner, err := suite.battleRepo.ListByUser(ctx, 10, pagination)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), asWinner, 2)

	pagination = NewPagination(1, 10)
	asLoser, err := suite.battleRepo.ListByUser(ctx, 20, pagination)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), asLoser, 2)

	pagination = NewPagination(1, 10)
	none, err := suite.battleRepo.ListByUser(ctx, 30, pagination)
	assert.NoError(suite.T(), err)
	assert.Empty(suite.T(), none)
}

// TestBattleRepositoryTestSuite 运行测试套件
func TestBattleRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(BattleRepositoryTestSuite))
}
