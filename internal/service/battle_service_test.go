package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	apperrors "github.com/wfunc/spider-arena/internal/errors"
	"github.com/wfunc/spider-arena/internal/game/battle"
	"github.com/wfunc/spider-arena/internal/models"
	"github.com/wfunc/spider-arena/internal/repository"
)

// BattleServiceTestSuite 战斗服务测试套件
type BattleServiceTestSuite struct {
	suite.Suite
	ctx              context.Context
	db               *gorm.DB
	battleService    BattleService
	challengeService ChallengeService
	challengeRepo    repository.ChallengeRepository
	battleRepo       repository.BattleRepository
	spiderRepo       repository.SpiderRepository
	userRepo         repository.UserRepository
	logger           *zap.Logger

	proposer       *models.User
	accepter       *models.User
	proposerSpider *models.Spider
	accepterSpider *models.Spider
}

func (suite *BattleServiceTestSuite) SetupSuite() {
	suite.ctx = context.Background()
	suite.logger = zap.NewNop()
}

func (suite *BattleServiceTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = db.AutoMigrate(
		&models.User{},
		&models.UserAuth{},
		&models.Spider{},
		&models.Challenge{},
		&models.Battle{},
		&models.BattleTurn{},
	)
	suite.Require().NoError(err)

	suite.db = db
	suite.challengeRepo = repository.NewChallengeRepository(db)
	suite.battleRepo = repository.NewBattleRepository(db)
	suite.spiderRepo = repository.NewSpiderRepository(db)
	suite.userRepo = repository.NewUserRepository(db)
	suite.battleService = NewBattleService(
		db, suite.challengeRepo, suite.battleRepo, suite.spiderRepo, suite.userRepo,
		nil, suite.logger,
	)
	suite.challengeService = NewChallengeService(
		db, suite.challengeRepo, suite.spiderRepo, suite.userRepo,
		24*time.Hour, 7*24*time.Hour, suite.logger,
	)

	suite.proposer = suite.createUser("proposer")
	suite.accepter = suite.createUser("accepter")
	suite.proposerSpider = suite.createSpider(suite.proposer.ID, "发起者的蜘蛛")
	suite.accepterSpider = suite.createSpider(suite.accepter.ID, "接受者的蜘蛛")
}

func (suite *BattleServiceTestSuite) createUser(username string) *models.User {
	user := &models.User{Username: username, Email: username + "@example.com", Status: "active"}
	suite.Require().NoError(suite.db.Create(user).Error)
	return user
}

func (suite *BattleServiceTestSuite) createSpider(ownerID uint, name string) *models.Spider {
	spider := &models.Spider{
		OwnerID: ownerID, Name: name,
		Vitality: 20, Offense: 50, Agility: 30, Resilience: 30, Toxicity: 20, Craft: 15,
	}
	suite.Require().NoError(suite.db.Create(spider).Error)
	return spider
}

// acceptedChallenge 走完整的发起与接受流程并返回挑战
func (suite *BattleServiceTestSuite) acceptedChallenge(seed string) *models.Challenge {
	challenge, err := suite.challengeService.Propose(suite.ctx, &ProposeRequest{
		ProposerID:       suite.proposer.ID,
		ProposerSpiderID: suite.proposerSpider.ID,
	})
	suite.Require().NoError(err)

	accepted, err := suite.challengeService.Accept(suite.ctx, &AcceptRequest{
		ChallengeID:      challenge.ID,
		AccepterID:       suite.accepter.ID,
		AccepterSpiderID: suite.accepterSpider.ID,
		Seed:             seed,
	})
	suite.Require().NoError(err)
	return accepted
}

// 测试完整结算流程：状态推进、战斗落库、归属转移、战绩更新
func (suite *BattleServiceTestSuite) TestResolveChallenge() {
	challenge := suite.acceptedChallenge("fixed-seed-1")

	record, err := suite.battleService.ResolveChallenge(suite.ctx, challenge.ID)
	suite.Require().NoError(err)
	suite.NotEmpty(record.BattleID)
	suite.Equal(challenge.ID, record.ChallengeID)
	suite.Equal("fixed-seed-1", record.Seed)
	suite.NotNil(record.WinnerUserID)
	suite.NotNil(record.LoserUserID)
	suite.NotEqual(*record.WinnerUserID, *record.LoserUserID)
	suite.Greater(record.TurnCount, 0)

	// 挑战进入终态并引用战斗
	resolved, err := suite.challengeRepo.FindByID(suite.ctx, challenge.ID)
	suite.Require().NoError(err)
	suite.Equal(models.ChallengeStatusResolved, resolved.Status)
	suite.Require().NotNil(resolved.BattleID)
	suite.Equal(record.BattleID, *resolved.BattleID)
	suite.Equal(*record.WinnerUserID, *resolved.WinnerID)
	suite.NotNil(resolved.ResolvedAt)

	// 回合落库且按序号连续
	turns, err := suite.battleRepo.GetTurns(suite.ctx, record.BattleID)
	suite.Require().NoError(err)
	suite.Len(turns, record.TurnCount)
	for i, turn := range turns {
		suite.Equal(i+1, turn.TurnIndex)
	}

	// 败方蜘蛛归属转移给胜方
	loserSpider, err := suite.spiderRepo.FindByID(suite.ctx, *record.LoserSpiderID)
	suite.Require().NoError(err)
	suite.Equal(*record.WinnerUserID, loserSpider.OwnerID)

	// 双方战绩各记一笔
	winner, err := suite.userRepo.FindByID(suite.ctx, *record.WinnerUserID)
	suite.Require().NoError(err)
	suite.Equal(1, winner.Wins)
	suite.Equal(0, winner.Losses)

	loser, err := suite.userRepo.FindByID(suite.ctx, *record.LoserUserID)
	suite.Require().NoError(err)
	suite.Equal(0, loser.Wins)
	suite.Equal(1, loser.Losses)
}

// 测试重复结算返回首次结果且没有第二次归属转移
func (suite *BattleServiceTestSuite) TestResolveChallengeIdempotent() {
	challenge := suite.acceptedChallenge("fixed-seed-1")

	first, err := suite.battleService.ResolveChallenge(suite.ctx, challenge.ID)
	suite.Require().NoError(err)

	second, err := suite.battleService.ResolveChallenge(suite.ctx, challenge.ID)
	suite.Require().NoError(err)
	suite.Equal(first.BattleID, second.BattleID)

	// 只存在一条战斗记录
	var count int64
	suite.db.Model(&models.Battle{}).Where("challenge_id = ?", challenge.ID).Count(&count)
	suite.Equal(int64(1), count)

	// 战绩没有重复累计
	winner, err := suite.userRepo.FindByID(suite.ctx, *first.WinnerUserID)
	suite.Require().NoError(err)
	suite.Equal(1, winner.Wins)
}

// 测试未接受的挑战不能结算
func (suite *BattleServiceTestSuite) TestResolveNotAccepted() {
	challenge, err := suite.challengeService.Propose(suite.ctx, &ProposeRequest{
		ProposerID:       suite.proposer.ID,
		ProposerSpiderID: suite.proposerSpider.ID,
	})
	suite.Require().NoError(err)

	_, err = suite.battleService.ResolveChallenge(suite.ctx, challenge.ID)
	suite.True(apperrors.Is(err, apperrors.ErrNotAccepted))

	// 挑战保持开放，未产生任何战斗记录
	found, _ := suite.challengeRepo.FindByID(suite.ctx, challenge.ID)
	suite.Equal(models.ChallengeStatusOpen, found.Status)
}

// 测试已取消的挑战不能结算
func (suite *BattleServiceTestSuite) TestResolveCancelled() {
	challenge, err := suite.challengeService.Propose(suite.ctx, &ProposeRequest{
		ProposerID:       suite.proposer.ID,
		ProposerSpiderID: suite.proposerSpider.ID,
	})
	suite.Require().NoError(err)
	suite.Require().NoError(suite.challengeService.Cancel(suite.ctx, challenge.ID, suite.proposer.ID))

	_, err = suite.battleService.ResolveChallenge(suite.ctx, challenge.ID)
	suite.True(apperrors.Is(err, apperrors.ErrNotAccepted))
}

// 测试落库结果与同种子重新模拟一致
func (suite *BattleServiceTestSuite) TestResolveDeterministic() {
	challenge := suite.acceptedChallenge("fixed-seed-1")

	record, err := suite.battleService.ResolveChallenge(suite.ctx, challenge.ID)
	suite.Require().NoError(err)

	// 用落库前的快照重新模拟
	proposerSnap := &battle.Snapshot{
		SpiderID: suite.proposerSpider.ID, OwnerID: suite.proposer.ID,
		Vitality: 20, Offense: 50, Agility: 30, Resilience: 30, Toxicity: 20, Craft: 15,
	}
	accepterSnap := &battle.Snapshot{
		SpiderID: suite.accepterSpider.ID, OwnerID: suite.accepter.ID,
		Vitality: 20, Offense: 50, Agility: 30, Resilience: 30, Toxicity: 20, Craft: 15,
	}
	result, err := battle.Simulate(battle.DefaultConfig(), proposerSnap, accepterSnap,
		battle.NewSeededSource("fixed-seed-1"))
	suite.Require().NoError(err)

	suite.Equal(result.TurnCount, record.TurnCount)
	suite.Equal(string(result.Outcome), record.Outcome)
	suite.Equal(result.ProposerFinalHP, record.ProposerFinalHP)
	suite.Equal(result.AccepterFinalHP, record.AccepterFinalHP)
	suite.Equal(result.WinnerSnapshot(proposerSnap, accepterSnap).OwnerID, *record.WinnerUserID)

	turns, err := suite.battleRepo.GetTurns(suite.ctx, record.BattleID)
	suite.Require().NoError(err)
	suite.Require().Len(turns, len(result.Turns))
	for i, turn := range result.Turns {
		suite.Equal(turn.AttackRoll, turns[i].AttackRoll)
		suite.Equal(turn.DefenseRoll, turns[i].DefenseRoll)
		suite.Equal(turn.Damage, turns[i].Damage)
		suite.Equal(string(turn.Side), turns[i].Side)
	}
}

// 测试战报回放数据
func (suite *BattleServiceTestSuite) TestGetRevealFeed() {
	challenge := suite.acceptedChallenge("fixed-seed-1")
	record, err := suite.battleService.ResolveChallenge(suite.ctx, challenge.ID)
	suite.Require().NoError(err)

	feed, err := suite.battleService.GetRevealFeed(suite.ctx, record.BattleID)
	suite.Require().NoError(err)
	suite.Equal(record.BattleID, feed.Battle.BattleID)
	suite.Len(feed.Turns, record.TurnCount)

	// 回合缺失视为数据损坏
	suite.Require().NoError(suite.db.
		Where("battle_id = ? AND turn_index = ?", record.BattleID, 1).
		Delete(&models.BattleTurn{}).Error)
	_, err = suite.battleService.GetRevealFeed(suite.ctx, record.BattleID)
	suite.True(apperrors.Is(err, apperrors.ErrBattleCorrupted))
}

// 测试标记已回放
func (suite *BattleServiceTestSuite) TestMarkRevealed() {
	challenge := suite.acceptedChallenge("fixed-seed-1")
	record, err := suite.battleService.ResolveChallenge(suite.ctx, challenge.ID)
	suite.Require().NoError(err)
	suite.False(record.Revealed)

	suite.Require().NoError(suite.battleService.MarkRevealed(suite.ctx, record.BattleID))

	found, err := suite.battleService.GetBattle(suite.ctx, record.BattleID)
	suite.Require().NoError(err)
	suite.True(found.Revealed)
	suite.NotNil(found.RevealedAt)

	err = suite.battleService.MarkRevealed(suite.ctx, "no-such-battle")
	suite.True(apperrors.Is(err, apperrors.ErrBattleNotFound))
}

// 测试用户战斗历史
func (suite *BattleServiceTestSuite) TestListByUser() {
	challenge := suite.acceptedChallenge("fixed-seed-1")
	record, err := suite.battleService.ResolveChallenge(suite.ctx, challenge.ID)
	suite.Require().NoError(err)

	// 双方都能查到这场战斗
	list, total, err := suite.battleService.ListByUser(suite.ctx, suite.proposer.ID, 1, 10)
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
	suite.Equal(record.BattleID, list[0].BattleID)

	list, total, err = suite.battleService.ListByUser(suite.ctx, suite.accepter.ID, 1, 10)
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
	suite.Len(list, 1)

	// 局外人查不到
	_, total, err = suite.battleService.ListByUser(suite.ctx, 9999, 1, 10)
	suite.Require().NoError(err)
	suite.Equal(int64(0), total)
}

// TestBattleServiceTestSuite 运行测试套件
func TestBattleServiceTestSuite(t *testing.T) {
	suite.Run(t, new(BattleServiceTestSuite))
}
