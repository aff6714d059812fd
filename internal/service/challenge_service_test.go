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
	"github.com/wfunc/spider-arena/internal/models"
	"github.com/wfunc/spider-arena/internal/repository"
)

// ChallengeServiceTestSuite 挑战服务测试套件
type ChallengeServiceTestSuite struct {
	suite.Suite
	ctx              context.Context
	db               *gorm.DB
	challengeService ChallengeService
	challengeRepo    repository.ChallengeRepository
	spiderRepo       repository.SpiderRepository
	userRepo         repository.UserRepository
	logger           *zap.Logger

	proposer       *models.User
	accepter       *models.User
	proposerSpider *models.Spider
	accepterSpider *models.Spider
}

func (suite *ChallengeServiceTestSuite) SetupSuite() {
	suite.ctx = context.Background()
	suite.logger = zap.NewNop()
}

func (suite *ChallengeServiceTestSuite) SetupTest() {
	// 每个测试创建新的内存数据库（避免并发问题）
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
	suite.spiderRepo = repository.NewSpiderRepository(db)
	suite.userRepo = repository.NewUserRepository(db)
	suite.challengeService = NewChallengeService(
		db, suite.challengeRepo, suite.spiderRepo, suite.userRepo,
		24*time.Hour, 7*24*time.Hour, suite.logger,
	)

	// 构造双方用户与蜘蛛
	suite.proposer = suite.createUser("proposer")
	suite.accepter = suite.createUser("accepter")
	suite.proposerSpider = suite.createSpider(suite.proposer.ID, "发起者的蜘蛛")
	suite.accepterSpider = suite.createSpider(suite.accepter.ID, "接受者的蜘蛛")
}

func (suite *ChallengeServiceTestSuite) createUser(username string) *models.User {
	user := &models.User{Username: username, Email: username + "@example.com", Status: "active"}
	suite.Require().NoError(suite.db.Create(user).Error)
	return user
}

func (suite *ChallengeServiceTestSuite) createSpider(ownerID uint, name string) *models.Spider {
	spider := &models.Spider{
		OwnerID: ownerID, Name: name,
		Vitality: 20, Offense: 50, Agility: 30, Resilience: 30, Toxicity: 20, Craft: 15,
	}
	suite.Require().NoError(suite.db.Create(spider).Error)
	return spider
}

// 测试发起挑战
func (suite *ChallengeServiceTestSuite) TestPropose() {
	challenge, err := suite.challengeService.Propose(suite.ctx, &ProposeRequest{
		ProposerID:       suite.proposer.ID,
		ProposerSpiderID: suite.proposerSpider.ID,
		Message:          "来战",
	})
	suite.NoError(err)
	suite.Equal(models.ChallengeStatusOpen, challenge.Status)
	suite.True(challenge.ExpiresAt.After(time.Now()))
	suite.Nil(challenge.TargetID)
}

// 测试不能用别人的蜘蛛发起挑战
func (suite *ChallengeServiceTestSuite) TestProposeNotOwnedSpider() {
	_, err := suite.challengeService.Propose(suite.ctx, &ProposeRequest{
		ProposerID:       suite.proposer.ID,
		ProposerSpiderID: suite.accepterSpider.ID,
	})
	suite.True(apperrors.Is(err, apperrors.ErrSpiderNotOwned))
}

// 测试不能指定自己为挑战对象
func (suite *ChallengeServiceTestSuite) TestProposeSelfTarget() {
	_, err := suite.challengeService.Propose(suite.ctx, &ProposeRequest{
		ProposerID:       suite.proposer.ID,
		ProposerSpiderID: suite.proposerSpider.ID,
		TargetID:         &suite.proposer.ID,
	})
	suite.True(apperrors.Is(err, apperrors.ErrSelfChallenge))
}

// 测试同一只蜘蛛不能同时有两个开放挑战
func (suite *ChallengeServiceTestSuite) TestProposeDuplicateOpen() {
	_, err := suite.challengeService.Propose(suite.ctx, &ProposeRequest{
		ProposerID:       suite.proposer.ID,
		ProposerSpiderID: suite.proposerSpider.ID,
	})
	suite.NoError(err)

	_, err = suite.challengeService.Propose(suite.ctx, &ProposeRequest{
		ProposerID:       suite.proposer.ID,
		ProposerSpiderID: suite.proposerSpider.ID,
	})
	suite.True(apperrors.Is(err, apperrors.ErrAlreadyExists))
}

// 测试接受挑战
func (suite *ChallengeServiceTestSuite) TestAccept() {
	challenge, err := suite.challengeService.Propose(suite.ctx, &ProposeRequest{
		ProposerID:       suite.proposer.ID,
		ProposerSpiderID: suite.proposerSpider.ID,
	})
	suite.Require().NoError(err)

	accepted, err := suite.challengeService.Accept(suite.ctx, &AcceptRequest{
		ChallengeID:      challenge.ID,
		AccepterID:       suite.accepter.ID,
		AccepterSpiderID: suite.accepterSpider.ID,
	})
	suite.NoError(err)
	suite.Equal(models.ChallengeStatusAccepted, accepted.Status)
	suite.Equal(suite.accepter.ID, *accepted.AccepterID)
	suite.NotEmpty(accepted.Seed) // 未提供种子时自动生成
	suite.NotNil(accepted.AcceptedAt)
}

// 测试提供的种子被保留
func (suite *ChallengeServiceTestSuite) TestAcceptKeepsProvidedSeed() {
	challenge, _ := suite.challengeService.Propose(suite.ctx, &ProposeRequest{
		ProposerID:       suite.proposer.ID,
		ProposerSpiderID: suite.proposerSpider.ID,
	})

	accepted, err := suite.challengeService.Accept(suite.ctx, &AcceptRequest{
		ChallengeID:      challenge.ID,
		AccepterID:       suite.accepter.ID,
		AccepterSpiderID: suite.accepterSpider.ID,
		Seed:             "fixed-seed-1",
	})
	suite.NoError(err)
	suite.Equal("fixed-seed-1", accepted.Seed)
}

// 测试不能接受自己的挑战
func (suite *ChallengeServiceTestSuite) TestAcceptOwnChallenge() {
	challenge, _ := suite.challengeService.Propose(suite.ctx, &ProposeRequest{
		ProposerID:       suite.proposer.ID,
		ProposerSpiderID: suite.proposerSpider.ID,
	})

	secondSpider := suite.createSpider(suite.proposer.ID, "替补")
	_, err := suite.challengeService.Accept(suite.ctx, &AcceptRequest{
		ChallengeID:      challenge.ID,
		AccepterID:       suite.proposer.ID,
		AccepterSpiderID: secondSpider.ID,
	})
	suite.True(apperrors.Is(err, apperrors.ErrSelfChallenge))
}

// 测试指定挑战只能由指定对象接受
func (suite *ChallengeServiceTestSuite) TestAcceptTargetMismatch() {
	third := suite.createUser("third")
	thirdSpider := suite.createSpider(third.ID, "第三者")

	challenge, err := suite.challengeService.Propose(suite.ctx, &ProposeRequest{
		ProposerID:       suite.proposer.ID,
		ProposerSpiderID: suite.proposerSpider.ID,
		TargetID:         &suite.accepter.ID,
	})
	suite.Require().NoError(err)

	_, err = suite.challengeService.Accept(suite.ctx, &AcceptRequest{
		ChallengeID:      challenge.ID,
		AccepterID:       third.ID,
		AccepterSpiderID: thirdSpider.ID,
	})
	suite.True(apperrors.Is(err, apperrors.ErrTargetMismatch))
}

// 测试过期挑战不能被接受
func (suite *ChallengeServiceTestSuite) TestAcceptExpired() {
	challenge := &models.Challenge{
		ProposerID:       suite.proposer.ID,
		ProposerSpiderID: suite.proposerSpider.ID,
		Status:           models.ChallengeStatusOpen,
		ExpiresAt:        time.Now().Add(-1 * time.Hour),
	}
	suite.Require().NoError(suite.db.Create(challenge).Error)

	_, err := suite.challengeService.Accept(suite.ctx, &AcceptRequest{
		ChallengeID:      challenge.ID,
		AccepterID:       suite.accepter.ID,
		AccepterSpiderID: suite.accepterSpider.ID,
	})
	suite.True(apperrors.Is(err, apperrors.ErrChallengeExpired))
}

// 测试重复接受得到冲突
func (suite *ChallengeServiceTestSuite) TestAcceptTwiceConflicts() {
	challenge, _ := suite.challengeService.Propose(suite.ctx, &ProposeRequest{
		ProposerID:       suite.proposer.ID,
		ProposerSpiderID: suite.proposerSpider.ID,
	})

	_, err := suite.challengeService.Accept(suite.ctx, &AcceptRequest{
		ChallengeID:      challenge.ID,
		AccepterID:       suite.accepter.ID,
		AccepterSpiderID: suite.accepterSpider.ID,
	})
	suite.Require().NoError(err)

	third := suite.createUser("third2")
	thirdSpider := suite.createSpider(third.ID, "晚到者")
	_, err = suite.challengeService.Accept(suite.ctx, &AcceptRequest{
		ChallengeID:      challenge.ID,
		AccepterID:       third.ID,
		AccepterSpiderID: thirdSpider.ID,
	})
	suite.Error(err)
	suite.True(apperrors.IsConflict(err))
}

// 测试取消挑战
func (suite *ChallengeServiceTestSuite) TestCancel() {
	challenge, _ := suite.challengeService.Propose(suite.ctx, &ProposeRequest{
		ProposerID:       suite.proposer.ID,
		ProposerSpiderID: suite.proposerSpider.ID,
	})

	// 非发起方不能取消
	err := suite.challengeService.Cancel(suite.ctx, challenge.ID, suite.accepter.ID)
	suite.True(apperrors.Is(err, apperrors.ErrPermissionDenied))

	// 发起方可以取消
	err = suite.challengeService.Cancel(suite.ctx, challenge.ID, suite.proposer.ID)
	suite.NoError(err)

	found, _ := suite.challengeService.Get(suite.ctx, challenge.ID)
	suite.Equal(models.ChallengeStatusCancelled, found.Status)

	// 已取消的挑战不能再取消
	err = suite.challengeService.Cancel(suite.ctx, challenge.ID, suite.proposer.ID)
	suite.True(apperrors.IsConflict(err))
}

// 测试开放列表排除过期挑战
func (suite *ChallengeServiceTestSuite) TestListOpenExcludesExpired() {
	_, err := suite.challengeService.Propose(suite.ctx, &ProposeRequest{
		ProposerID:       suite.proposer.ID,
		ProposerSpiderID: suite.proposerSpider.ID,
	})
	suite.Require().NoError(err)

	// 状态列仍为open但已过期
	stale := &models.Challenge{
		ProposerID:       suite.accepter.ID,
		ProposerSpiderID: suite.accepterSpider.ID,
		Status:           models.ChallengeStatusOpen,
		ExpiresAt:        time.Now().Add(-1 * time.Minute),
	}
	suite.Require().NoError(suite.db.Create(stale).Error)

	list, total, err := suite.challengeService.ListOpen(suite.ctx, 1, 10)
	suite.NoError(err)
	suite.Len(list, 1)
	suite.Equal(int64(1), total)
}

// 测试批量过期
func (suite *ChallengeServiceTestSuite) TestExpireStale() {
	stale := &models.Challenge{
		ProposerID:       suite.proposer.ID,
		ProposerSpiderID: suite.proposerSpider.ID,
		Status:           models.ChallengeStatusOpen,
		ExpiresAt:        time.Now().Add(-1 * time.Hour),
	}
	suite.Require().NoError(suite.db.Create(stale).Error)

	count, err := suite.challengeService.ExpireStale(suite.ctx)
	suite.NoError(err)
	suite.Equal(int64(1), count)

	found, _ := suite.challengeService.Get(suite.ctx, stale.ID)
	suite.Equal(models.ChallengeStatusExpired, found.Status)
}

// TestChallengeServiceTestSuite 运行测试套件
func TestChallengeServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ChallengeServiceTestSuite))
}
