package battle

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

// SimulatorTestSuite 回合模拟器测试套件
type SimulatorTestSuite struct {
	suite.Suite
	cfg *Config
}

func (suite *SimulatorTestSuite) SetupTest() {
	suite.cfg = DefaultConfig()
}

func (suite *SimulatorTestSuite) simulate(seed string) *Result {
	proposer := &Snapshot{SpiderID: 1, OwnerID: 10, Name: "alpha", Vitality: 20, Offense: 50, Agility: 30, Resilience: 30, Toxicity: 20, Craft: 15}
	accepter := &Snapshot{SpiderID: 2, OwnerID: 20, Name: "beta", Vitality: 25, Offense: 40, Agility: 25, Resilience: 35, Toxicity: 15, Craft: 20}

	result, err := Simulate(suite.cfg, proposer, accepter, NewSeededSource(seed))
	suite.Require().NoError(err)
	return result
}

// 测试同一种子产生完全相同的战斗
func (suite *SimulatorTestSuite) TestDeterminism() {
	first := suite.simulate("fixed-seed-1")
	second := suite.simulate("fixed-seed-1")

	suite.Equal(first.Winner, second.Winner)
	suite.Equal(first.Outcome, second.Outcome)
	suite.Equal(first.TurnCount, second.TurnCount)
	suite.Equal(first.ProposerFinalHP, second.ProposerFinalHP)
	suite.Equal(first.AccepterFinalHP, second.AccepterFinalHP)
	suite.Require().Equal(len(first.Turns), len(second.Turns))
	for i := range first.Turns {
		suite.Equal(first.Turns[i], second.Turns[i])
	}
}

// 测试回合上限内必然终止
func (suite *SimulatorTestSuite) TestBoundedTermination() {
	seeds := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, seed := range seeds {
		result := suite.simulate(seed)
		suite.LessOrEqual(result.TurnCount, suite.cfg.MaxTurns)
		suite.Len(result.Turns, result.TurnCount)
		suite.NotEmpty(result.Winner)
	}
}

// 测试回合索引连续递增且双方交替行动
func (suite *SimulatorTestSuite) TestTurnOrdering() {
	result := suite.simulate("ordering-seed")

	for i, turn := range result.Turns {
		suite.Equal(i+1, turn.Index)

		// 发起方在奇数回合行动
		if turn.Index%2 == 1 {
			suite.Equal(SideProposer, turn.Side)
		} else {
			suite.Equal(SideAccepter, turn.Side)
		}
	}
}

// 测试血量单调下降且不为负
func (suite *SimulatorTestSuite) TestHPMonotonicity() {
	result := suite.simulate("hp-seed")

	proposerHP := result.ProposerMaxHP
	accepterHP := result.AccepterMaxHP

	for _, turn := range result.Turns {
		suite.LessOrEqual(turn.DefenderHPAfter, turn.DefenderHPBefore)
		suite.GreaterOrEqual(turn.DefenderHPAfter, 0)

		if turn.Side == SideProposer {
			suite.Equal(accepterHP, turn.DefenderHPBefore)
			accepterHP = turn.DefenderHPAfter
		} else {
			suite.Equal(proposerHP, turn.DefenderHPBefore)
			proposerHP = turn.DefenderHPAfter
		}

		// 被闪避时无伤害，命中时不低于最低伤害
		if turn.Dodged {
			suite.Zero(turn.Damage)
		} else {
			suite.GreaterOrEqual(turn.Damage, suite.cfg.MinDamage)
		}
	}

	suite.Equal(proposerHP, result.ProposerFinalHP)
	suite.Equal(accepterHP, result.AccepterFinalHP)
}

// 测试击倒终局：最后一回合防守方血量归零
func (suite *SimulatorTestSuite) TestKnockoutEndsBattle() {
	result := suite.simulate("knockout-seed")
	if result.Outcome != OutcomeKnockout {
		suite.T().Skip("该种子未产生击倒终局")
	}

	last := result.Turns[len(result.Turns)-1]
	suite.Zero(last.DefenderHPAfter)
	suite.Equal(last.Side, result.Winner)

	// 击倒前的所有回合双方血量都为正
	for _, turn := range result.Turns[:len(result.Turns)-1] {
		suite.Greater(turn.DefenderHPAfter, 0)
	}
}

// 测试特殊攻击节奏：每方第3次行动为特殊攻击
func (suite *SimulatorTestSuite) TestSpecialCadence() {
	result := suite.simulate("cadence-seed")

	proposerActions := 0
	accepterActions := 0
	for _, turn := range result.Turns {
		var count int
		if turn.Side == SideProposer {
			proposerActions++
			count = proposerActions
		} else {
			accepterActions++
			count = accepterActions
		}

		if count%suite.cfg.SpecialInterval == 0 {
			suite.Equal(ActionSpecial, turn.Action)
		} else {
			suite.Equal(ActionAttack, turn.Action)
		}
	}
}

// 测试强攻高敏一方战胜高防低攻一方
func (suite *SimulatorTestSuite) TestStatGradient() {
	strong := &Snapshot{SpiderID: 1, OwnerID: 10, Name: "A", Vitality: 30, Offense: 80, Agility: 40, Resilience: 20, Toxicity: 10, Craft: 10}
	weak := &Snapshot{SpiderID: 2, OwnerID: 20, Name: "B", Vitality: 15, Offense: 20, Agility: 10, Resilience: 80, Toxicity: 10, Craft: 10}

	result, err := Simulate(suite.cfg, strong, weak, NewSeededSource("fixed-seed-1"))
	suite.Require().NoError(err)
	suite.Equal(SideProposer, result.Winner)
	suite.Equal(OutcomeKnockout, result.Outcome)

	// 对调双方后胜者换边
	reversed, err := Simulate(suite.cfg, weak, strong, NewSeededSource("fixed-seed-1"))
	suite.Require().NoError(err)
	suite.Equal(SideAccepter, reversed.Winner)
}

// 测试非法属性被拒绝
func (suite *SimulatorTestSuite) TestInvalidStatsRejected() {
	valid := &Snapshot{SpiderID: 1, OwnerID: 10, Vitality: 20, Offense: 50, Agility: 30, Resilience: 30, Toxicity: 20, Craft: 15}
	invalid := &Snapshot{SpiderID: 2, OwnerID: 20, Vitality: 0, Offense: 50, Agility: 30, Resilience: 30, Toxicity: 20, Craft: 15}

	_, err := Simulate(suite.cfg, valid, invalid, NewSeededSource("s"))
	suite.ErrorIs(err, ErrInvalidStats)

	_, err = Simulate(suite.cfg, invalid, valid, NewSeededSource("s"))
	suite.ErrorIs(err, ErrInvalidStats)

	negative := &Snapshot{SpiderID: 3, OwnerID: 30, Vitality: 20, Offense: -1, Agility: 30, Resilience: 30, Toxicity: 20, Craft: 15}
	_, err = Simulate(suite.cfg, valid, negative, NewSeededSource("s"))
	suite.ErrorIs(err, ErrInvalidStats)
}

// 测试非法配置被拒绝
func (suite *SimulatorTestSuite) TestInvalidConfigRejected() {
	valid := &Snapshot{SpiderID: 1, OwnerID: 10, Vitality: 20, Offense: 50, Agility: 30, Resilience: 30, Toxicity: 20, Craft: 15}

	bad := DefaultConfig()
	bad.MaxTurns = 0
	_, err := Simulate(bad, valid, valid, NewSeededSource("s"))
	suite.ErrorIs(err, ErrInvalidConfig)

	bad = DefaultConfig()
	bad.CritThreshold = 99
	_, err = Simulate(bad, valid, valid, NewSeededSource("s"))
	suite.ErrorIs(err, ErrInvalidConfig)
}

// 测试回合上限判定顺序：血量比例 > 战力 > 发起方
func (suite *SimulatorTestSuite) TestTurnCapTieBreaks() {
	// 血量比例占优者胜
	suite.Equal(SideProposer, decideOnTurnCap(50, 100, 100, 20, 100, 200))
	suite.Equal(SideAccepter, decideOnTurnCap(20, 100, 200, 50, 100, 100))

	// 比例持平比战力
	suite.Equal(SideAccepter, decideOnTurnCap(50, 100, 100, 50, 100, 200))
	suite.Equal(SideProposer, decideOnTurnCap(50, 100, 200, 50, 100, 100))

	// 完全持平判发起方胜
	suite.Equal(SideProposer, decideOnTurnCap(50, 100, 150, 50, 100, 150))

	// 不同血量上限按比例交叉比较
	suite.Equal(SideProposer, decideOnTurnCap(60, 100, 100, 30, 60, 100))
}

// TestSimulatorTestSuite 运行测试套件
func TestSimulatorTestSuite(t *testing.T) {
	suite.Run(t, new(SimulatorTestSuite))
}
