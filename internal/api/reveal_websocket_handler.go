package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/wfunc/spider-arena/internal/config"
	"github.com/wfunc/spider-arena/internal/service"
	"go.uber.org/zap"
)

// RevealWebSocketHandler 战报回放WebSocket处理器
// 按配置的间隔逐回合推送，客户端看到的是一场逐步揭晓的战斗，
// 而不是一次性的结果。全部回合推送完毕后标记已回放。
type RevealWebSocketHandler struct {
	battleService service.BattleService
	upgrader      websocket.Upgrader
	turnInterval  time.Duration
	writeTimeout  time.Duration
	logger        *zap.Logger
}

// NewRevealWebSocketHandler 创建战报回放处理器
func NewRevealWebSocketHandler(battleService service.BattleService, cfg *config.WebSocket, logger *zap.Logger) *RevealWebSocketHandler {
	return &RevealWebSocketHandler{
		battleService: battleService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				// 在生产环境中应该检查Origin
				return true
			},
		},
		turnInterval: cfg.TurnInterval,
		writeTimeout: cfg.WriteTimeout,
		logger:       logger,
	}
}

// revealMessage 回放消息帧
type revealMessage struct {
	Type string      `json:"type"` // battle_start / turn / battle_end
	Data interface{} `json:"data"`
}

// StreamReveal 逐回合推送战报
// @Summary 战报回放（WebSocket）
// @Description 升级为WebSocket后按固定间隔逐回合推送战斗过程
// @Tags Battle
// @Security Bearer
// @Param id path string true "战斗ID"
// @Router /ws/battles/{id}/reveal [get]
func (h *RevealWebSocketHandler) StreamReveal(c *gin.Context) {
	battleID := c.Param("id")

	// 升级前取好数据，失败时还能返回普通HTTP错误
	feed, err := h.battleService.GetRevealFeed(c.Request.Context(), battleID)
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket升级失败",
			zap.String("battle_id", battleID),
			zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Info("战报回放开始",
		zap.String("battle_id", battleID),
		zap.Int("turn_count", len(feed.Turns)),
		zap.String("ip", c.ClientIP()))

	// 开场帧：双方快照，不含结果
	start := map[string]interface{}{
		"battle_id":         feed.Battle.BattleID,
		"seed":              feed.Battle.Seed,
		"proposer_snapshot": feed.Battle.ProposerSnapshot,
		"accepter_snapshot": feed.Battle.AccepterSnapshot,
		"turn_count":        feed.Battle.TurnCount,
	}
	if err := h.writeMessage(conn, &revealMessage{Type: "battle_start", Data: start}); err != nil {
		return
	}

	// 逐回合推送
	for i := range feed.Turns {
		if h.turnInterval > 0 {
			time.Sleep(h.turnInterval)
		}
		if err := h.writeMessage(conn, &revealMessage{Type: "turn", Data: &feed.Turns[i]}); err != nil {
			h.logger.Info("战报回放中断",
				zap.String("battle_id", battleID),
				zap.Int("turn_index", i+1),
				zap.Error(err))
			return
		}
	}

	// 结果帧最后才出现
	end := map[string]interface{}{
		"outcome":           feed.Battle.Outcome,
		"winner_user_id":    feed.Battle.WinnerUserID,
		"winner_spider_id":  feed.Battle.WinnerSpiderID,
		"loser_user_id":     feed.Battle.LoserUserID,
		"loser_spider_id":   feed.Battle.LoserSpiderID,
		"proposer_final_hp": feed.Battle.ProposerFinalHP,
		"accepter_final_hp": feed.Battle.AccepterFinalHP,
	}
	if err := h.writeMessage(conn, &revealMessage{Type: "battle_end", Data: end}); err != nil {
		return
	}

	if err := h.battleService.MarkRevealed(c.Request.Context(), battleID); err != nil {
		h.logger.Error("标记回放状态失败",
			zap.String("battle_id", battleID),
			zap.Error(err))
	}

	h.logger.Info("战报回放完成", zap.String("battle_id", battleID))
}

// writeMessage 带写超时的JSON帧发送
func (h *RevealWebSocketHandler) writeMessage(conn *websocket.Conn, msg *revealMessage) error {
	if h.writeTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	}
	return conn.WriteJSON(msg)
}
