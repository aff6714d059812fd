package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/spider-arena/internal/middleware"
	"github.com/wfunc/spider-arena/internal/service"
)

// BattleHandler 战斗处理器
type BattleHandler struct {
	battleService service.BattleService
}

// NewBattleHandler 创建战斗处理器
func NewBattleHandler(battleService service.BattleService) *BattleHandler {
	return &BattleHandler{
		battleService: battleService,
	}
}

// Get 查询战斗记录
// @Summary 查询战斗
// @Tags Battle
// @Security Bearer
// @Produce json
// @Param id path string true "战斗ID"
// @Success 200 {object} models.Battle
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/battles/{id} [get]
func (h *BattleHandler) Get(c *gin.Context) {
	record, err := h.battleService.GetBattle(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// GetReveal 获取完整战报
// @Summary 获取战报
// @Description 一次性返回战斗记录与全部回合；逐回合播放使用WebSocket接口
// @Tags Battle
// @Security Bearer
// @Produce json
// @Param id path string true "战斗ID"
// @Success 200 {object} service.RevealFeed
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/battles/{id}/reveal [get]
func (h *BattleHandler) GetReveal(c *gin.Context) {
	battleID := c.Param("id")
	feed, err := h.battleService.GetRevealFeed(c.Request.Context(), battleID)
	if err != nil {
		respondError(c, err)
		return
	}

	// 完整拉取也视为一次回放
	if err := h.battleService.MarkRevealed(c.Request.Context(), battleID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, feed)
}

// ListMine 查询当前用户的战斗历史
// @Summary 我的战斗历史
// @Tags Battle
// @Security Bearer
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/battles/mine [get]
func (h *BattleHandler) ListMine(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Code: "UNAUTHORIZED", Message: "未登录"})
		return
	}

	page, pageSize := parsePagination(c)
	battles, total, err := h.battleService.ListByUser(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"battles":   battles,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
