package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/spider-arena/internal/middleware"
	"github.com/wfunc/spider-arena/internal/service"
)

// ChallengeHandler 挑战处理器
type ChallengeHandler struct {
	challengeService service.ChallengeService
	battleService    service.BattleService
}

// NewChallengeHandler 创建挑战处理器
func NewChallengeHandler(challengeService service.ChallengeService, battleService service.BattleService) *ChallengeHandler {
	return &ChallengeHandler{
		challengeService: challengeService,
		battleService:    battleService,
	}
}

// ProposeChallengeRequest 发起挑战的请求体
type ProposeChallengeRequest struct {
	ProposerSpiderID uint   `json:"proposer_spider_id" binding:"required"`
	TargetID         *uint  `json:"target_id"`
	TargetSpiderID   *uint  `json:"target_spider_id"`
	Message          string `json:"message" binding:"max=500"`
	TTLSeconds       int64  `json:"ttl_seconds"` // 为空使用默认有效期
}

// AcceptChallengeRequest 接受挑战的请求体
type AcceptChallengeRequest struct {
	AccepterSpiderID uint   `json:"accepter_spider_id" binding:"required"`
	Seed             string `json:"seed"`
}

// Propose 发起挑战
// @Summary 发起挑战
// @Description 用自己的蜘蛛发起公开或指定挑战
// @Tags Challenge
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body ProposeChallengeRequest true "挑战信息"
// @Success 200 {object} models.Challenge
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/challenges [post]
func (h *ChallengeHandler) Propose(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Code: "UNAUTHORIZED", Message: "未登录"})
		return
	}

	var req ProposeChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}

	challenge, err := h.challengeService.Propose(c.Request.Context(), &service.ProposeRequest{
		ProposerID:       userID,
		ProposerSpiderID: req.ProposerSpiderID,
		TargetID:         req.TargetID,
		TargetSpiderID:   req.TargetSpiderID,
		Message:          req.Message,
		TTL:              time.Duration(req.TTLSeconds) * time.Second,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, challenge)
}

// Accept 接受挑战并立即结算
// @Summary 接受挑战
// @Description 接受后立即结算战斗，返回战斗记录；结果通过战报回放接口查看
// @Tags Challenge
// @Security Bearer
// @Accept json
// @Produce json
// @Param id path int true "挑战ID"
// @Param request body AcceptChallengeRequest true "应战信息"
// @Success 200 {object} models.Battle
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/challenges/{id}/accept [post]
func (h *ChallengeHandler) Accept(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Code: "UNAUTHORIZED", Message: "未登录"})
		return
	}

	challengeID, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_REQUEST", Message: "无效的挑战ID"})
		return
	}

	var req AcceptChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}

	challenge, err := h.challengeService.Accept(c.Request.Context(), &service.AcceptRequest{
		ChallengeID:      challengeID,
		AccepterID:       userID,
		AccepterSpiderID: req.AccepterSpiderID,
		Seed:             req.Seed,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	// 接受即结算；结算是幂等的，失败不会回滚已完成的接受
	record, err := h.battleService.ResolveChallenge(c.Request.Context(), challenge.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// Cancel 取消挑战
// @Summary 取消挑战
// @Description 发起方撤回尚未被接受的挑战
// @Tags Challenge
// @Security Bearer
// @Param id path int true "挑战ID"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/challenges/{id} [delete]
func (h *ChallengeHandler) Cancel(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Code: "UNAUTHORIZED", Message: "未登录"})
		return
	}

	challengeID, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_REQUEST", Message: "无效的挑战ID"})
		return
	}

	if err := h.challengeService.Cancel(c.Request.Context(), challengeID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "挑战已取消"})
}

// Get 查询挑战详情
// @Summary 查询挑战
// @Tags Challenge
// @Security Bearer
// @Produce json
// @Param id path int true "挑战ID"
// @Success 200 {object} models.Challenge
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/challenges/{id} [get]
func (h *ChallengeHandler) Get(c *gin.Context) {
	challengeID, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_REQUEST", Message: "无效的挑战ID"})
		return
	}

	challenge, err := h.challengeService.Get(c.Request.Context(), challengeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, challenge)
}

// ListOpen 列出可接受的挑战
// @Summary 公开挑战列表
// @Tags Challenge
// @Security Bearer
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/challenges/open [get]
func (h *ChallengeHandler) ListOpen(c *gin.Context) {
	page, pageSize := parsePagination(c)
	challenges, total, err := h.challengeService.ListOpen(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"challenges": challenges,
		"total":      total,
		"page":       page,
		"page_size":  pageSize,
	})
}

// ListMine 列出当前用户参与的挑战
// @Summary 我的挑战列表
// @Tags Challenge
// @Security Bearer
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/challenges/mine [get]
func (h *ChallengeHandler) ListMine(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Code: "UNAUTHORIZED", Message: "未登录"})
		return
	}

	page, pageSize := parsePagination(c)
	challenges, total, err := h.challengeService.ListByUser(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"challenges": challenges,
		"total":      total,
		"page":       page,
		"page_size":  pageSize,
	})
}
