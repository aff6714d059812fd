package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/spider-arena/internal/middleware"
	"github.com/wfunc/spider-arena/internal/service"
)

// SpiderHandler 蜘蛛处理器
type SpiderHandler struct {
	spiderService service.SpiderService
}

// NewSpiderHandler 创建蜘蛛处理器
func NewSpiderHandler(spiderService service.SpiderService) *SpiderHandler {
	return &SpiderHandler{
		spiderService: spiderService,
	}
}

// Create 创建蜘蛛
// @Summary 创建蜘蛛
// @Description 为当前用户登记一只新蜘蛛
// @Tags Spider
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body service.CreateSpiderRequest true "蜘蛛信息"
// @Success 200 {object} models.Spider
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/spiders [post]
func (h *SpiderHandler) Create(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Code: "UNAUTHORIZED", Message: "未登录"})
		return
	}

	var req service.CreateSpiderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}
	req.OwnerID = userID

	spider, err := h.spiderService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, spider)
}

// Get 查询蜘蛛详情
// @Summary 查询蜘蛛
// @Tags Spider
// @Security Bearer
// @Produce json
// @Param id path int true "蜘蛛ID"
// @Success 200 {object} models.Spider
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/spiders/{id} [get]
func (h *SpiderHandler) Get(c *gin.Context) {
	spiderID, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_REQUEST", Message: "无效的蜘蛛ID"})
		return
	}

	spider, err := h.spiderService.Get(c.Request.Context(), spiderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, spider)
}

// List 查询当前用户的蜘蛛
// @Summary 查询我的蜘蛛
// @Tags Spider
// @Security Bearer
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/spiders [get]
func (h *SpiderHandler) List(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Code: "UNAUTHORIZED", Message: "未登录"})
		return
	}

	page, pageSize := parsePagination(c)
	spiders, total, err := h.spiderService.ListByOwner(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"spiders":   spiders,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// Delete 删除蜘蛛
// @Summary 删除蜘蛛
// @Tags Spider
// @Security Bearer
// @Param id path int true "蜘蛛ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/spiders/{id} [delete]
func (h *SpiderHandler) Delete(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Code: "UNAUTHORIZED", Message: "未登录"})
		return
	}

	spiderID, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_REQUEST", Message: "无效的蜘蛛ID"})
		return
	}

	if err := h.spiderService.Delete(c.Request.Context(), spiderID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "删除成功"})
}

// parseUintParam 解析路径中的无符号整型参数
func parseUintParam(c *gin.Context, name string) (uint, error) {
	value, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}

// parsePagination 解析分页参数
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, pageSize
}
