package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// registerOpenAPIRoutes 提供 /openapi 文档数据源
func registerOpenAPIRoutes(engine *gin.Engine) {
	engine.GET("/openapi", serveOpenAPI)
	engine.GET("/openapi.yaml", serveOpenAPI)
}

func serveOpenAPI(c *gin.Context) {
	c.Header("Content-Type", "application/yaml; charset=utf-8")
	c.File("docs/api/openapi.yaml")
}

// notFoundHandler 统一404响应
func notFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"code":    "NOT_FOUND",
		"message": "接口不存在",
	})
}
