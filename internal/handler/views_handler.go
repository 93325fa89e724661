package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"khodam-go/internal/apperrors"
	"khodam-go/internal/middleware"
)

// TotalViewsHandler 返回去重后的全局访问总数，值由计数中间件写入上下文
func TotalViewsHandler(c *gin.Context) {
	totalViews, exists := c.Get(middleware.TotalViewsKey)
	if !exists {
		_ = c.Error(apperrors.SystemErrorDefault())
		return
	}

	c.JSON(http.StatusOK, gin.H{"totalViews": totalViews})
}
