package handler

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"khodam-go/internal/apperrors"
	"khodam-go/internal/dto"
	"khodam-go/internal/i18n"
	"khodam-go/internal/service"
	"khodam-go/pkg/logging"
	"khodam-go/pkg/utils"
)

// SubmitHandler 接收名字 + 图片，跑完提交流水线后返回分享结果
func SubmitHandler(c *gin.Context) {
	var req dto.SubmitRequest

	if err := c.ShouldBind(&req); err != nil {
		zap.L().Warn("Request body binding failed",
			zap.Error(err),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		_ = c.Error(apperrors.InvalidRequestErrorDefault())
		return
	}

	if err := req.Validate(); err != nil {
		_ = c.Error(apperrors.InvalidRequestError(i18n.T(c.Request.Context(), err.Error(), nil)))
		return
	}

	file, err := c.FormFile("photo")
	if err != nil {
		_ = c.Error(apperrors.InvalidRequestError(i18n.T(c.Request.Context(), "error.photo_required", nil)))
		return
	}

	// 先过滤类型和大小，不合格的文件不进暂存目录，也不会触发 CDN 调用
	if err := utils.ValidateImageUpload(file.Filename, file.Header.Get("Content-Type"), file.Size); err != nil {
		zap.L().Warn("Upload rejected by filter",
			zap.String("filename", file.Filename),
			zap.Int64("size", file.Size),
			zap.Error(err))
		_ = c.Error(apperrors.InvalidRequestError(i18n.T(c.Request.Context(), err.Error(), nil)))
		return
	}

	localPath := filepath.Join(tmpDir(), fmt.Sprintf("%d-%s", time.Now().UnixMilli(), filepath.Base(file.Filename)))
	if err := c.SaveUploadedFile(file, localPath); err != nil {
		logging.Logger.Error("Failed to stage upload",
			zap.String("path", localPath),
			zap.Error(err))
		_ = c.Error(apperrors.SystemErrorDefault())
		return
	}
	// 暂存文件只消费一次，成功失败都删掉
	defer func() {
		if err := os.Remove(localPath); err != nil {
			logging.Logger.Warn("Failed to remove staged upload",
				zap.String("path", localPath),
				zap.Error(err))
		}
	}()

	resp, err := service.SubmitShare(c.Request.Context(), req.Name, localPath)
	if err != nil {
		zap.L().Warn("Share submission failed",
			zap.Error(err),
			zap.String("name", req.Name),
		)
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetSharePageHandler 校验短标识后返回分享落地页
func GetSharePageHandler(c *gin.Context) {
	shareID := c.Param("id")

	// 格式不合法的标识不可能存在，直接 404，不打库也不打缓存
	if err := utils.ValidateShareID(shareID); err != nil {
		NotFoundHandler(c)
		return
	}

	if _, err := service.GetShareByID(shareID); err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code == http.StatusNotFound {
			NotFoundHandler(c)
			return
		}
		_ = c.Error(err)
		return
	}

	c.File(filepath.Join(publicDir(), "share.html"))
}

// GetShareDataHandler 返回分享记录的 JSON
func GetShareDataHandler(c *gin.Context) {
	shareID := c.Param("id")

	if err := utils.ValidateShareID(shareID); err != nil {
		_ = c.Error(apperrors.NotFoundError("Share not found"))
		return
	}

	share, err := service.GetShareByID(shareID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, share)
}

// NotFoundHandler 未匹配路由的兜底页。
// 不能走 c.File，http.ServeFile 会把状态码改回 200。
func NotFoundHandler(c *gin.Context) {
	page, err := os.ReadFile(filepath.Join(publicDir(), "404.html"))
	if err != nil {
		c.String(http.StatusNotFound, "Not Found")
		return
	}
	c.Data(http.StatusNotFound, "text/html; charset=utf-8", page)
}

func tmpDir() string {
	dir := viper.GetString("upload.tmp_dir")
	if dir == "" {
		dir = "./tmp"
	}
	return dir
}

func publicDir() string {
	dir := viper.GetString("server.public_dir")
	if dir == "" {
		dir = "./public"
	}
	return dir
}
