package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gomodule/redigo/redis"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"khodam-go/constant"
	"khodam-go/internal/apperrors"
	"khodam-go/internal/cdn"
	"khodam-go/internal/dto"
	"khodam-go/internal/model"
	"khodam-go/internal/repository"
	"khodam-go/pkg/logging"
)

// shareID 冲突时的重新生成上限，share_id 唯一索引兜底
const maxShareIDAttempts = 5

// SubmitShare 提交流水线：中继图片到 CDN → 抽取 khodam → 持久化分享记录。
// 任何一步失败都中止整个提交，不留下半成品记录。
func SubmitShare(ctx context.Context, name string, localPhotoPath string) (*dto.SubmitResponse, error) {
	photoURL, err := cdn.Upload(ctx, localPhotoPath)
	if err != nil {
		logging.Logger.Warn("CDN upload failed",
			zap.String("path", localPhotoPath),
			zap.Error(err))
		return nil, apperrors.UploadFailedError(err)
	}

	khodam, err := PickKhodam()
	if err != nil {
		logging.Logger.Error("Failed to pick khodam", zap.Error(err))
		return nil, apperrors.SystemErrorDefault()
	}

	share := &model.Share{
		Name:     name,
		Khodam:   khodam,
		PhotoURL: photoURL,
	}
	if err := insertShare(share); err != nil {
		logging.Logger.Error("Failed to persist share",
			zap.String("name", name),
			zap.Error(err))
		return nil, apperrors.SystemErrorDefault()
	}

	return &dto.SubmitResponse{
		Name:     share.Name,
		Khodam:   share.Khodam,
		PhotoURL: share.PhotoURL,
		ShareID:  share.ShareID,
	}, nil
}

// insertShare 生成短标识并落库，标识撞库时重新生成
func insertShare(share *model.Share) error {
	for attempt := 0; attempt < maxShareIDAttempts; attempt++ {
		shareID, err := newShareID()
		if err != nil {
			return err
		}

		var existing model.Share
		err = repository.DB.Where("share_id = ?", shareID).First(&existing).Error
		if err == nil {
			logging.Logger.Warn("Share ID collision, regenerating",
				zap.String("share_id", shareID))
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		share.ShareID = shareID
		return repository.DB.Create(share).Error
	}

	return fmt.Errorf("exhausted %d share id attempts", maxShareIDAttempts)
}

// newShareID 3 个随机字节 → 6 位十六进制短标识
func newShareID() (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate share id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// GetShareByID 按短标识查询分享记录，带缓存旁路；未命中返回 NotFoundError
func GetShareByID(shareID string) (*model.Share, error) {
	cacheKey := constant.GetShareKey(shareID)

	if repository.RedisPool != nil {
		conn := repository.RedisPool.Get()

		defer func() {
			if err := conn.Close(); err != nil {
				logging.Logger.Error("Failed to close Redis connection",
					zap.Error(err),
					zap.String("operation", "close"),
					zap.String("connection_type", "redis"),
				)
			}
		}()

		// 从 Redis 中查询缓存
		cachedValue, err := redis.Bytes(conn.Do("GET", cacheKey))
		if err == nil {
			if len(cachedValue) == 0 {
				// 命中空值缓存
				return nil, apperrors.NotFoundError("Share not found")
			}
			var share model.Share
			if err := json.Unmarshal(cachedValue, &share); err == nil {
				return &share, nil
			}
			logging.Logger.Warn("Failed to unmarshal cached share",
				zap.String("cache_key", cacheKey),
				zap.Error(err))
		} else if err != redis.ErrNil {
			logging.Logger.Warn("Error getting from Redis",
				zap.String("cache_key", cacheKey),
				zap.Error(err))
		}

		// 缓存未命中，从数据库查询
		share, dbErr := findShare(shareID)
		if dbErr != nil {
			var appErr *apperrors.AppError
			if errors.As(dbErr, &appErr) && appErr.Code == http.StatusNotFound {
				// 缓存空值，防止缓存穿透
				if _, err := conn.Do("SET", cacheKey, "", "EX", constant.EmptyCacheTTL); err != nil {
					logging.Logger.Error("Failed to cache empty share",
						zap.String("cache_key", cacheKey),
						zap.Error(err))
				}
			}
			return nil, dbErr
		}

		cachedValue, _ = json.Marshal(share)
		if _, err := conn.Do("SET", cacheKey, cachedValue, "EX", constant.ShareCacheTTL); err != nil {
			logging.Logger.Error("Failed to cache share",
				zap.String("cache_key", cacheKey),
				zap.Error(err))
		}

		return share, nil
	}

	return findShare(shareID)
}

func findShare(shareID string) (*model.Share, error) {
	var share model.Share
	if err := repository.DB.Where("share_id = ?", shareID).First(&share).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundError("Share not found")
		}
		logging.Logger.Error("Failed to query share",
			zap.String("share_id", shareID),
			zap.Error(err))
		return nil, apperrors.SystemErrorDefault()
	}
	return &share, nil
}
