package service

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"khodam-go/pkg/logging"
)

// 暂存文件超过该时长仍未被删除视为泄漏，由定时任务兜底清理
const staleUploadAge = time.Hour

// CleanupTmpDir 清理上传暂存目录里的过期文件
func CleanupTmpDir() error {
	tmpDir := viper.GetString("upload.tmp_dir")
	if tmpDir == "" {
		tmpDir = "./tmp"
	}

	removed, err := cleanupDir(tmpDir, staleUploadAge)
	if err != nil {
		logging.Logger.Error("Tmp dir cleanup failed",
			zap.String("dir", tmpDir),
			zap.Error(err))
		return err
	}

	if removed > 0 {
		logging.Logger.Info("Removed stale staged uploads",
			zap.String("dir", tmpDir),
			zap.Int("removed", removed))
	}
	return nil
}

func cleanupDir(dir string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			logging.Logger.Warn("Failed to remove stale upload",
				zap.String("path", path),
				zap.Error(err))
			continue
		}
		removed++
	}

	return removed, nil
}
