package repository

import (
	"khodam-go/internal/model"

	"gorm.io/gorm"
)

// GetViewCounter 读取全局计数行（启动时 Bootstrap 保证其存在）
func GetViewCounter() (*model.ViewCounter, error) {
	var counter model.ViewCounter
	if err := DB.First(&counter).Error; err != nil {
		return nil, err
	}
	return &counter, nil
}

// IncrementViewCounter 以单条 UPDATE 原子递增计数，避免并发丢失更新
func IncrementViewCounter(id uint) error {
	return DB.Model(&model.ViewCounter{}).
		Where("id = ?", id).
		UpdateColumn("total_views", gorm.Expr("total_views + ?", 1)).Error
}
