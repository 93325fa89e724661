package repository

import (
	"khodam-go/internal/model"
	"khodam-go/pkg/logging"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB(logger *zap.Logger, atomicLogLevel zap.AtomicLevel) {
	dsn := viper.GetString("db.dsn")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logging.NewGormLogger(logger, logging.ToGormLogLevel(atomicLogLevel.Level())),
	})
	if err != nil {
		logging.Logger.Fatal("Failed to connect database", zap.Error(err))
	}

	if err := Bootstrap(db); err != nil {
		logging.Logger.Fatal("Failed to bootstrap database", zap.Error(err))
	}

	DB = db
}

// Bootstrap 迁移表结构并保证 views 表恰好存在一行计数记录
func Bootstrap(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Share{}, &model.ViewCounter{}); err != nil {
		return err
	}

	var count int64
	if err := db.Model(&model.ViewCounter{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return db.Create(&model.ViewCounter{}).Error
	}
	return nil
}
