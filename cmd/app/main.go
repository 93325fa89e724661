package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"khodam-go/internal/cdn"
	"khodam-go/internal/handler"
	"khodam-go/internal/i18n"
	"khodam-go/internal/middleware"
	"khodam-go/internal/repository"
	"khodam-go/internal/service"
	"khodam-go/pkg/logging"
)

func initConfig() {
	wd, _ := os.Getwd()
	log.Printf("Loading config from: %s/config.yaml", wd)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}
}

func ensureTmpDir() {
	tmpDir := viper.GetString("upload.tmp_dir")
	if tmpDir == "" {
		tmpDir = "./tmp"
	}
	if err := os.MkdirAll(tmpDir, os.ModePerm); err != nil {
		logging.Logger.Fatal("Failed to create upload tmp dir",
			zap.String("dir", tmpDir),
			zap.Error(err))
	}
}

func startServer(r *gin.Engine) {
	addr := viper.GetString("server.addr")
	if addr == "" {
		addr = ":3000"
	}

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	// 启动服务器
	go func() {
		logging.Logger.Info("Server is running on " + addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中断信号以优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	conn := repository.RedisPool.Get()
	defer func() {
		if err := conn.Close(); err != nil {
			logging.Logger.Warn("Redis connection close failed", zap.Error(err))
		}
	}()

	logging.Logger.Info("Server exiting")
}

func main() {

	initConfig()
	logging.InitLoggerFromConfig()

	logging.Logger.Info("Application started")

	repository.InitDB(logging.Logger, logging.AtomicLevel)
	repository.InitRedis()
	cdn.Init()
	ensureTmpDir()

	// 初始化 i18n（加载 TOML 文件）
	bundle, err := i18n.InitI18n([]string{
		"./i18n/en.toml",
		"./i18n/zh.toml",
	}, "en")
	if err != nil {
		panic(err)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	// 注册全局错误中间件
	r.Use(middleware.GlobalErrorMiddleware())
	r.Use(middleware.ZapGinLogger(logging.Logger))
	r.Use(middleware.CorsMiddleware())
	r.Use(middleware.I18nMiddleware(bundle))
	// 访问计数在路由处理之前执行，每个浏览器 24 小时内只计一次
	r.Use(middleware.ViewCounterMiddleware())

	r.POST("/submit", handler.SubmitHandler)
	r.GET("/share/:id", handler.GetSharePageHandler)
	r.GET("/share-data/:id", handler.GetShareDataHandler)
	r.GET("/total-views", handler.TotalViewsHandler)

	// 静态首页与 404 兜底
	r.StaticFile("/", "./public/index.html")
	r.NoRoute(handler.NotFoundHandler)

	c := cron.New()

	// 定时清理暂存目录里的泄漏文件
	_, addErr := c.AddFunc("*/10 * * * *", func() {
		if err := service.CleanupTmpDir(); err != nil {
			logging.Logger.Error("Failed to clean tmp dir via cron job", zap.Error(err))
		}
	})

	if addErr != nil {
		logging.Logger.Fatal("Failed to schedule cron job", zap.Error(addErr))
	}

	c.Start()

	startServer(r)
}
