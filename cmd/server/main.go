package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/inkpress/internal/config"
	"github.com/inkpress/internal/db"
	"github.com/inkpress/internal/handler"
	"github.com/inkpress/internal/router"
	"github.com/inkpress/internal/service"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

func main() {
	// .env 不存在时静默跳过，线上直接走环境变量
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// 预置超级管理员账号，已存在则跳过
	if cfg.SuperRootEmail != "" && cfg.SuperRootPassword != "" {
		if err := db.EnsureUser(cfg.SuperRootName, cfg.SuperRootEmail, cfg.SuperRootPassword); err != nil {
			log.Fatalf("failed to ensure super root user: %v", err)
		}
	}

	// 定时校正分类计数与浏览量的漂移
	reconciler := service.NewReconcileService(db.DB)
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.ReconcileSpec, func() {
		if err := reconciler.Run(); err != nil {
			log.Printf("reconcile job failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("failed to schedule reconcile job: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// 设置并运行 Gin 服务器
	api := handler.NewAPI(db.DB, cfg)
	r := router.SetupRouter(api)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}
