package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr        string
	Port              string
	DatabasePath      string
	GinMode           string
	JWTSecret         string
	SiteBaseURL       string
	SuperRootName     string
	SuperRootEmail    string
	SuperRootPassword string
	ReconcileSpec     string
	SMTPHost          string
	SMTPPort          int
	SMTPUser          string
	SMTPPassword      string
	MailFrom          string
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	listenAddr := strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	databasePath := strings.TrimSpace(os.Getenv("DATABASE_PATH"))
	if databasePath == "" {
		databasePath = "inkpress.db"
	}

	ginMode := strings.TrimSpace(os.Getenv("GIN_MODE"))
	if ginMode == "" {
		ginMode = "release"
	}

	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if jwtSecret == "" {
		jwtSecret = "inkpress-dev-secret"
	}

	siteBaseURL := strings.TrimSpace(os.Getenv("SITE_BASE_URL"))
	if siteBaseURL == "" {
		siteBaseURL = "https://blog.inkpress.dev"
	}

	reconcileSpec := strings.TrimSpace(os.Getenv("RECONCILE_CRON"))
	if reconcileSpec == "" {
		// 每日凌晨校正计数器漂移，避开访问高峰
		reconcileSpec = "0 4 * * *"
	}

	smtpPort := 587
	if raw := strings.TrimSpace(os.Getenv("SMTP_PORT")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			smtpPort = parsed
		}
	}

	mailFrom := strings.TrimSpace(os.Getenv("MAIL_FROM"))
	if mailFrom == "" {
		mailFrom = "no-reply@inkpress.dev"
	}

	return AppConfig{
		ListenAddr:        listenAddr,
		Port:              port,
		DatabasePath:      databasePath,
		GinMode:           ginMode,
		JWTSecret:         jwtSecret,
		SiteBaseURL:       siteBaseURL,
		SuperRootName:     strings.TrimSpace(os.Getenv("SUPER_ROOT_NAME")),
		SuperRootEmail:    strings.TrimSpace(os.Getenv("SUPER_ROOT_EMAIL")),
		SuperRootPassword: strings.TrimSpace(os.Getenv("SUPER_ROOT_PASSWORD")),
		ReconcileSpec:     reconcileSpec,
		SMTPHost:          strings.TrimSpace(os.Getenv("SMTP_HOST")),
		SMTPPort:          smtpPort,
		SMTPUser:          strings.TrimSpace(os.Getenv("SMTP_USER")),
		SMTPPassword:      strings.TrimSpace(os.Getenv("SMTP_PASSWORD")),
		MailFrom:          mailFrom,
	}
}
