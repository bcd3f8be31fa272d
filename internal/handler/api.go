package handler

import (
	"github.com/inkpress/internal/config"
	"github.com/inkpress/internal/mailer"
	"github.com/inkpress/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db          *gorm.DB
	cfg         config.AppConfig
	posts       *service.PostService
	tags        *service.TagService
	categories  *service.CategoryService
	views       *service.ViewService
	dashboard   *service.DashboardService
	subscribers *service.SubscriberService
	activities  *service.ActivityService
}

// NewAPI constructs a handler set with shared services.
// 未配置 SMTP 时邮件走 dry-run 投递器，发布通知只记日志。
func NewAPI(gdb *gorm.DB, cfg config.AppConfig) *API {
	activities := service.NewActivityService(gdb)
	tags := service.NewTagService(gdb)
	categories := service.NewCategoryService(gdb)
	subscribers := service.NewSubscriberService(gdb)

	var m mailer.Mailer = mailer.LogMailer{}
	if cfg.SMTPHost != "" {
		m = mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
	}
	notifier := service.NewNotifyService(gdb, subscribers, activities, m, cfg.SiteBaseURL)

	posts := service.NewPostService(gdb, tags, categories, activities).WithNotifier(notifier)

	return &API{
		db:          gdb,
		cfg:         cfg,
		posts:       posts,
		tags:        tags,
		categories:  categories,
		views:       service.NewViewService(gdb),
		dashboard:   service.NewDashboardService(gdb, activities),
		subscribers: subscribers,
		activities:  activities,
	}
}
