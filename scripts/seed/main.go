package main

import (
	"fmt"
	"log"

	"github.com/inkpress/internal/config"
	"github.com/inkpress/internal/db"
	"github.com/inkpress/internal/service"
	"github.com/joho/godotenv"
)

// 开发环境测试数据生成器
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	fmt.Println("开始生成测试数据...")

	if err := db.EnsureUser("admin", "admin@inkpress.dev", "admin123"); err != nil {
		log.Fatal("创建管理员失败:", err)
	}

	var admin db.User
	if err := db.DB.Where("email = ?", "admin@inkpress.dev").First(&admin).Error; err != nil {
		log.Fatal("读取管理员失败:", err)
	}

	categories := createCategories()
	createPosts(admin, categories)
	createSubscribers()

	fmt.Println("测试数据生成完成！")
	fmt.Println("用户: admin@inkpress.dev (密码: admin123)")
}

func createCategories() []db.Category {
	svc := service.NewCategoryService(db.DB)

	var count int64
	db.DB.Model(&db.Category{}).Count(&count)
	if count > 0 {
		fmt.Println("分类已存在，跳过创建")
		var existing []db.Category
		db.DB.Find(&existing)
		return existing
	}

	names := []string{"技术", "生活", "思考", "教程"}
	categories := make([]db.Category, 0, len(names))
	for _, name := range names {
		category, err := svc.Create(name, "", "")
		if err != nil {
			log.Fatal("创建分类失败:", err)
		}
		categories = append(categories, *category)
	}
	return categories
}

func createPosts(admin db.User, categories []db.Category) {
	var count int64
	db.DB.Model(&db.Post{}).Count(&count)
	if count > 0 {
		fmt.Println("文章已存在，跳过创建")
		return
	}

	posts := service.NewPostService(db.DB,
		service.NewTagService(db.DB),
		service.NewCategoryService(db.DB),
		service.NewActivityService(db.DB))
	principal := service.Principal{ID: admin.ID, Name: admin.Name, Email: admin.Email}

	samples := []service.PostInput{
		{
			Title:       "Go 并发模式实践",
			Content:     "# Go 并发模式\n\n从 goroutine 泄漏讲起，整理几种常见的并发编排方式。",
			Status:      db.StatusPublished,
			CategoryIDs: []uint{categories[0].ID},
			TagNames:    []string{"Go", "并发"},
		},
		{
			Title:       "SQLite 在小型服务里的位置",
			Content:     "单文件数据库不是玩具。这篇聊聊什么时候它刚刚好。",
			Status:      db.StatusPublished,
			CategoryIDs: []uint{categories[0].ID},
			TagNames:    []string{"SQLite", "存储"},
		},
		{
			Title:       "写作习惯的半年复盘",
			Content:     "坚持每周一篇之后，发生了什么变化。",
			Status:      db.StatusDraft,
			CategoryIDs: []uint{categories[2].ID},
			TagNames:    []string{"写作"},
		},
	}

	for _, input := range samples {
		if _, err := posts.Create(input, principal); err != nil {
			log.Fatal("创建文章失败:", err)
		}
	}
	fmt.Printf("文章: %d 篇\n", len(samples))
}

func createSubscribers() {
	svc := service.NewSubscriberService(db.DB)
	for i := 1; i <= 3; i++ {
		email := fmt.Sprintf("reader%d@example.com", i)
		if _, err := svc.Subscribe(email); err != nil {
			if err == service.ErrSubscriberExists {
				continue
			}
			log.Fatal("创建订阅者失败:", err)
		}
	}
	fmt.Println("订阅者: 3 位")
}
