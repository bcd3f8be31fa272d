package router

import (
	"github.com/gin-gonic/gin"
	"github.com/inkpress/internal/handler"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API) *gin.Engine {
	r := gin.Default()

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// 公开路由：登录、文章读取、订阅与退订。
	// 列表与详情对外开放，详情读取同时计入浏览量。
	r.POST("/auth/login", api.Login)
	r.GET("/posts", api.ListPosts)
	r.GET("/posts/:id", api.GetPost)
	r.GET("/posts/slug/:slug", api.GetPostBySlug)
	r.POST("/subscribers", api.Subscribe)
	r.GET("/subscribers/unsubscribe/:token", api.Unsubscribe)

	// 需要认证的路由
	auth := r.Group("")
	auth.Use(api.AuthRequired())
	{
		auth.POST("/posts", api.CreatePost)
		auth.PATCH("/posts/:id", api.UpdatePost)
		auth.DELETE("/posts/:id", api.DeletePost)

		auth.GET("/categories", api.ListCategories)
		auth.GET("/categories/:id", api.GetCategory)
		auth.POST("/categories", api.CreateCategory)
		auth.PUT("/categories/:id", api.UpdateCategory)
		auth.DELETE("/categories/:id", api.DeleteCategory)

		auth.GET("/tags", api.ListTags)
		auth.GET("/tags/:id", api.GetTag)
		auth.POST("/tags", api.CreateTag)
		auth.PUT("/tags/:id", api.UpdateTag)
		auth.DELETE("/tags/:id", api.DeleteTag)

		auth.GET("/subscribers", api.ListSubscribers)
		auth.DELETE("/subscribers/:id", api.RemoveSubscriber)

		auth.GET("/dashboard", api.Dashboard)
		auth.GET("/dashboard/traffic-analytics", api.TrafficAnalytics)
	}

	return r
}
