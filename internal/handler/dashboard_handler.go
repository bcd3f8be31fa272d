package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Dashboard 返回后台概览：统计卡片、热门文章与最近活动
func (a *API) Dashboard(c *gin.Context) {
	summary, err := a.dashboard.Summary(time.Now())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取概览数据失败")
		return
	}

	respondData(c, http.StatusOK, summary)
}

// TrafficAnalytics 返回按天聚合的浏览量序列。
// days 取值与前端选择器一致："24 hours"、"7 days"、"30 days"、"12 months"，
// 缺失或不认识的取值退化为当天。
func (a *API) TrafficAnalytics(c *gin.Context) {
	now := time.Now()
	to := now
	var from time.Time

	switch c.Query("days") {
	case "7 days":
		from = now.AddDate(0, 0, -6)
	case "30 days":
		from = now.AddDate(0, 0, -29)
	case "12 months":
		from = now.AddDate(-1, 0, 0)
	default: // "24 hours"
		from = now
	}

	result, err := a.views.DailyViews(from, to)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取流量数据失败")
		return
	}

	respondData(c, http.StatusOK, result)
}
