package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/inkpress/internal/db"
	"gorm.io/gorm"
)

// DashboardService 是只读的分析聚合器，每次调用即时计算，不做缓存。
type DashboardService struct {
	db         *gorm.DB
	activities *ActivityService
}

// NewDashboardService creates a DashboardService instance.
func NewDashboardService(gdb *gorm.DB, activities *ActivityService) *DashboardService {
	return &DashboardService{db: gdb, activities: activities}
}

// StatCard 是仪表盘上的一张统计卡片。
type StatCard struct {
	Title  string `json:"title"`
	Value  int64  `json:"value"`
	Change string `json:"change"`
}

// TopPost 描述浏览量靠前的文章。
type TopPost struct {
	Title string `json:"title"`
	Views uint64 `json:"views"`
}

// ActivityEntry 是动态流中的一条记录。
type ActivityEntry struct {
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// DashboardSummary 汇总仪表盘数据。
type DashboardSummary struct {
	Stats            []StatCard      `json:"stats"`
	TopPosts         []TopPost       `json:"topPosts"`
	RecentActivities []ActivityEntry `json:"recentActivities"`
}

// Summary 并发执行各独立子查询后合并。指标之间不保证同一快照，
// 读取瞬间的交叉误差可以接受。
func (s *DashboardService) Summary(now time.Time) (*DashboardSummary, error) {
	currentMonth := monthKey(now)
	lastMonth := previousMonthKey(now)
	monthStart := startOfMonth(now)

	var (
		totalViews     int64
		currentViews   int64
		lastViews      int64
		totalPosts     int64
		postsThisMonth int64
		totalAuthors   int64
		newAuthors     int64
		totalSubs      int64
		lastMonthSubs  int64
	)

	queries := []func() error{
		func() error {
			return s.db.Model(&db.Post{}).
				Select("COALESCE(SUM(views), 0)").Scan(&totalViews).Error
		},
		func() error {
			return s.db.Model(&db.PostMonthlyView{}).
				Select("COALESCE(SUM(views), 0)").
				Where("month = ?", currentMonth).Scan(&currentViews).Error
		},
		func() error {
			return s.db.Model(&db.PostMonthlyView{}).
				Select("COALESCE(SUM(views), 0)").
				Where("month = ?", lastMonth).Scan(&lastViews).Error
		},
		func() error {
			return s.db.Model(&db.Post{}).
				Where("status = ?", db.StatusPublished).Count(&totalPosts).Error
		},
		func() error {
			return s.db.Model(&db.Post{}).
				Where("status = ? AND created_at >= ?", db.StatusPublished, monthStart).
				Count(&postsThisMonth).Error
		},
		func() error {
			return s.db.Model(&db.Post{}).
				Distinct("author_id").Count(&totalAuthors).Error
		},
		func() error {
			// 首篇文章落在本月内的作者数
			firsts := s.db.Model(&db.Post{}).
				Select("author_id").
				Group("author_id").
				Having("MIN(created_at) >= ?", monthStart)
			return s.db.Table("(?) AS firsts", firsts).Count(&newAuthors).Error
		},
		func() error {
			return s.db.Model(&db.Subscriber{}).Count(&totalSubs).Error
		},
		func() error {
			// 截至上月末的订阅者数
			return s.db.Model(&db.Subscriber{}).
				Where("created_at < ?", monthStart).Count(&lastMonthSubs).Error
		},
	}

	errs := make([]error, len(queries))
	var wg sync.WaitGroup
	for i, query := range queries {
		wg.Add(1)
		go func(i int, query func() error) {
			defer wg.Done()
			errs[i] = query()
		}(i, query)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	topPosts, err := s.topPosts(3)
	if err != nil {
		return nil, err
	}

	recent, err := s.activities.Recent(3)
	if err != nil {
		return nil, err
	}
	entries := make([]ActivityEntry, 0, len(recent))
	for _, activity := range recent {
		entries = append(entries, ActivityEntry{
			Title:     activity.Title,
			Message:   activity.Message,
			CreatedAt: activity.CreatedAt,
		})
	}

	viewsChange := formatChange(percentChange(float64(lastViews), float64(currentViews)))
	subsGrowth := formatChange(SubscribersGrowth(lastMonthSubs, totalSubs))

	return &DashboardSummary{
		Stats: []StatCard{
			{Title: "Total Views", Value: totalViews, Change: fmt.Sprintf("%s from last month", viewsChange)},
			{Title: "New Posts", Value: totalPosts, Change: fmt.Sprintf("+%d this month", postsThisMonth)},
			{Title: "Total Authors", Value: totalAuthors, Change: fmt.Sprintf("+%d new this month", newAuthors)},
			{Title: "Subscribers", Value: totalSubs, Change: fmt.Sprintf("%s growth", subsGrowth)},
		},
		TopPosts:         topPosts,
		RecentActivities: entries,
	}, nil
}

// SubscribersGrowth 计算订阅者环比增长率：基期与当期均为零记 0，
// 基期为零而当期非零记 100。
func SubscribersGrowth(lastMonthSubscribers, totalSubscribers int64) float64 {
	return round1(percentChange(float64(lastMonthSubscribers), float64(totalSubscribers)))
}

func (s *DashboardService) topPosts(limit int) ([]TopPost, error) {
	var rows []TopPost
	if err := s.db.Model(&db.Post{}).
		Select("title, views").
		Order("views desc").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
