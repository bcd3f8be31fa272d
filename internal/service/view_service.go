package service

import (
	"fmt"
	"time"

	"github.com/inkpress/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ViewService 负责文章浏览量的三种口径：生命周期总量、自然月桶、按天时间序列。
type ViewService struct {
	db *gorm.DB
}

// NewViewService creates a ViewService instance.
func NewViewService(gdb *gorm.DB) *ViewService {
	return &ViewService{db: gdb}
}

// RecordView 记录一次详情页浏览。
// 生命周期计数与当月月桶在同一事务内原子加一，保证 views 恒等于月桶之和
// （外加迁移前历史量）；天序列单独 upsert，两者之间允许最终一致。
func (s *ViewService) RecordView(postID uint, now time.Time) error {
	month := monthKey(now)

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		// UpdateColumns 跳过 updated_at：浏览不算编辑
		result := tx.Model(&db.Post{}).
			Where("id = ?", postID).
			UpdateColumns(map[string]interface{}{
				"views":          gorm.Expr("views + 1"),
				"last_viewed_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrPostNotFound
		}

		bucket := db.PostMonthlyView{PostID: postID, Month: month, Views: 1}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "post_id"}, {Name: "month"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"views":      gorm.Expr("views + 1"),
				"updated_at": now,
			}),
		}).Create(&bucket).Error
	}); err != nil {
		return err
	}

	// 天桶的原子 upsert：并发浏览同一天不丢计数
	day := db.PostView{PostID: postID, Day: dayKey(now), Count: 1}
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "post_id"}, {Name: "day"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"count":      gorm.Expr("count + 1"),
			"updated_at": now,
		}),
	}).Create(&day).Error
}

// DailyViewCount 是按天聚合的浏览量。
type DailyViewCount struct {
	Day   string `json:"day"`
	Views uint64 `json:"views"`
}

// DailyViewsResult 汇总区间内的天序列及与等长前一区间的环比。
type DailyViewsResult struct {
	Series        []DailyViewCount `json:"series"`
	Total         uint64           `json:"totalViews"`
	PreviousTotal uint64           `json:"previousViews"`
	Change        string           `json:"change"`
}

// DailyViews 返回 [from, to] 闭区间内逐天的浏览量，没有记录的日期补零，
// 并计算紧邻区间之前、等长窗口的环比变化。
func (s *ViewService) DailyViews(from, to time.Time) (*DailyViewsResult, error) {
	start := startOfDay(from)
	end := startOfDay(to)
	if end.Before(start) {
		start, end = end, start
	}
	days := int(end.Sub(start).Hours()/24) + 1

	counts, err := s.sumByDay(dayKey(start), dayKey(end))
	if err != nil {
		return nil, err
	}

	result := &DailyViewsResult{Series: make([]DailyViewCount, 0, days)}
	for d, i := start, 0; i < days; d, i = d.AddDate(0, 0, 1), i+1 {
		key := dayKey(d)
		views := counts[key]
		result.Total += views
		result.Series = append(result.Series, DailyViewCount{Day: key, Views: views})
	}

	// 等长的前一窗口：紧贴 from 之前
	prevEnd := start.AddDate(0, 0, -1)
	prevStart := prevEnd.AddDate(0, 0, -(days - 1))
	previous, err := s.sumRange(dayKey(prevStart), dayKey(prevEnd))
	if err != nil {
		return nil, err
	}
	result.PreviousTotal = previous

	change := percentChange(float64(previous), float64(result.Total))
	result.Change = fmt.Sprintf("%s vs previous period", formatChange(change))

	return result, nil
}

func (s *ViewService) sumByDay(fromKey, toKey string) (map[string]uint64, error) {
	var rows []struct {
		Day   string
		Total uint64
	}
	if err := s.db.Model(&db.PostView{}).
		Select("day, COALESCE(SUM(count), 0) AS total").
		Where("day BETWEEN ? AND ?", fromKey, toKey).
		Group("day").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]uint64, len(rows))
	for _, row := range rows {
		counts[row.Day] = row.Total
	}
	return counts, nil
}

func (s *ViewService) sumRange(fromKey, toKey string) (uint64, error) {
	var total uint64
	err := s.db.Model(&db.PostView{}).
		Select("COALESCE(SUM(count), 0)").
		Where("day BETWEEN ? AND ?", fromKey, toKey).
		Scan(&total).Error
	return total, err
}
