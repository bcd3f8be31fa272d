package db

import "time"

// PostMonthlyView 按自然月聚合文章浏览量。
// 不变式：文章的生命周期总浏览量 views 等于其所有月桶之和，
// 外加迁移前的历史浏览量（如存在）。
type PostMonthlyView struct {
	ID        uint   `gorm:"primaryKey"`
	PostID    uint   `gorm:"uniqueIndex:idx_post_month;not null"`
	Month     string `gorm:"size:7;uniqueIndex:idx_post_month;not null"` // YYYY-MM
	Views     uint64 `gorm:"default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 指定自定义表名。
func (PostMonthlyView) TableName() string {
	return "post_monthly_views"
}

// PostView 记录文章按天的浏览时间序列，(post_id, day) 唯一。
// 与月桶分开存储：天序列支持任意日期区间查询，而不仅是自然月。
type PostView struct {
	ID        uint   `gorm:"primaryKey"`
	PostID    uint   `gorm:"uniqueIndex:idx_post_day;not null"`
	Day       string `gorm:"size:10;uniqueIndex:idx_post_day;not null"` // YYYY-MM-DD
	Count     uint64 `gorm:"default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 指定自定义表名。
func (PostView) TableName() string {
	return "post_views"
}
