package db

import "gorm.io/gorm"

// Category 定义了分类模型。
// PostCounts 为引用该分类的文章数量，由文章写路径增量维护，
// 任何时刻都不允许为负。
type Category struct {
	gorm.Model
	Name        string `gorm:"not null"`
	Slug        string `gorm:"uniqueIndex;not null"`
	Description string
	PostCounts  int64  `gorm:"default:0"`
	Posts       []Post `gorm:"many2many:post_categories;"`
}
