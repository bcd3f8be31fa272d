package db

import "gorm.io/gorm"

// Tag 定义了标签模型。slug 唯一，按 slug 做 find-or-create。
type Tag struct {
	gorm.Model
	Name  string `gorm:"not null"`
	Slug  string `gorm:"uniqueIndex;not null"`
	Posts []Post `gorm:"many2many:post_tags;"`
}
