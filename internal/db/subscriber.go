package db

import "gorm.io/gorm"

// Subscriber 定义了订阅者模型。
// UnsubscribeToken 用于退订链接，创建时生成，不可猜测。
type Subscriber struct {
	gorm.Model
	Email            string `gorm:"uniqueIndex;not null"`
	UnsubscribeToken string `gorm:"uniqueIndex;size:36;not null"`
}
