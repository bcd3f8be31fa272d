package db

import "time"

// Activity 是只追加的事件日志，供仪表盘"最近动态"消费。
type Activity struct {
	ID        uint      `gorm:"primaryKey"`
	Title     string    `gorm:"not null"`
	Message   string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"index"`
}

// TableName 指定自定义表名。
func (Activity) TableName() string {
	return "activities"
}
