package service

import (
	"time"

	"github.com/inkpress/internal/db"
	"gorm.io/gorm"
)

// ActivityService 维护只追加的事件日志。
type ActivityService struct {
	db *gorm.DB
}

// NewActivityService creates an ActivityService instance.
func NewActivityService(gdb *gorm.DB) *ActivityService {
	return &ActivityService{db: gdb}
}

// Create appends one activity entry.
func (s *ActivityService) Create(title, message string) error {
	return s.db.Create(&db.Activity{
		Title:     title,
		Message:   message,
		CreatedAt: time.Now(),
	}).Error
}

// Recent 返回最近的若干条动态，时间倒序。
func (s *ActivityService) Recent(limit int) ([]db.Activity, error) {
	if limit <= 0 {
		limit = 3
	}
	var activities []db.Activity
	if err := s.db.Order("created_at desc").Limit(limit).Find(&activities).Error; err != nil {
		return nil, err
	}
	return activities, nil
}
