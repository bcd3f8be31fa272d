package service

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/inkpress/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSubscriberExists   = errors.New("subscriber already exists")
	ErrSubscriberNotFound = errors.New("subscriber not found")
	ErrSubscriberEmail    = errors.New("subscriber email is required")
)

// SubscriberService wraps subscriber related operations.
type SubscriberService struct {
	db *gorm.DB
}

// NewSubscriberService creates a SubscriberService instance.
func NewSubscriberService(gdb *gorm.DB) *SubscriberService {
	return &SubscriberService{db: gdb}
}

// Subscribe 登记一个订阅邮箱，重复订阅返回 ErrSubscriberExists。
// 退订令牌在创建时生成。
func (s *SubscriberService) Subscribe(email string) (*db.Subscriber, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrSubscriberEmail
	}

	subscriber := db.Subscriber{
		Email:            email,
		UnsubscribeToken: uuid.NewString(),
	}
	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoNothing: true,
	}).Create(&subscriber)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrSubscriberExists
	}
	return &subscriber, nil
}

// List returns all subscribers ordered by id.
func (s *SubscriberService) List() ([]db.Subscriber, error) {
	var subscribers []db.Subscriber
	if err := s.db.Order("id asc").Find(&subscribers).Error; err != nil {
		return nil, err
	}
	return subscribers, nil
}

// ListBatch 按固定批量分页取订阅者，供群发任务遍历全量名单。
func (s *SubscriberService) ListBatch(offset, limit int) ([]db.Subscriber, error) {
	var subscribers []db.Subscriber
	if err := s.db.Order("id asc").Offset(offset).Limit(limit).Find(&subscribers).Error; err != nil {
		return nil, err
	}
	return subscribers, nil
}

// Remove deletes a subscriber by id.
func (s *SubscriberService) Remove(id uint) error {
	result := s.db.Delete(&db.Subscriber{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSubscriberNotFound
	}
	return nil
}

// Unsubscribe 按退订令牌移除订阅者。
func (s *SubscriberService) Unsubscribe(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrSubscriberNotFound
	}

	result := s.db.Where("unsubscribe_token = ?", token).Delete(&db.Subscriber{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSubscriberNotFound
	}
	return nil
}
