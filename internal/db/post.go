package db

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// 文章状态枚举。scheduled 为 schema 预留状态，当前不会主动流转。
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusScheduled = "scheduled"
)

// Post 定义了文章模型
type Post struct {
	gorm.Model
	Title            string `gorm:"not null"`
	Slug             string `gorm:"uniqueIndex;not null"`
	Content          string
	Excerpt          string
	Status           string `gorm:"index;not null;default:draft"`
	AuthorID         uint   `gorm:"index;not null"`
	Author           User
	FeaturedImageURL string
	FeaturedImageAlt string
	Views            uint64 `gorm:"default:0"`
	LastViewedAt     *time.Time
	Description      string
	SEOTitle         string
	MetaDescription  string
	StaticLeadMagnet string
	FAQs             FAQList    `gorm:"column:faqs;type:text"`
	Categories       []Category `gorm:"many2many:post_categories;"`
	Tags             []Tag      `gorm:"many2many:post_tags;"`
	Contributors     []User     `gorm:"many2many:post_contributors;"`
	MonthlyViews     []PostMonthlyView
	Edits            []PostEdit
}

// FAQ 表示文章附带的一条常见问答。
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// FAQList 以 JSON 文本形式存储在 posts 表中。
type FAQList []FAQ

// Value 实现 driver.Valuer。
func (l FAQList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan 实现 sql.Scanner。
func (l *FAQList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		if len(v) == 0 {
			*l = nil
			return nil
		}
		return json.Unmarshal(v, l)
	case string:
		if v == "" {
			*l = nil
			return nil
		}
		return json.Unmarshal([]byte(v), l)
	default:
		return errors.New("unsupported faq list source type")
	}
}

// PostEdit 记录文章的编辑历史，只追加不修改。
type PostEdit struct {
	ID           uint `gorm:"primaryKey"`
	PostID       uint `gorm:"index;not null"`
	ModifierID   uint `gorm:"not null"`
	ModifierName string
	ModifiedAt   time.Time
	CreatedAt    time.Time
}

// TableName 指定自定义表名。
func (PostEdit) TableName() string {
	return "post_edits"
}
