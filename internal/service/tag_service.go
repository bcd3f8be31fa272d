package service

import (
	"errors"
	"strings"

	"github.com/inkpress/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrTagNotFound = errors.New("tag not found")
	ErrTagName     = errors.New("tag name is required")
)

// TagService wraps tag related operations.
type TagService struct {
	db *gorm.DB
}

// NewTagService creates a TagService instance.
func NewTagService(gdb *gorm.DB) *TagService {
	return &TagService{db: gdb}
}

// ResolveTags 将自由文本标签名按输入顺序映射为标签实体，缺失的按 slug 幂等创建。
// 标签 slug 不追加去重后缀：不同名字折叠到同一 slug 时归并为同一标签，
// 首个写入者的名字保留。并发创建同名标签由 slug 唯一索引裁决，恰好落库一条。
// 必须在调用方事务 tx 内执行。
func (s *TagService) ResolveTags(tx *gorm.DB, names []string) ([]db.Tag, error) {
	tags := make([]db.Tag, 0, len(names))

	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}

		slug := Slugify(trimmed)
		if slug == "" {
			continue
		}

		// insert-if-absent：冲突时忽略本次的 name
		candidate := db.Tag{Name: trimmed, Slug: slug}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoNothing: true,
		}).Create(&candidate).Error; err != nil {
			return nil, err
		}

		var tag db.Tag
		if err := tx.Where("slug = ?", slug).First(&tag).Error; err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}

	return tags, nil
}

// List returns tags ordered by name.
func (s *TagService) List() ([]db.Tag, error) {
	var tags []db.Tag
	if err := s.db.Order("name asc").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// Get fetches a tag by id.
func (s *TagService) Get(id uint) (*db.Tag, error) {
	var tag db.Tag
	if err := s.db.First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, err
	}
	return &tag, nil
}

// Create 新建标签。独立创建入口沿用计数后缀的唯一 slug 规则，
// 与 ResolveTags 的纯 slug 化口径不同。
func (s *TagService) Create(name, slugCandidate string) (*db.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrTagName
	}

	candidate := strings.TrimSpace(slugCandidate)
	if candidate == "" {
		candidate = name
	}

	tag := db.Tag{Name: name, Slug: UniqueSlug(candidate, s.slugExists(0))}
	if err := s.db.Create(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// Update 更新标签；名称变化时重新派生唯一 slug。
func (s *TagService) Update(id uint, name, slugCandidate string) (*db.Tag, error) {
	var tag db.Tag
	if err := s.db.First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name != "" && name != tag.Name {
		candidate := strings.TrimSpace(slugCandidate)
		if candidate == "" {
			candidate = name
		}
		tag.Name = name
		tag.Slug = UniqueSlug(candidate, s.slugExists(tag.ID))
	}

	if err := s.db.Save(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// Delete removes a tag by id.
func (s *TagService) Delete(id uint) error {
	result := s.db.Delete(&db.Tag{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTagNotFound
	}
	return nil
}

func (s *TagService) slugExists(excludeID uint) func(string) bool {
	return func(slug string) bool {
		var count int64
		query := s.db.Model(&db.Tag{}).Where("slug = ?", slug)
		if excludeID > 0 {
			query = query.Where("id <> ?", excludeID)
		}
		query.Count(&count)
		return count > 0
	}
}
