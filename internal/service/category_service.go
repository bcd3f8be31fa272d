package service

import (
	"errors"
	"strings"

	"github.com/inkpress/internal/db"
	"gorm.io/gorm"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryName     = errors.New("category name is required")
	// ErrCounterUnderflow 表示 post_counts 即将减成负数，属于一致性被破坏的信号，
	// 交由调用方回滚并上报，而不是静默吸收。
	ErrCounterUnderflow = errors.New("category post count underflow")
)

// CategoryService wraps category related operations.
type CategoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a CategoryService instance.
func NewCategoryService(gdb *gorm.DB) *CategoryService {
	return &CategoryService{db: gdb}
}

// IncrementPostCounts 为一组分类的 post_counts 加一。必须在调用方事务内执行，
// 与文章文档写入共生死。
func (s *CategoryService) IncrementPostCounts(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return tx.Model(&db.Category{}).
		Where("id IN ?", ids).
		UpdateColumn("post_counts", gorm.Expr("post_counts + 1")).Error
}

// DecrementPostCounts 为一组分类的 post_counts 减一。受影响行数不足说明
// 某个分类的计数已经是零，按一致性破坏处理。
func (s *CategoryService) DecrementPostCounts(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}

	result := tx.Model(&db.Category{}).
		Where("id IN ? AND post_counts > 0", ids).
		UpdateColumn("post_counts", gorm.Expr("post_counts - 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != int64(len(ids)) {
		return ErrCounterUnderflow
	}
	return nil
}

// Reconcile 依据文章分类集合的新旧差值调整计数：
// 新增的分类加一，移除的减一，两边都有的不动。
func (s *CategoryService) Reconcile(tx *gorm.DB, oldIDs, newIDs []uint) error {
	added, removed := diffIDs(oldIDs, newIDs)
	if err := s.IncrementPostCounts(tx, added); err != nil {
		return err
	}
	return s.DecrementPostCounts(tx, removed)
}

// List returns categories ordered by created time descending.
func (s *CategoryService) List() ([]db.Category, error) {
	var categories []db.Category
	if err := s.db.Order("created_at desc").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// Get fetches a category by id.
func (s *CategoryService) Get(id uint) (*db.Category, error) {
	var category db.Category
	if err := s.db.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return &category, nil
}

// Create 新建分类并生成唯一 slug。
func (s *CategoryService) Create(name, slugCandidate, description string) (*db.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrCategoryName
	}

	candidate := strings.TrimSpace(slugCandidate)
	if candidate == "" {
		candidate = name
	}

	category := db.Category{
		Name:        name,
		Slug:        UniqueSlug(candidate, s.slugExists(0)),
		Description: strings.TrimSpace(description),
	}
	if err := s.db.Create(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// Update 更新分类；名称变化时重新派生唯一 slug。
// description 为 nil 表示未提供，指向空串则清空描述。
func (s *CategoryService) Update(id uint, name, slugCandidate string, description *string) (*db.Category, error) {
	var category db.Category
	if err := s.db.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name != "" && name != category.Name {
		candidate := strings.TrimSpace(slugCandidate)
		if candidate == "" {
			candidate = name
		}
		category.Name = name
		category.Slug = UniqueSlug(candidate, s.slugExists(category.ID))
	}
	if description != nil {
		category.Description = strings.TrimSpace(*description)
	}

	if err := s.db.Save(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// Delete removes a category by id.
func (s *CategoryService) Delete(id uint) error {
	result := s.db.Delete(&db.Category{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (s *CategoryService) slugExists(excludeID uint) func(string) bool {
	return func(slug string) bool {
		var count int64
		query := s.db.Model(&db.Category{}).Where("slug = ?", slug)
		if excludeID > 0 {
			query = query.Where("id <> ?", excludeID)
		}
		query.Count(&count)
		return count > 0
	}
}

// diffIDs 计算集合差：added = new - old，removed = old - new。
func diffIDs(oldIDs, newIDs []uint) (added, removed []uint) {
	oldSet := make(map[uint]struct{}, len(oldIDs))
	for _, id := range oldIDs {
		oldSet[id] = struct{}{}
	}
	newSet := make(map[uint]struct{}, len(newIDs))
	for _, id := range newIDs {
		newSet[id] = struct{}{}
	}

	for _, id := range newIDs {
		if _, ok := oldSet[id]; !ok {
			added = append(added, id)
		}
	}
	for _, id := range oldIDs {
		if _, ok := newSet[id]; !ok {
			removed = append(removed, id)
		}
	}
	return added, removed
}
