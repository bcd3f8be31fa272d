package service

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/inkpress/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrPostNotFound  = errors.New("post not found")
	ErrPostTitle     = errors.New("post title is required")
	ErrInvalidStatus = errors.New("invalid post status")
)

// Principal 是鉴权协作方解析出的已认证用户。
type Principal struct {
	ID    uint
	Name  string
	Email string
}

// PostService 编排文章的生命周期：slug 生成、标签解析、分类计数维护
// 在一个事务边界内完成，发布通知在事务之外尽力而为。
type PostService struct {
	db         *gorm.DB
	tags       *TagService
	categories *CategoryService
	activities *ActivityService
	notifier   *NotifyService
}

// NewPostService creates a PostService instance.
func NewPostService(gdb *gorm.DB, tags *TagService, categories *CategoryService, activities *ActivityService) *PostService {
	return &PostService{db: gdb, tags: tags, categories: categories, activities: activities}
}

// WithNotifier 挂接发布通知的群发器，未挂接时发布不触发邮件。
func (s *PostService) WithNotifier(n *NotifyService) *PostService {
	s.notifier = n
	return s
}

// PostInput represents fields accepted when creating a post.
type PostInput struct {
	Title            string
	Slug             string
	Content          string
	Excerpt          string
	Status           string
	FeaturedImageURL string
	FeaturedImageAlt string
	CategoryIDs      []uint
	TagNames         []string
	ContributorIDs   []uint
	FAQs             []db.FAQ
	Description      string
	SEOTitle         string
	MetaDescription  string
	StaticLeadMagnet string
}

// PostUpdate 描述部分更新，nil 表示该字段未提供。
// 字段白名单在此处固定，未知字段在绑定层即被丢弃。
type PostUpdate struct {
	Title            *string
	Slug             *string
	Content          *string
	Excerpt          *string
	Status           *string
	FeaturedImageURL *string
	FeaturedImageAlt *string
	CategoryIDs      *[]uint
	TagNames         *[]string
	ContributorIDs   *[]uint
	FAQs             *[]db.FAQ
	Description      *string
	SEOTitle         *string
	MetaDescription  *string
	StaticLeadMagnet *string
}

// PostFilter describes filters for listing posts.
type PostFilter struct {
	Status      string
	AuthorID    uint
	CategoryIDs []uint
	TagIDs      []uint
	Title       string
	Page        int
	Limit       int
}

// PostListResult aggregates paginated list data.
type PostListResult struct {
	Posts []db.Post
	Total int64
	Page  int
	Limit int
}

// Create 新建文章：生成唯一 slug、解析标签、写入文档并为初始分类集合加计数，
// 全部落在同一事务内。活动记录与发布通知位于事务之后，失败只记日志。
func (s *PostService) Create(input PostInput, author Principal) (*db.Post, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrPostTitle
	}

	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = db.StatusDraft
	}
	if !validStatus(status) {
		return nil, ErrInvalidStatus
	}

	var post db.Post
	err := s.db.Transaction(func(tx *gorm.DB) error {
		candidate := strings.TrimSpace(input.Slug)
		if candidate == "" {
			candidate = title
		}

		excerpt := strings.TrimSpace(input.Excerpt)
		if excerpt == "" {
			excerpt = ExcerptFrom(input.Content)
		}

		post = db.Post{
			Title:            title,
			Slug:             UniqueSlug(candidate, postSlugExists(tx, 0)),
			Content:          input.Content,
			Excerpt:          excerpt,
			Status:           status,
			AuthorID:         author.ID,
			FeaturedImageURL: strings.TrimSpace(input.FeaturedImageURL),
			FeaturedImageAlt: strings.TrimSpace(input.FeaturedImageAlt),
			Description:      input.Description,
			SEOTitle:         input.SEOTitle,
			MetaDescription:  input.MetaDescription,
			StaticLeadMagnet: input.StaticLeadMagnet,
			FAQs:             input.FAQs,
		}
		if err := tx.Create(&post).Error; err != nil {
			return err
		}

		if len(input.TagNames) > 0 {
			tags, err := s.tags.ResolveTags(tx, input.TagNames)
			if err != nil {
				return err
			}
			if err := tx.Model(&post).Association("Tags").Replace(uniqueTags(tags)); err != nil {
				return err
			}
		}

		if len(input.CategoryIDs) > 0 {
			categories, err := loadCategories(tx, input.CategoryIDs)
			if err != nil {
				return err
			}
			if err := tx.Model(&post).Association("Categories").Replace(categories); err != nil {
				return err
			}
			if err := s.categories.IncrementPostCounts(tx, categoryIDs(categories)); err != nil {
				return err
			}
		}

		if len(input.ContributorIDs) > 0 {
			contributors, err := loadUsers(tx, input.ContributorIDs)
			if err != nil {
				return err
			}
			if err := tx.Model(&post).Association("Contributors").Replace(contributors); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if post.Status == db.StatusPublished {
		s.recordActivity("New Post Published", post.Title)
		s.dispatchNotify(post)
	} else {
		s.recordActivity("Draft Saved", post.Title)
	}

	return s.Get(post.ID)
}

// Update 对文章做部分更新：标题变化时重派生 slug，正文变化且未显式给出
// 摘要时重派生摘要，分类变化时按新旧差值调整分类计数，并追加一条编辑历史。
// 以上全部在一个事务内提交，任何一步失败整体回滚。
func (s *PostService) Update(id uint, input PostUpdate, editor Principal) (*db.Post, error) {
	var post db.Post
	wasPublished := false

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// 分类差值必须基于事务内读到的当前集合，避免丢失更新
		if err := tx.Preload("Categories").First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}
		wasPublished = post.Status == db.StatusPublished

		updates := map[string]interface{}{}

		if input.Title != nil {
			title := strings.TrimSpace(*input.Title)
			if title == "" {
				return ErrPostTitle
			}
			candidate := title
			if input.Slug != nil && strings.TrimSpace(*input.Slug) != "" {
				candidate = strings.TrimSpace(*input.Slug)
			}
			post.Title = title
			updates["title"] = title
			updates["slug"] = UniqueSlug(candidate, postSlugExists(tx, post.ID))
		}

		if input.Content != nil {
			updates["content"] = *input.Content
			if input.Excerpt == nil {
				updates["excerpt"] = ExcerptFrom(*input.Content)
			}
		}
		if input.Excerpt != nil {
			updates["excerpt"] = strings.TrimSpace(*input.Excerpt)
		}

		if input.Status != nil {
			status := strings.TrimSpace(*input.Status)
			if !validStatus(status) {
				return ErrInvalidStatus
			}
			post.Status = status
			updates["status"] = status
		}

		if input.FeaturedImageURL != nil {
			updates["featured_image_url"] = strings.TrimSpace(*input.FeaturedImageURL)
		}
		if input.FeaturedImageAlt != nil {
			updates["featured_image_alt"] = strings.TrimSpace(*input.FeaturedImageAlt)
		}
		if input.Description != nil {
			updates["description"] = *input.Description
		}
		if input.SEOTitle != nil {
			updates["seo_title"] = *input.SEOTitle
		}
		if input.MetaDescription != nil {
			updates["meta_description"] = *input.MetaDescription
		}
		if input.StaticLeadMagnet != nil {
			updates["static_lead_magnet"] = *input.StaticLeadMagnet
		}
		if input.FAQs != nil {
			updates["faqs"] = db.FAQList(*input.FAQs)
		}

		if input.TagNames != nil {
			tags, err := s.tags.ResolveTags(tx, *input.TagNames)
			if err != nil {
				return err
			}
			if err := tx.Model(&post).Association("Tags").Replace(uniqueTags(tags)); err != nil {
				return err
			}
		}

		if input.ContributorIDs != nil {
			contributors, err := loadUsers(tx, *input.ContributorIDs)
			if err != nil {
				return err
			}
			if err := tx.Model(&post).Association("Contributors").Replace(contributors); err != nil {
				return err
			}
		}

		if input.CategoryIDs != nil {
			oldIDs := categoryIDs(post.Categories)
			categories, err := loadCategories(tx, *input.CategoryIDs)
			if err != nil {
				return err
			}
			newIDs := categoryIDs(categories)
			if err := s.categories.Reconcile(tx, oldIDs, newIDs); err != nil {
				return err
			}
			if err := tx.Model(&post).Association("Categories").Replace(categories); err != nil {
				return err
			}
		}

		if len(updates) > 0 {
			if err := tx.Model(&post).Updates(updates).Error; err != nil {
				return err
			}
		}

		// 编辑历史只追加，与本次更新同事务提交
		edit := db.PostEdit{
			PostID:       post.ID,
			ModifierID:   editor.ID,
			ModifierName: editor.Name,
			ModifiedAt:   time.Now(),
		}
		return tx.Create(&edit).Error
	})
	if err != nil {
		return nil, err
	}

	if !wasPublished && post.Status == db.StatusPublished {
		s.recordActivity("New Post Published", post.Title)
		s.dispatchNotify(post)
	}

	return s.Get(post.ID)
}

// Remove 硬删除文章，并在同一事务内为其引用的全部分类减计数。
func (s *PostService) Remove(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var post db.Post
		if err := tx.Preload("Categories").First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}

		if err := s.categories.DecrementPostCounts(tx, categoryIDs(post.Categories)); err != nil {
			return err
		}

		return tx.Unscoped().Select(clause.Associations).Delete(&post).Error
	})
}

// Get fetches a post by id with associations preloaded.
func (s *PostService) Get(id uint) (*db.Post, error) {
	var post db.Post
	if err := s.db.
		Preload("Categories").
		Preload("Tags").
		Preload("Contributors").
		Preload("Author").
		First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

// GetBySlug 按 slug 返回已发布的文章，面向公开访问，其余状态一律视为不存在。
func (s *PostService) GetBySlug(slug string) (*db.Post, error) {
	var post db.Post
	if err := s.db.
		Preload("Categories").
		Preload("Tags").
		Preload("Author").
		Where("slug = ? AND status = ?", slug, db.StatusPublished).
		First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

// List provides paginated posts based on filters, newest first.
func (s *PostService) List(filter PostFilter) (*PostListResult, error) {
	result := &PostListResult{Page: filter.Page, Limit: filter.Limit}
	if result.Page <= 0 {
		result.Page = 1
	}
	if result.Limit <= 0 {
		result.Limit = 20
	}

	countQuery := s.applyFilters(s.db.Model(&db.Post{}), filter)
	if err := countQuery.Count(&result.Total).Error; err != nil {
		return nil, err
	}

	offset := (result.Page - 1) * result.Limit

	var posts []db.Post
	dataQuery := s.applyFilters(
		s.db.Model(&db.Post{}).
			Preload("Categories").
			Preload("Tags").
			Preload("Author"),
		filter,
	)
	if err := dataQuery.
		Order("posts.created_at desc").
		Limit(result.Limit).
		Offset(offset).
		Find(&posts).Error; err != nil {
		return nil, err
	}

	result.Posts = posts
	return result, nil
}

func (s *PostService) applyFilters(query *gorm.DB, filter PostFilter) *gorm.DB {
	if filter.Status != "" {
		query = query.Where("posts.status = ?", filter.Status)
	}

	if filter.AuthorID > 0 {
		query = query.Where("posts.author_id = ?", filter.AuthorID)
	}

	if len(filter.CategoryIDs) > 0 {
		subQuery := s.db.Table("post_categories").
			Select("post_categories.post_id").
			Where("post_categories.category_id IN ?", filter.CategoryIDs)
		query = query.Where("posts.id IN (?)", subQuery)
	}

	if len(filter.TagIDs) > 0 {
		subQuery := s.db.Table("post_tags").
			Select("post_tags.post_id").
			Where("post_tags.tag_id IN ?", filter.TagIDs)
		query = query.Where("posts.id IN (?)", subQuery)
	}

	if filter.Title != "" {
		query = query.Where("LOWER(posts.title) LIKE ?", "%"+strings.ToLower(filter.Title)+"%")
	}

	return query
}

func (s *PostService) recordActivity(title, message string) {
	if s.activities == nil {
		return
	}
	if err := s.activities.Create(title, message); err != nil {
		log.Printf("post: record activity %q failed: %v", title, err)
	}
}

func (s *PostService) dispatchNotify(post db.Post) {
	if s.notifier == nil {
		return
	}
	s.notifier.Dispatch(post)
}

func validStatus(status string) bool {
	switch status {
	case db.StatusDraft, db.StatusPublished, db.StatusScheduled:
		return true
	}
	return false
}

// postSlugExists 的存在性判定落在事务内，反映未提交的写入。
func postSlugExists(tx *gorm.DB, excludeID uint) func(string) bool {
	return func(slug string) bool {
		var count int64
		query := tx.Model(&db.Post{}).Where("slug = ?", slug)
		if excludeID > 0 {
			query = query.Where("id <> ?", excludeID)
		}
		query.Count(&count)
		return count > 0
	}
}

func loadCategories(tx *gorm.DB, ids []uint) ([]db.Category, error) {
	unique := uniqueIDs(ids)
	if len(unique) == 0 {
		return nil, nil
	}

	var categories []db.Category
	if err := tx.Where("id IN ?", unique).Find(&categories).Error; err != nil {
		return nil, err
	}
	if len(categories) != len(unique) {
		return nil, ErrCategoryNotFound
	}
	return categories, nil
}

func loadUsers(tx *gorm.DB, ids []uint) ([]db.User, error) {
	unique := uniqueIDs(ids)
	if len(unique) == 0 {
		return nil, nil
	}

	var users []db.User
	if err := tx.Where("id IN ?", unique).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func categoryIDs(categories []db.Category) []uint {
	ids := make([]uint, 0, len(categories))
	for _, category := range categories {
		ids = append(ids, category.ID)
	}
	return ids
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}

// uniqueTags 去重后用于关联替换；ResolveTags 的返回保持与输入同序，可能含重复。
func uniqueTags(tags []db.Tag) []db.Tag {
	seen := make(map[uint]struct{}, len(tags))
	unique := make([]db.Tag, 0, len(tags))
	for _, tag := range tags {
		if _, ok := seen[tag.ID]; ok {
			continue
		}
		seen[tag.ID] = struct{}{}
		unique = append(unique, tag)
	}
	return unique
}
