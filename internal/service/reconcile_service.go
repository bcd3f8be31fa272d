package service

import (
	"log"

	"github.com/inkpress/internal/db"
	"gorm.io/gorm"
)

// ReconcileService 是热路径之外的审计任务：重算增量计数器并校正漂移，
// 而不是永远信任增量本身。
type ReconcileService struct {
	db *gorm.DB
}

// NewReconcileService creates a ReconcileService instance.
func NewReconcileService(gdb *gorm.DB) *ReconcileService {
	return &ReconcileService{db: gdb}
}

// Run 执行一轮校正：
//   - 分类的 post_counts 以关联表的实际引用数为准；
//   - 文章生命周期 views 不得低于其月桶之和，不足的补齐。
//     高出的部分视为迁移前的历史浏览量，保留不动。
func (s *ReconcileService) Run() error {
	if err := s.reconcileCategoryCounts(); err != nil {
		return err
	}
	return s.reconcilePostViews()
}

func (s *ReconcileService) reconcileCategoryCounts() error {
	var rows []struct {
		ID         uint
		PostCounts int64
		Actual     int64
	}
	if err := s.db.Raw(`
		SELECT c.id AS id, c.post_counts AS post_counts,
		       (SELECT COUNT(*)
		          FROM post_categories pc
		          JOIN posts p ON p.id = pc.post_id AND p.deleted_at IS NULL
		         WHERE pc.category_id = c.id) AS actual
		  FROM categories c
		 WHERE c.deleted_at IS NULL`).Scan(&rows).Error; err != nil {
		return err
	}

	for _, row := range rows {
		if row.PostCounts == row.Actual {
			continue
		}
		if err := s.db.Model(&db.Category{}).
			Where("id = ?", row.ID).
			UpdateColumn("post_counts", row.Actual).Error; err != nil {
			return err
		}
		log.Printf("reconcile: category %d post_counts %d -> %d", row.ID, row.PostCounts, row.Actual)
	}
	return nil
}

func (s *ReconcileService) reconcilePostViews() error {
	var rows []struct {
		ID       uint
		Views    uint64
		Bucketed uint64
	}
	if err := s.db.Raw(`
		SELECT p.id AS id, p.views AS views,
		       COALESCE((SELECT SUM(v.views)
		                   FROM post_monthly_views v
		                  WHERE v.post_id = p.id), 0) AS bucketed
		  FROM posts p
		 WHERE p.deleted_at IS NULL`).Scan(&rows).Error; err != nil {
		return err
	}

	for _, row := range rows {
		if row.Views >= row.Bucketed {
			continue
		}
		if err := s.db.Model(&db.Post{}).
			Where("id = ?", row.ID).
			UpdateColumn("views", row.Bucketed).Error; err != nil {
			return err
		}
		log.Printf("reconcile: post %d views %d -> %d", row.ID, row.Views, row.Bucketed)
	}
	return nil
}
