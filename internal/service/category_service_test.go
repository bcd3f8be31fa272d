package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/inkpress/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupCategoryServiceTestDB(t *testing.T) (*gorm.DB, func()) {
	t.Helper()

	dsn := fmt.Sprintf("file:category-service-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	if err := gdb.AutoMigrate(&db.Category{}, &db.Post{}); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}

	return gdb, func() {
		sqlDB, err := gdb.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	}
}

func seedCategories(t *testing.T, gdb *gorm.DB, names ...string) []db.Category {
	t.Helper()

	categories := make([]db.Category, 0, len(names))
	for _, name := range names {
		category := db.Category{Name: name, Slug: Slugify(name)}
		if err := gdb.Create(&category).Error; err != nil {
			t.Fatalf("failed to seed category %q: %v", name, err)
		}
		categories = append(categories, category)
	}
	return categories
}

func categoryCount(t *testing.T, gdb *gorm.DB, id uint) int64 {
	t.Helper()

	var category db.Category
	if err := gdb.First(&category, id).Error; err != nil {
		t.Fatalf("failed to load category %d: %v", id, err)
	}
	return category.PostCounts
}

func TestReconcileAdjustsOnlyChangedCategories(t *testing.T) {
	gdb, cleanup := setupCategoryServiceTestDB(t)
	defer cleanup()

	categories := seedCategories(t, gdb, "A", "B", "C")
	a, b, c := categories[0], categories[1], categories[2]

	svc := NewCategoryService(gdb)
	if err := svc.IncrementPostCounts(gdb, []uint{a.ID, b.ID}); err != nil {
		t.Fatalf("increment: %v", err)
	}

	// [A,B] -> [B,C]：A 减一、C 加一、B 不动
	if err := svc.Reconcile(gdb, []uint{a.ID, b.ID}, []uint{b.ID, c.ID}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	if got := categoryCount(t, gdb, a.ID); got != 0 {
		t.Fatalf("expected A count 0, got %d", got)
	}
	if got := categoryCount(t, gdb, b.ID); got != 1 {
		t.Fatalf("expected B count 1, got %d", got)
	}
	if got := categoryCount(t, gdb, c.ID); got != 1 {
		t.Fatalf("expected C count 1, got %d", got)
	}
}

func TestDecrementPostCountsUnderflow(t *testing.T) {
	gdb, cleanup := setupCategoryServiceTestDB(t)
	defer cleanup()

	categories := seedCategories(t, gdb, "Zeroed")

	svc := NewCategoryService(gdb)
	err := svc.DecrementPostCounts(gdb, []uint{categories[0].ID})
	if !errors.Is(err, ErrCounterUnderflow) {
		t.Fatalf("expected ErrCounterUnderflow, got %v", err)
	}
}

func TestCategoryServiceCreateGeneratesUniqueSlug(t *testing.T) {
	gdb, cleanup := setupCategoryServiceTestDB(t)
	defer cleanup()

	svc := NewCategoryService(gdb)
	first, err := svc.Create("Engineering", "", "")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	second, err := svc.Create("Engineering!", "", "tech notes")
	if err != nil {
		t.Fatalf("create second category: %v", err)
	}

	if first.Slug != "engineering" || second.Slug != "engineering-1" {
		t.Fatalf("unexpected slugs: %q, %q", first.Slug, second.Slug)
	}
	if second.Description != "tech notes" {
		t.Fatalf("expected description kept, got %q", second.Description)
	}
}

func TestCategoryServiceUpdateDescription(t *testing.T) {
	gdb, cleanup := setupCategoryServiceTestDB(t)
	defer cleanup()

	svc := NewCategoryService(gdb)
	category, err := svc.Create("Described", "", "original text")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	// 未提供描述时保持原值
	updated, err := svc.Update(category.ID, "Described", "", nil)
	if err != nil {
		t.Fatalf("update category: %v", err)
	}
	if updated.Description != "original text" {
		t.Fatalf("expected description kept, got %q", updated.Description)
	}

	// 指向空串则清空
	empty := ""
	updated, err = svc.Update(category.ID, "Described", "", &empty)
	if err != nil {
		t.Fatalf("clear description: %v", err)
	}
	if updated.Description != "" {
		t.Fatalf("expected description cleared, got %q", updated.Description)
	}

	var reloaded db.Category
	if err := gdb.First(&reloaded, category.ID).Error; err != nil {
		t.Fatalf("reload category: %v", err)
	}
	if reloaded.Description != "" {
		t.Fatalf("expected cleared description persisted, got %q", reloaded.Description)
	}
}

func TestCategoryServiceUpdateMissing(t *testing.T) {
	gdb, cleanup := setupCategoryServiceTestDB(t)
	defer cleanup()

	svc := NewCategoryService(gdb)
	if _, err := svc.Update(42, "Nope", "", nil); !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
}
