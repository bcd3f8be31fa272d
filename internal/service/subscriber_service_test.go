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

func setupSubscriberServiceTestDB(t *testing.T) (*gorm.DB, func()) {
	t.Helper()

	dsn := fmt.Sprintf("file:subscriber-service-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	if err := gdb.AutoMigrate(&db.Subscriber{}); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}

	return gdb, func() {
		sqlDB, err := gdb.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	}
}

func TestSubscribeNormalizesAndRejectsDuplicates(t *testing.T) {
	gdb, cleanup := setupSubscriberServiceTestDB(t)
	defer cleanup()

	svc := NewSubscriberService(gdb)
	subscriber, err := svc.Subscribe("  Reader@Example.COM ")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if subscriber.Email != "reader@example.com" {
		t.Fatalf("expected normalized email, got %q", subscriber.Email)
	}
	if subscriber.UnsubscribeToken == "" {
		t.Fatalf("expected unsubscribe token to be generated")
	}

	if _, err := svc.Subscribe("reader@example.com"); !errors.Is(err, ErrSubscriberExists) {
		t.Fatalf("expected ErrSubscriberExists, got %v", err)
	}
}

func TestUnsubscribeByToken(t *testing.T) {
	gdb, cleanup := setupSubscriberServiceTestDB(t)
	defer cleanup()

	svc := NewSubscriberService(gdb)
	subscriber, err := svc.Subscribe("reader@example.com")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := svc.Unsubscribe(subscriber.UnsubscribeToken); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}

	var count int64
	gdb.Model(&db.Subscriber{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected 0 subscribers, got %d", count)
	}

	if err := svc.Unsubscribe(subscriber.UnsubscribeToken); !errors.Is(err, ErrSubscriberNotFound) {
		t.Fatalf("expected ErrSubscriberNotFound, got %v", err)
	}
}

func TestListBatchPages(t *testing.T) {
	gdb, cleanup := setupSubscriberServiceTestDB(t)
	defer cleanup()

	svc := NewSubscriberService(gdb)
	for i := 0; i < 5; i++ {
		if _, err := svc.Subscribe(fmt.Sprintf("reader%d@example.com", i)); err != nil {
			t.Fatalf("subscribe %d: %v", i, err)
		}
	}

	var total int
	for offset := 0; ; offset += 2 {
		batch, err := svc.ListBatch(offset, 2)
		if err != nil {
			t.Fatalf("list batch: %v", err)
		}
		if len(batch) == 0 {
			break
		}
		total += len(batch)
	}

	if total != 5 {
		t.Fatalf("expected to traverse 5 subscribers, got %d", total)
	}
}
