package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/diario/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func createUser(t *testing.T, gdb *gorm.DB, username, role string) *db.User {
	t.Helper()
	user := db.User{Username: username, Password: "x", Role: role}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return &user
}

func createPublishedArticle(t *testing.T, gdb *gorm.DB, title string, publishedAt time.Time) *db.Article {
	t.Helper()
	article := db.Article{
		Title:               title,
		Slug:                db.Slugify(title),
		Status:              db.StatusPublished,
		PublishedAt:         publishedAt.UTC(),
		RollingWindowAnchor: publishedAt.UTC(),
	}
	if err := gdb.Create(&article).Error; err != nil {
		t.Fatalf("failed to create article: %v", err)
	}
	return &article
}

func reloadArticle(t *testing.T, gdb *gorm.DB, id uint) db.Article {
	t.Helper()
	var article db.Article
	if err := gdb.First(&article, id).Error; err != nil {
		t.Fatalf("failed to reload article: %v", err)
	}
	return article
}

// memoryCache 以 JSON 保存值，模拟远端缓存的序列化行为。
type memoryCache struct {
	mu     sync.Mutex
	items  map[string][]byte
	purges int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string, dst interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = raw
	return nil
}

func (c *memoryCache) Purge(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string][]byte)
	c.purges++
	return nil
}
