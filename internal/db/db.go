package db

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 是一个全局的数据库连接实例
var DB *gorm.DB

// Models 列出需要自动迁移的全部模型。
func Models() []interface{} {
	return []interface{}{
		&User{},
		&Article{},
		&ArticleVisit{},
		&ArticleReaction{},
		&GlobalMessage{},
		&MessageReply{},
		&ArticleComment{},
	}
}

// Init 初始化数据库连接并执行自动迁移。
// databaseURL 为 postgres DSN 时使用 postgres 驱动，否则视为 sqlite 文件路径；
// 为空时将回退到默认值 diario.db。
func Init(databaseURL string) error {
	gdb, err := Open(databaseURL, logger.Warn)
	if err != nil {
		return err
	}

	if err := Migrate(gdb); err != nil {
		return err
	}

	DB = gdb
	return nil
}

// Open 根据 DSN 选择驱动并建立连接，不执行迁移。
func Open(databaseURL string, level logger.LogLevel) (*gorm.DB, error) {
	dsn := strings.TrimSpace(databaseURL)
	if dsn == "" {
		dsn = "diario.db"
	}

	cfg := &gorm.Config{Logger: logger.Default.LogMode(level)}

	if isPostgresDSN(dsn) {
		return gorm.Open(postgres.Open(dsn), cfg)
	}

	if !strings.HasPrefix(dsn, "file:") {
		if err := ensureParentDir(dsn); err != nil {
			return nil, err
		}
	}

	// sqlite 默认不启用外键，级联删除由服务层显式完成
	return gorm.Open(sqlite.Open(sqliteDSN(dsn)), cfg)
}

// sqliteDSN 为文件库补上并发写入所需的参数：等待锁而不是立即报 busy，
// 事务一开始就拿写锁，避免读锁升级时互相冲突。已带参数的 DSN 原样返回。
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn
	}
	return dsn + "?_busy_timeout=5000&_txlock=immediate&_journal_mode=WAL"
}

// Migrate 为核心模型创建或更新表结构。
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(Models()...)
}

func isPostgresDSN(dsn string) bool {
	lower := strings.ToLower(dsn)
	return strings.HasPrefix(lower, "postgres://") ||
		strings.HasPrefix(lower, "postgresql://") ||
		strings.Contains(lower, "host=")
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
