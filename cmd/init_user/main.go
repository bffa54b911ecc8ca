package main

import (
	"flag"

	"github.com/diario/internal/config"
	"github.com/diario/internal/db"
	"github.com/diario/internal/logger"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	errPasswordRequired = errors.New("password is required")
	errUnknownRole      = errors.New("unknown role")
)

func main() {
	username := flag.String("username", "admin", "用户名")
	password := flag.String("password", "", "密码（必填）")
	role := flag.String("role", db.RoleAdmin, "角色：admin、staff 或 reader")
	flag.Parse()

	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.GinMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	if err := ensureAccount(cfg.DatabaseURL, *username, *password, *role); err != nil {
		log.Fatal("failed to initialize user",
			zap.String("username", *username),
			zap.String("role", *role),
			zap.Error(err))
	}

	log.Info("user ready", zap.String("username", *username), zap.String("role", *role))
}

// ensureAccount 校验参数后初始化数据库并创建或更新账号。
func ensureAccount(databaseURL, username, password, role string) error {
	if password == "" {
		return errPasswordRequired
	}
	switch role {
	case db.RoleAdmin, db.RoleStaff, db.RoleReader:
	default:
		return errors.Wrap(errUnknownRole, role)
	}

	// 初始化数据库
	if err := db.Init(databaseURL); err != nil {
		return errors.Wrap(err, "init database")
	}
	return errors.Wrap(db.EnsureUser(db.DB, username, password, role), "ensure user")
}
