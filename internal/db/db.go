package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 是一个全局的数据库连接实例
var DB *gorm.DB

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Init 初始化数据库连接并执行自动迁移。
// driver 为空时使用 sqlite，dsn 为空时回退到默认值 naturalys.db。
func Init(driver, dsn string) error {
	gdb, err := Open(driver, dsn)
	if err != nil {
		return err
	}
	if err := Migrate(gdb); err != nil {
		return err
	}
	DB = gdb
	return nil
}

// Open 只负责建立连接，不做迁移。
func Open(driver, dsn string) (*gorm.DB, error) {
	dialector, err := openDialector(driver, dsn)
	if err != nil {
		return nil, err
	}
	return gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
}

// Migrate 自动迁移模式，为核心模型创建表
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&User{},
		&Product{},
		&MainButton{},
		&StoreSettings{},
		&ImageAsset{},
		&Brand{},
		&CatalogProduct{},
		&CacheEntry{},
	)
}

// NewSQLX 基于 gorm 的连接池构造 sqlx 句柄，供原生 SQL 查询使用。
func NewSQLX(gdb *gorm.DB) (*sqlx.DB, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	driverName := "sqlite3"
	if gdb.Dialector.Name() == DriverMySQL {
		driverName = "mysql"
	}
	return sqlx.NewDb(sqlDB, driverName), nil
}

func openDialector(driver, dsn string) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverSQLite:
		path := strings.TrimSpace(dsn)
		if path == "" {
			path = "naturalys.db"
		}
		if !strings.HasPrefix(path, "file:") {
			if err := ensureParentDir(path); err != nil {
				return nil, err
			}
		}
		return sqlite.Open(path), nil
	case DriverMySQL:
		cfg, err := mysql.ParseDSN(strings.TrimSpace(dsn))
		if err != nil {
			return nil, fmt.Errorf("parse mysql dsn: %w", err)
		}
		// created_at/updated_at 需要解析为 time.Time
		cfg.ParseTime = true
		// 迁移脚本一次提交多条语句
		cfg.MultiStatements = true
		return gormmysql.Open(cfg.FormatDSN()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
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
