package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/heimaolst/shortlink/internal/model"
	"github.com/lib/pq"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrRecordNotFound 记录不存在，或不属于调用方
	ErrRecordNotFound = errors.New("record not found")
	// ErrDuplicateKey 违反唯一约束（短码、用户名、邮箱）
	ErrDuplicateKey = errors.New("duplicate key")
)

type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewStore(gdb *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: gdb, logger: logger}
}

// Open 根据 DATABASE_URL 打开数据库
func Open(databaseURL string, log *zap.Logger) (*Store, error) {
	dialector, err := dialectorFor(databaseURL)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if strings.Contains(databaseURL, ":memory:") {
		// 内存库每个连接都是独立的数据库
		if sqlDB, dbErr := gdb.DB(); dbErr == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}
	return NewStore(gdb, log), nil
}

// dialectorFor 根据前缀选择驱动：
// postgres:// 走 lib/pq，libsql:// 和 wss:// 走 Turso，其余按本地 SQLite 文件处理
func dialectorFor(databaseURL string) (gorm.Dialector, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		conn, err := sql.Open("postgres", databaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(10)
		return postgres.New(postgres.Config{Conn: conn}), nil
	case strings.HasPrefix(databaseURL, "libsql://"), strings.HasPrefix(databaseURL, "wss://"):
		conn, err := sql.Open("libsql", databaseURL)
		if err != nil {
			return nil, fmt.Errorf("open libsql: %w", err)
		}
		return &sqlite.Dialector{Conn: conn}, nil
	default:
		return sqlite.Open(databaseURL), nil
	}
}

// Migrate 自动迁移表结构，并为旧数据补齐搜索列
func (store *Store) Migrate(ctx context.Context) error {
	gdb := store.db.WithContext(ctx)
	if err := gdb.AutoMigrate(&model.Account{}, &model.Link{}); err != nil {
		return err
	}

	var batch []model.Link
	return gdb.Where("search_text = ?", "").FindInBatches(&batch, 200, func(tx *gorm.DB, _ int) error {
		for _, link := range batch {
			text := model.SearchText(link.Title, link.Description, link.OriginalURL)
			if err := store.db.WithContext(ctx).Model(&model.Link{}).
				Where("id = ?", link.ID).
				UpdateColumn("search_text", text).Error; err != nil {
				return err
			}
		}
		return nil
	}).Error
}

func (store *Store) Ping(ctx context.Context) error {
	sqlDB, err := store.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (store *Store) Close() error {
	sqlDB, err := store.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (store *Store) execTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := store.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			return fmt.Errorf("tx err: %v, rb err: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit().Error
}

// translate 把各驱动的错误统一成包内的哨兵错误
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRecordNotFound
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Name() == "unique_violation"
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
