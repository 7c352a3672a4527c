package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	User       UserRepository
	Paper      PaperRepository
	Assignment AssignmentRepository
	Review     ReviewRepository
	Outbox     OutboxRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:         db,
		User:       NewUserRepo(db),
		Paper:      NewPaperRepo(db),
		Assignment: NewAssignmentRepo(db),
		Review:     NewReviewRepo(db),
		Outbox:     NewOutboxRepo(db),
	}
}

// Transaction 在同一事务内执行 fn，fn 收到绑定事务的 Repository
// 未绑定数据库（单元测试中的 mock 聚合）时直接以自身调用 fn
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

// Savepoint 在当前事务内设置保存点，fn 失败时只回滚到保存点，外层事务继续
// 必须在 Transaction 回调内使用
func (r *Repository) Savepoint(ctx context.Context, name string, fn func() error) error {
	if r.db == nil {
		return fn()
	}

	db := r.db.WithContext(ctx)
	if err := db.SavePoint(name).Error; err != nil {
		return err
	}
	if err := fn(); err != nil {
		if rbErr := db.RollbackTo(name).Error; rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return nil
}

// Ping 数据库健康检查
func (r *Repository) Ping(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
