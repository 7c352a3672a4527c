package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"icodses/backend/internal/model"
)

// OutboxRepository 通知发件箱数据访问接口
type OutboxRepository interface {
	Create(ctx context.Context, msg *model.OutboxMessage) error
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]model.OutboxMessage, error)
	Lease(ctx context.Context, ids []uint, until time.Time) error
	MarkSent(ctx context.Context, id uint, at time.Time) error
	MarkRetry(ctx context.Context, id uint, attempts int, next time.Time, lastErr string) error
	MarkFailed(ctx context.Context, id uint, attempts int, lastErr string) error
	CountPending(ctx context.Context) (int64, error)
}

type outboxRepo struct {
	db *gorm.DB
}

// NewOutboxRepo 创建 OutboxRepository 实例
func NewOutboxRepo(db *gorm.DB) OutboxRepository {
	return &outboxRepo{db: db}
}

func (r *outboxRepo) Create(ctx context.Context, msg *model.OutboxMessage) error {
	if msg.Status == "" {
		msg.Status = model.OutboxPending
	}
	if msg.NextAttemptAt.IsZero() {
		msg.NextAttemptAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(msg).Error
}

// ClaimDue 锁定到期的待发送消息，其他实例跳过已锁定的行
// 需在事务内调用并随后 Lease，锁随事务释放
func (r *outboxRepo) ClaimDue(ctx context.Context, now time.Time, limit int) ([]model.OutboxMessage, error) {
	var list []model.OutboxMessage
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ? AND next_attempt_at <= ?", model.OutboxPending, now).
		Order("next_attempt_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

// Lease 推迟已领取消息的下次投递时间，领取事务提交后其他实例在租约内不会再领取
func (r *outboxRepo) Lease(ctx context.Context, ids []uint, until time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.OutboxMessage{}).
		Where("id IN ? AND status = ?", ids, model.OutboxPending).
		Updates(map[string]interface{}{
			"next_attempt_at": until,
			"updated_at":      time.Now(),
		}).Error
}

func (r *outboxRepo) MarkSent(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     model.OutboxSent,
			"attempts":   gorm.Expr("attempts + 1"),
			"sent_at":    at,
			"last_error": nil,
			"updated_at": at,
		}).Error
}

func (r *outboxRepo) MarkRetry(ctx context.Context, id uint, attempts int, next time.Time, lastErr string) error {
	return r.db.WithContext(ctx).
		Model(&model.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":        attempts,
			"next_attempt_at": next,
			"last_error":      lastErr,
			"updated_at":      time.Now(),
		}).Error
}

func (r *outboxRepo) MarkFailed(ctx context.Context, id uint, attempts int, lastErr string) error {
	return r.db.WithContext(ctx).
		Model(&model.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     model.OutboxFailed,
			"attempts":   attempts,
			"last_error": lastErr,
			"updated_at": time.Now(),
		}).Error
}

func (r *outboxRepo) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.OutboxMessage{}).
		Where("status = ?", model.OutboxPending).
		Count(&count).Error
	return count, err
}
