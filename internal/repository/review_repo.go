package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"icodses/backend/internal/model"
)

// ReviewRepository 审稿台账数据访问接口
type ReviewRepository interface {
	Upsert(ctx context.Context, review *model.Review) error
	Latest(ctx context.Context, paperID uint) (*model.Review, error)
	ListByPaperIDs(ctx context.Context, paperIDs []uint) ([]model.Review, error)
	ListByReviewer(ctx context.Context, reviewerID uint) ([]model.Review, error)
	DeleteByReviewer(ctx context.Context, reviewerID uint) (int64, error)
}

type reviewRepo struct {
	db *gorm.DB
}

// NewReviewRepo 创建 ReviewRepository 实例
func NewReviewRepo(db *gorm.DB) ReviewRepository {
	return &reviewRepo{db: db}
}

// Upsert 按 (paper_id, reviewer_id) 插入或覆盖，不保留历史
func (r *reviewRepo) Upsert(ctx context.Context, review *model.Review) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "paper_id"}, {Name: "reviewer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "comments", "seq", "reviewed_at"}),
		}).
		Create(review).Error
}

// Latest 论文 seq 最大的审稿记录
func (r *reviewRepo) Latest(ctx context.Context, paperID uint) (*model.Review, error) {
	var review model.Review
	err := r.db.WithContext(ctx).
		Preload("Reviewer").
		Where("paper_id = ?", paperID).
		Order("seq DESC").
		Order("id DESC").
		First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *reviewRepo) ListByPaperIDs(ctx context.Context, paperIDs []uint) ([]model.Review, error) {
	var list []model.Review
	if len(paperIDs) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Reviewer").
		Where("paper_id IN ?", paperIDs).
		Find(&list).Error
	return list, err
}

func (r *reviewRepo) ListByReviewer(ctx context.Context, reviewerID uint) ([]model.Review, error) {
	var list []model.Review
	err := r.db.WithContext(ctx).
		Where("reviewer_id = ?", reviewerID).
		Find(&list).Error
	return list, err
}

func (r *reviewRepo) DeleteByReviewer(ctx context.Context, reviewerID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("reviewer_id = ?", reviewerID).
		Delete(&model.Review{})
	return result.RowsAffected, result.Error
}
