package repository

import (
	"context"

	"gorm.io/gorm"

	"icodses/backend/internal/model"
	pkgerrors "icodses/backend/pkg/errors"
)

// AssignmentRepository 审稿分配数据访问接口
type AssignmentRepository interface {
	Create(ctx context.Context, a *model.Assignment) error
	Exists(ctx context.Context, paperID, reviewerID uint) (bool, error)
	GetFirstByPaper(ctx context.Context, paperID uint) (*model.Assignment, error)
	ListByPaper(ctx context.Context, paperID uint) ([]model.Assignment, error)
	ListByPaperIDs(ctx context.Context, paperIDs []uint) ([]model.Assignment, error)
	ListByReviewer(ctx context.Context, reviewerID uint) ([]model.Assignment, error)
	ListWithPapers(ctx context.Context) ([]model.Assignment, error)
	List(ctx context.Context, filter PaperFilter) ([]model.AssignmentDetail, error)
	UpdateReviewer(ctx context.Context, a *model.Assignment, newReviewerID uint) error
	DeleteByPaper(ctx context.Context, paperID uint) (int64, error)
	DeleteByReviewer(ctx context.Context, reviewerID uint) (int64, error)
}

type assignmentRepo struct {
	db *gorm.DB
}

// NewAssignmentRepo 创建 AssignmentRepository 实例
func NewAssignmentRepo(db *gorm.DB) AssignmentRepository {
	return &assignmentRepo{db: db}
}

// Create 重复的 (paper_id, reviewer_id) 返回 gorm.ErrDuplicatedKey（需开启 TranslateError）
func (r *assignmentRepo) Create(ctx context.Context, a *model.Assignment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *assignmentRepo) Exists(ctx context.Context, paperID, reviewerID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Assignment{}).
		Where("paper_id = ? AND reviewer_id = ?", paperID, reviewerID).
		Count(&count).Error
	return count > 0, err
}

func (r *assignmentRepo) GetFirstByPaper(ctx context.Context, paperID uint) (*model.Assignment, error) {
	var a model.Assignment
	err := r.db.WithContext(ctx).
		Where("paper_id = ?", paperID).
		Order("id ASC").
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignmentRepo) ListByPaper(ctx context.Context, paperID uint) ([]model.Assignment, error) {
	var list []model.Assignment
	err := r.db.WithContext(ctx).
		Preload("Reviewer").
		Where("paper_id = ?", paperID).
		Order("assigned_at ASC").
		Order("id ASC").
		Find(&list).Error
	return list, err
}

func (r *assignmentRepo) ListByPaperIDs(ctx context.Context, paperIDs []uint) ([]model.Assignment, error) {
	var list []model.Assignment
	if len(paperIDs) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Reviewer").
		Where("paper_id IN ?", paperIDs).
		Order("assigned_at ASC").
		Order("id ASC").
		Find(&list).Error
	return list, err
}

func (r *assignmentRepo) ListByReviewer(ctx context.Context, reviewerID uint) ([]model.Assignment, error) {
	var list []model.Assignment
	err := r.db.WithContext(ctx).
		Preload("Paper").
		Where("reviewer_id = ?", reviewerID).
		Order("id ASC").
		Find(&list).Error
	return list, err
}

// ListWithPapers 全部分配及论文元数据，不含摘要内容
func (r *assignmentRepo) ListWithPapers(ctx context.Context) ([]model.Assignment, error) {
	var list []model.Assignment
	err := r.db.WithContext(ctx).
		Preload("Paper", selectPaperMeta).
		Order("id ASC").
		Find(&list).Error
	return list, err
}

// List 分配 + 论文 + 审稿人联表，按论文标题排序
func (r *assignmentRepo) List(ctx context.Context, filter PaperFilter) ([]model.AssignmentDetail, error) {
	var rows []model.AssignmentDetail

	db := r.db.WithContext(ctx).
		Table("paper_assignments AS pa").
		Select(`pa.id AS assignment_id, pa.paper_id, pa.reviewer_id,
			p.paper_title, COALESCE(p.tracks, '') AS paper_tracks, p.created_at AS paper_created,
			u.name AS reviewer_name, u.email AS reviewer_email, COALESCE(u.track, '') AS reviewer_track,
			pa.assigned_at`).
		Joins("JOIN papers p ON p.id = pa.paper_id").
		Joins("JOIN users u ON u.id = pa.reviewer_id")

	db = applyPaperFilter(db, filter, "p")
	if len(filter.ReviewerTracks) > 0 {
		db = db.Where("u.track IN ?", filter.ReviewerTracks)
	}

	err := db.
		Order("p.paper_title ASC").
		Order("pa.id ASC").
		Scan(&rows).Error
	return rows, err
}

// UpdateReviewer 条件更新：分配记录仍指向读取时的审稿人才会生效
func (r *assignmentRepo) UpdateReviewer(ctx context.Context, a *model.Assignment, newReviewerID uint) error {
	result := r.db.WithContext(ctx).
		Model(&model.Assignment{}).
		Where("id = ? AND reviewer_id = ?", a.ID, a.ReviewerID).
		Update("reviewer_id", newReviewerID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	a.ReviewerID = newReviewerID
	return nil
}

func (r *assignmentRepo) DeleteByPaper(ctx context.Context, paperID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("paper_id = ?", paperID).
		Delete(&model.Assignment{})
	return result.RowsAffected, result.Error
}

func (r *assignmentRepo) DeleteByReviewer(ctx context.Context, reviewerID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("reviewer_id = ?", reviewerID).
		Delete(&model.Assignment{})
	return result.RowsAffected, result.Error
}
