package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"icodses/backend/internal/model"
)

// PaperRepository 论文数据访问接口
type PaperRepository interface {
	Create(ctx context.Context, paper *model.Paper) error
	GetByID(ctx context.Context, id uint) (*model.Paper, error)
	GetMeta(ctx context.Context, id uint) (*model.Paper, error)
	ListByUser(ctx context.Context, userID uint) ([]model.Paper, error)
	ListAll(ctx context.Context) ([]model.Paper, error)
	ListUnassigned(ctx context.Context, filter PaperFilter) ([]model.Paper, error)
	UpdateStatus(ctx context.Context, id uint, status model.PaperStatus) error
	NextReviewSeq(ctx context.Context, id uint) (int64, error)
	CountByCountry(ctx context.Context) ([]GroupCount, error)
	CountByState(ctx context.Context) ([]GroupCount, error)
}

type paperRepo struct {
	db *gorm.DB
}

// NewPaperRepo 创建 PaperRepository 实例
func NewPaperRepo(db *gorm.DB) PaperRepository {
	return &paperRepo{db: db}
}

func (r *paperRepo) Create(ctx context.Context, paper *model.Paper) error {
	return r.db.WithContext(ctx).Create(paper).Error
}

func (r *paperRepo) GetByID(ctx context.Context, id uint) (*model.Paper, error) {
	var paper model.Paper
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&paper).Error
	if err != nil {
		return nil, err
	}
	return &paper, nil
}

// paperMetaColumns 除 abstract_blob 外的全部列
var paperMetaColumns = []string{
	"id", "user_id", "paper_title", "authors", "email", "tracks",
	"country", "state", "city", "status", "review_seq", "created_at", "updated_at",
}

// selectPaperMeta 只查元数据，供预加载使用
func selectPaperMeta(db *gorm.DB) *gorm.DB {
	return db.Select(paperMetaColumns)
}

// GetMeta 同 GetByID，但不读取摘要内容，AbstractBlob 为 nil
func (r *paperRepo) GetMeta(ctx context.Context, id uint) (*model.Paper, error) {
	var paper model.Paper
	err := r.db.WithContext(ctx).
		Select(paperMetaColumns).
		Where("id = ?", id).
		First(&paper).Error
	if err != nil {
		return nil, err
	}
	return &paper, nil
}

func (r *paperRepo) ListByUser(ctx context.Context, userID uint) ([]model.Paper, error) {
	var papers []model.Paper
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&papers).Error
	return papers, err
}

func (r *paperRepo) ListAll(ctx context.Context) ([]model.Paper, error) {
	var papers []model.Paper
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&papers).Error
	return papers, err
}

// ListUnassigned 没有任何分配记录的论文
func (r *paperRepo) ListUnassigned(ctx context.Context, filter PaperFilter) ([]model.Paper, error) {
	var papers []model.Paper
	db := r.db.WithContext(ctx).
		Where("NOT EXISTS (SELECT 1 FROM paper_assignments pa WHERE pa.paper_id = papers.id)")
	db = applyPaperFilter(db, filter, "papers")
	err := db.
		Order("created_at DESC").
		Order("id DESC").
		Find(&papers).Error
	return papers, err
}

func (r *paperRepo) UpdateStatus(ctx context.Context, id uint, status model.PaperStatus) error {
	result := r.db.WithContext(ctx).
		Model(&model.Paper{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// NextReviewSeq 递增并返回论文的审稿序号，事务内调用时同时锁定该行
func (r *paperRepo) NextReviewSeq(ctx context.Context, id uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Paper{}).
		Where("id = ?", id).
		UpdateColumn("review_seq", gorm.Expr("review_seq + 1"))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	var paper model.Paper
	err := r.db.WithContext(ctx).
		Select("id", "review_seq").
		Where("id = ?", id).
		First(&paper).Error
	if err != nil {
		return 0, err
	}
	return paper.ReviewSeq, nil
}

func (r *paperRepo) CountByCountry(ctx context.Context) ([]GroupCount, error) {
	return r.countBy(ctx, "country")
}

func (r *paperRepo) CountByState(ctx context.Context) ([]GroupCount, error) {
	return r.countBy(ctx, "state")
}

// countBy column 只接受内部常量
func (r *paperRepo) countBy(ctx context.Context, column string) ([]GroupCount, error) {
	var rows []GroupCount
	err := r.db.WithContext(ctx).
		Model(&model.Paper{}).
		Select(column + " AS name, COUNT(*) AS count").
		Where(column + " IS NOT NULL AND " + column + " <> ''").
		Group(column).
		Order("count DESC").
		Order(column + " ASC").
		Scan(&rows).Error
	return rows, err
}
