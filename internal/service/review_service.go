package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"icodses/backend/internal/dto"
	"icodses/backend/internal/model"
	"icodses/backend/internal/repository"
	"icodses/backend/pkg/metrics"
)

// ReviewService 审稿台账业务接口
type ReviewService interface {
	AssignedPapers(ctx context.Context, caller Caller) ([]dto.AssignedPaperResponse, error)
	UpdateStatus(ctx context.Context, caller Caller, req *dto.UpdatePaperStatusRequest) (*dto.UpdatePaperStatusResponse, error)
	Latest(ctx context.Context, caller Caller, paperID uint) (*dto.ReviewResponse, error)
}

type reviewService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewReviewService 创建 ReviewService 实例
func NewReviewService(repo *repository.Repository, logger *zap.Logger) ReviewService {
	return &reviewService{repo: repo, logger: logger, now: time.Now}
}

// ────────────────────── AssignedPapers ──────────────────────

func (s *reviewService) AssignedPapers(ctx context.Context, caller Caller) ([]dto.AssignedPaperResponse, error) {
	if err := caller.require(model.RoleReviewer); err != nil {
		return nil, err
	}

	assignments, err := s.repo.Assignment.ListByReviewer(ctx, caller.ID)
	if err != nil {
		s.logger.Error("查询分配论文失败", zap.Uint("reviewer_id", caller.ID), zap.Error(err))
		return nil, err
	}
	reviews, err := s.repo.Review.ListByReviewer(ctx, caller.ID)
	if err != nil {
		s.logger.Error("查询审稿记录失败", zap.Uint("reviewer_id", caller.ID), zap.Error(err))
		return nil, err
	}
	mine := make(map[uint]*model.Review, len(reviews))
	for i := range reviews {
		mine[reviews[i].PaperID] = &reviews[i]
	}

	result := make([]dto.AssignedPaperResponse, 0, len(assignments))
	for _, a := range assignments {
		p := a.Paper
		if p == nil {
			continue
		}
		blob, kind := encodeAbstract(p.AbstractBlob)
		rs, rc, ra := reviewFields(mine[p.ID])
		result = append(result, dto.AssignedPaperResponse{
			ID:               p.ID,
			PaperTitle:       p.Title,
			Authors:          rawAuthors(p),
			Email:            p.Email,
			Status:           string(p.Status),
			CreatedAt:        p.CreatedAt,
			AbstractBlob:     blob,
			AbstractFileType: kind,
			AssignedAt:       a.AssignedAt,
			ReviewStatus:     rs,
			Comments:         rc,
			ReviewedAt:       ra,
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// ────────────────────── UpdateStatus ──────────────────────

// UpdateStatus 记录审稿结论；accepted/rejected/published 同步到论文状态
// 同步在保存点内执行，失败只记录日志，审稿记录照常提交
func (s *reviewService) UpdateStatus(ctx context.Context, caller Caller, req *dto.UpdatePaperStatusRequest) (*dto.UpdatePaperStatusResponse, error) {
	if err := caller.require(model.RoleReviewer); err != nil {
		return nil, err
	}

	status := model.PaperStatus(req.Status)
	if !status.IsReviewStatus() {
		return nil, ErrInvalidReviewStatus
	}

	propagation := "skipped"
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		assigned, err := tx.Assignment.Exists(ctx, req.PaperID, caller.ID)
		if err != nil {
			return err
		}
		if !assigned {
			return ErrNotAssigned
		}

		seq, err := tx.Paper.NextReviewSeq(ctx, req.PaperID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaperNotFound
			}
			return err
		}

		review := &model.Review{
			PaperID:    req.PaperID,
			ReviewerID: caller.ID,
			Status:     status,
			Comments:   req.Comments,
			Seq:        seq,
			ReviewedAt: s.now(),
		}
		if err := tx.Review.Upsert(ctx, review); err != nil {
			return err
		}

		if !status.Propagates() {
			return nil
		}
		if err := tx.Savepoint(ctx, "propagate_status", func() error {
			return tx.Paper.UpdateStatus(ctx, req.PaperID, status)
		}); err != nil {
			propagation = "failed"
			s.logger.Error("论文状态同步失败",
				zap.Uint("paper_id", req.PaperID),
				zap.Uint("reviewer_id", caller.ID),
				zap.String("status", string(status)),
				zap.Error(err),
			)
			return nil
		}
		propagation = "applied"
		return nil
	})
	if err != nil {
		if !isDomainError(err) {
			s.logger.Error("记录审稿结论失败",
				zap.Uint("paper_id", req.PaperID),
				zap.Uint("reviewer_id", caller.ID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	metrics.ReviewRecorded(string(status))
	metrics.StatusPropagated(propagation)

	return &dto.UpdatePaperStatusResponse{
		Message:  "审稿结论已更新",
		PaperID:  req.PaperID,
		Status:   string(status),
		Comments: req.Comments,
	}, nil
}

// ────────────────────── Latest ──────────────────────

func (s *reviewService) Latest(ctx context.Context, caller Caller, paperID uint) (*dto.ReviewResponse, error) {
	if err := caller.require(model.RoleAdmin); err != nil {
		return nil, err
	}

	if _, err := s.repo.Paper.GetMeta(ctx, paperID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaperNotFound
		}
		s.logger.Error("查询论文失败", zap.Uint("paper_id", paperID), zap.Error(err))
		return nil, err
	}

	review, err := s.repo.Review.Latest(ctx, paperID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoReviewYet
		}
		s.logger.Error("查询最新审稿结论失败", zap.Uint("paper_id", paperID), zap.Error(err))
		return nil, err
	}

	resp := &dto.ReviewResponse{
		PaperID:    review.PaperID,
		ReviewerID: review.ReviewerID,
		Status:     string(review.Status),
		Comments:   review.Comments,
		ReviewedAt: review.ReviewedAt,
	}
	if review.Reviewer != nil {
		resp.ReviewerName = review.Reviewer.Name
	}
	return resp, nil
}
