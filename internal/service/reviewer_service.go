package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"icodses/backend/internal/dto"
	"icodses/backend/internal/model"
	"icodses/backend/internal/repository"
)

// ReviewerService 审稿人管理业务接口
type ReviewerService interface {
	Create(ctx context.Context, caller Caller, req *dto.CreateReviewerRequest) (*dto.CreateReviewerResponse, error)
	List(ctx context.Context, caller Caller) ([]dto.ReviewerResponse, error)
	ListWithAssignments(ctx context.Context, caller Caller) ([]dto.ReviewerWithAssignmentsResponse, error)
	Delete(ctx context.Context, caller Caller, id uint) (*dto.DeleteReviewerResponse, error)
}

type reviewerService struct {
	repo     *repository.Repository
	notifier NotificationService
	logger   *zap.Logger
}

// NewReviewerService 创建 ReviewerService 实例
func NewReviewerService(repo *repository.Repository, notifier NotificationService, logger *zap.Logger) ReviewerService {
	return &reviewerService{repo: repo, notifier: notifier, logger: logger}
}

// ────────────────────── Create ──────────────────────

// Create 新账号需首次登录后修改密码
func (s *reviewerService) Create(ctx context.Context, caller Caller, req *dto.CreateReviewerRequest) (*dto.CreateReviewerResponse, error) {
	if err := caller.require(model.RoleAdmin); err != nil {
		return nil, err
	}

	email := normalizeEmail(req.Email)
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	reviewer := &model.User{
		Name:               strings.TrimSpace(req.Name),
		Email:              email,
		PasswordHash:       string(hash),
		Role:               model.RoleReviewer,
		Track:              strings.TrimSpace(req.Track),
		MustChangePassword: true,
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.User.GetByEmail(ctx, email); err == nil {
			return ErrEmailTaken
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.User.Create(ctx, reviewer); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEmailTaken
			}
			return err
		}

		if err := tx.Savepoint(ctx, "notify_welcome", func() error {
			return s.notifier.EnqueueReviewerWelcome(ctx, tx, reviewer)
		}); err != nil {
			s.logger.Warn("审稿人欢迎邮件入队失败", zap.Uint("reviewer_id", reviewer.ID), zap.Error(err))
		}
		return nil
	})
	if err != nil {
		if !isDomainError(err) {
			s.logger.Error("创建审稿人失败", zap.String("email", email), zap.Error(err))
		}
		return nil, err
	}

	return &dto.CreateReviewerResponse{
		Message:  "审稿人创建成功",
		Reviewer: toReviewerResponse(reviewer),
	}, nil
}

// ────────────────────── List ──────────────────────

func (s *reviewerService) List(ctx context.Context, caller Caller) ([]dto.ReviewerResponse, error) {
	if err := caller.require(model.RoleAdmin); err != nil {
		return nil, err
	}

	users, err := s.repo.User.ListByRole(ctx, model.RoleReviewer)
	if err != nil {
		s.logger.Error("查询审稿人失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.ReviewerResponse, 0, len(users))
	for i := range users {
		result = append(result, toReviewerResponse(&users[i]))
	}
	return result, nil
}

// ────────────────────── ListWithAssignments ──────────────────────

func (s *reviewerService) ListWithAssignments(ctx context.Context, caller Caller) ([]dto.ReviewerWithAssignmentsResponse, error) {
	if err := caller.require(model.RoleAdmin); err != nil {
		return nil, err
	}

	users, err := s.repo.User.ListByRole(ctx, model.RoleReviewer)
	if err != nil {
		s.logger.Error("查询审稿人失败", zap.Error(err))
		return nil, err
	}
	assignments, err := s.repo.Assignment.ListWithPapers(ctx)
	if err != nil {
		s.logger.Error("查询分配记录失败", zap.Error(err))
		return nil, err
	}

	titles := make(map[uint][]string)
	for _, a := range assignments {
		if a.Paper != nil {
			titles[a.ReviewerID] = append(titles[a.ReviewerID], a.Paper.Title)
		}
	}

	result := make([]dto.ReviewerWithAssignmentsResponse, 0, len(users))
	for _, u := range users {
		list := titles[u.ID]
		if list == nil {
			list = []string{}
		}
		result = append(result, dto.ReviewerWithAssignmentsResponse{
			ID:              u.ID,
			Name:            u.Name,
			Email:           u.Email,
			Track:           u.Track,
			AssignmentCount: len(list),
			PaperTitles:     list,
		})
	}

	sort.SliceStable(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// ────────────────────── Delete ──────────────────────

// Delete 删除审稿人及其分配与审稿记录
func (s *reviewerService) Delete(ctx context.Context, caller Caller, id uint) (*dto.DeleteReviewerResponse, error) {
	if err := caller.require(model.RoleAdmin); err != nil {
		return nil, err
	}

	resp := &dto.DeleteReviewerResponse{ReviewerID: id}
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		user, err := tx.User.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReviewerNotFound
			}
			return err
		}
		if user.Role != model.RoleReviewer {
			return ErrReviewerNotFound
		}
		resp.ReviewerName = user.Name

		if resp.AssignmentsRemoved, err = tx.Assignment.DeleteByReviewer(ctx, id); err != nil {
			return err
		}
		if resp.ReviewsRemoved, err = tx.Review.DeleteByReviewer(ctx, id); err != nil {
			return err
		}

		deleted, err := tx.User.DeleteReviewer(ctx, id)
		if err != nil {
			return err
		}
		if deleted == 0 {
			return ErrReviewerNotFound
		}
		return nil
	})
	if err != nil {
		if !isDomainError(err) {
			s.logger.Error("删除审稿人失败", zap.Uint("reviewer_id", id), zap.Error(err))
		}
		return nil, err
	}

	resp.Message = "审稿人已删除"
	return resp, nil
}

func toReviewerResponse(u *model.User) dto.ReviewerResponse {
	return dto.ReviewerResponse{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Track: u.Track,
	}
}
