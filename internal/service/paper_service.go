package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"icodses/backend/config"
	"icodses/backend/internal/dto"
	"icodses/backend/internal/model"
	"icodses/backend/internal/repository"
	"icodses/backend/pkg/storage"
)

// PaperService 投稿与论文查询业务接口
type PaperService interface {
	Submit(ctx context.Context, caller Caller, req *dto.SubmitPaperRequest, abstract []byte) (*dto.SubmitPaperResponse, error)
	ListStatusForUser(ctx context.Context, userID uint) ([]dto.PaperStatusResponse, error)
	ListUnassigned(ctx context.Context, caller Caller, q *dto.PaperFilterQuery) ([]dto.UnassignedPaperResponse, error)
	ListRegistrations(ctx context.Context, caller Caller) ([]dto.RegistrationResponse, error)
	Analytics(ctx context.Context, caller Caller) (*dto.AnalyticsResponse, error)
	SendStatusEmail(ctx context.Context, caller Caller, paperID uint) (*dto.SendStatusEmailResponse, error)
}

type paperService struct {
	cfg      *config.Config
	repo     *repository.Repository
	notifier NotificationService
	archive  storage.Archive
	logger   *zap.Logger
	loc      *time.Location
}

// NewPaperService 创建 PaperService 实例，archive 为 nil 时不归档摘要
func NewPaperService(
	cfg *config.Config,
	repo *repository.Repository,
	notifier NotificationService,
	archive storage.Archive,
	logger *zap.Logger,
) PaperService {
	return &paperService{
		cfg:      cfg,
		repo:     repo,
		notifier: notifier,
		archive:  archive,
		logger:   logger,
		loc:      dbLocation(cfg.Database.Timezone, logger),
	}
}

// ────────────────────── Submit ──────────────────────

func (s *paperService) Submit(ctx context.Context, caller Caller, req *dto.SubmitPaperRequest, abstract []byte) (*dto.SubmitPaperResponse, error) {
	if err := caller.require(model.RoleUser); err != nil {
		return nil, err
	}

	authors, err := parseSubmittedAuthors(req.Authors)
	if err != nil {
		return nil, err
	}
	if len(abstract) == 0 {
		return nil, ErrAbstractRequired
	}
	if limit := s.cfg.Upload.MaxAbstractBytes; limit > 0 && int64(len(abstract)) > limit {
		return nil, ErrAbstractTooLarge
	}

	encoded, err := model.EncodeAuthors(authors)
	if err != nil {
		return nil, ErrInvalidAuthors
	}

	paper := &model.Paper{
		UserID:       caller.ID,
		Title:        strings.TrimSpace(req.PaperTitle),
		Authors:      encoded,
		AbstractBlob: abstract,
		Email:        authors[0].Email,
		Tracks:       strings.TrimSpace(req.Tracks),
		Country:      strings.TrimSpace(req.Country),
		State:        strings.TrimSpace(req.State),
		City:         strings.TrimSpace(req.City),
		Status:       model.StatusSubmitted,
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Paper.Create(ctx, paper); err != nil {
			return err
		}
		if err := tx.Savepoint(ctx, "notify_submission", func() error {
			return s.notifier.EnqueueSubmissionConfirmation(ctx, tx, paper, authors)
		}); err != nil {
			s.logger.Warn("投稿确认邮件入队失败", zap.Uint("paper_id", paper.ID), zap.Error(err))
		}
		return nil
	})
	if err != nil {
		s.logger.Error("保存投稿失败", zap.Uint("user_id", caller.ID), zap.Error(err))
		return nil, err
	}

	if s.archive != nil {
		ext := string(model.SniffAbstract(abstract))
		if url, err := s.archive.PutAbstract(ctx, paper.ID, ext, abstract); err != nil {
			s.logger.Warn("摘要归档失败", zap.Uint("paper_id", paper.ID), zap.Error(err))
		} else {
			s.logger.Info("摘要已归档", zap.Uint("paper_id", paper.ID), zap.String("url", url))
		}
	}

	return &dto.SubmitPaperResponse{
		ID:      paper.ID,
		Status:  string(paper.Status),
		Message: "投稿成功",
	}, nil
}

// parseSubmittedAuthors 至少一位作者，第一作者须有姓名与邮箱
func parseSubmittedAuthors(raw string) ([]model.Author, error) {
	var authors []model.Author
	if err := json.Unmarshal([]byte(raw), &authors); err != nil {
		return nil, ErrInvalidAuthors
	}
	if len(authors) == 0 {
		return nil, ErrInvalidAuthors
	}
	for i := range authors {
		authors[i].Name = strings.TrimSpace(authors[i].Name)
		authors[i].Email = normalizeEmail(authors[i].Email)
	}
	if authors[0].Name == "" || authors[0].Email == "" {
		return nil, ErrInvalidAuthors
	}
	return authors, nil
}

// ────────────────────── ListStatusForUser ──────────────────────

// ListStatusForUser 作者的投稿状态，每个已分配审稿人一行，未分配的论文一行
func (s *paperService) ListStatusForUser(ctx context.Context, userID uint) ([]dto.PaperStatusResponse, error) {
	papers, err := s.repo.Paper.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("查询用户投稿失败", zap.Uint("user_id", userID), zap.Error(err))
		return nil, err
	}

	assignments, latest, err := s.loadAssignmentsAndReviews(ctx, papers)
	if err != nil {
		return nil, err
	}

	result := make([]dto.PaperStatusResponse, 0, len(papers))
	for i := range papers {
		p := &papers[i]
		blob, kind := encodeAbstract(p.AbstractBlob)
		rs, rc, ra := reviewFields(latest[p.ID])
		base := dto.PaperStatusResponse{
			ID:               p.ID,
			PaperTitle:       p.Title,
			Authors:          rawAuthors(p),
			Status:           string(p.Status),
			CreatedAt:        p.CreatedAt,
			UpdatedAt:        p.UpdatedAt,
			AbstractBlob:     blob,
			AbstractFileType: kind,
			ReviewStatus:     rs,
			Comments:         rc,
			ReviewedAt:       ra,
			ReviewerName:     reviewerNameOf(latest[p.ID]),
		}

		list := assignments[p.ID]
		if len(list) == 0 {
			result = append(result, base)
			continue
		}
		for _, a := range list {
			row := base
			rid, at := a.ReviewerID, a.AssignedAt
			row.AssignedReviewerID = &rid
			row.AssignedAt = &at
			if a.Reviewer != nil {
				name := a.Reviewer.Name
				row.AssignedReviewerName = &name
			}
			result = append(result, row)
		}
	}
	return result, nil
}

// ────────────────────── ListUnassigned ──────────────────────

func (s *paperService) ListUnassigned(ctx context.Context, caller Caller, q *dto.PaperFilterQuery) ([]dto.UnassignedPaperResponse, error) {
	if err := caller.require(model.RoleAdmin); err != nil {
		return nil, err
	}

	filter, err := toPaperFilter(q, nil, s.loc)
	if err != nil {
		return nil, err
	}

	papers, err := s.repo.Paper.ListUnassigned(ctx, filter)
	if err != nil {
		s.logger.Error("查询未分配论文失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.UnassignedPaperResponse, 0, len(papers))
	for i := range papers {
		p := &papers[i]
		blob, kind := encodeAbstract(p.AbstractBlob)
		result = append(result, dto.UnassignedPaperResponse{
			ID:               p.ID,
			UserID:           p.UserID,
			PaperTitle:       p.Title,
			Authors:          rawAuthors(p),
			Email:            p.Email,
			CreatedAt:        p.CreatedAt,
			AbstractBlob:     blob,
			AbstractFileType: kind,
			PaperTracks:      p.Tracks,
		})
	}
	return result, nil
}

// ────────────────────── ListRegistrations ──────────────────────

func (s *paperService) ListRegistrations(ctx context.Context, caller Caller) ([]dto.RegistrationResponse, error) {
	if err := caller.require(model.RoleAdmin); err != nil {
		return nil, err
	}

	papers, err := s.repo.Paper.ListAll(ctx)
	if err != nil {
		s.logger.Error("查询投稿列表失败", zap.Error(err))
		return nil, err
	}

	assignments, latest, err := s.loadAssignmentsAndReviews(ctx, papers)
	if err != nil {
		return nil, err
	}

	result := make([]dto.RegistrationResponse, 0, len(papers))
	for i := range papers {
		p := &papers[i]
		blob, kind := encodeAbstract(p.AbstractBlob)
		rs, rc, ra := reviewFields(latest[p.ID])
		base := dto.RegistrationResponse{
			ID:               p.ID,
			UserID:           p.UserID,
			PaperTitle:       p.Title,
			Authors:          rawAuthors(p),
			Email:            p.Email,
			CreatedAt:        p.CreatedAt,
			AbstractBlob:     blob,
			AbstractFileType: kind,
			Tracks:           p.Tracks,
			Status:           string(p.Status),
			ReviewStatus:     rs,
			Comments:         rc,
			ReviewedAt:       ra,
		}

		list := assignments[p.ID]
		if len(list) == 0 {
			result = append(result, base)
			continue
		}
		for _, a := range list {
			row := base
			rid, at := a.ReviewerID, a.AssignedAt
			row.AssignedReviewerID = &rid
			row.AssignedAt = &at
			if a.Reviewer != nil {
				name := a.Reviewer.Name
				row.AssignedReviewerName = &name
			}
			result = append(result, row)
		}
	}
	return result, nil
}

func (s *paperService) loadAssignmentsAndReviews(ctx context.Context, papers []model.Paper) (map[uint][]model.Assignment, map[uint]*model.Review, error) {
	ids := paperIDs(papers)

	list, err := s.repo.Assignment.ListByPaperIDs(ctx, ids)
	if err != nil {
		s.logger.Error("查询分配记录失败", zap.Error(err))
		return nil, nil, err
	}
	assignments := make(map[uint][]model.Assignment)
	for _, a := range list {
		assignments[a.PaperID] = append(assignments[a.PaperID], a)
	}

	reviews, err := s.repo.Review.ListByPaperIDs(ctx, ids)
	if err != nil {
		s.logger.Error("查询审稿记录失败", zap.Error(err))
		return nil, nil, err
	}
	return assignments, latestByPaper(reviews), nil
}

// ────────────────────── Analytics ──────────────────────

func (s *paperService) Analytics(ctx context.Context, caller Caller) (*dto.AnalyticsResponse, error) {
	if err := caller.require(model.RoleAdmin); err != nil {
		return nil, err
	}

	countries, err := s.repo.Paper.CountByCountry(ctx)
	if err != nil {
		s.logger.Error("统计国家分布失败", zap.Error(err))
		return nil, err
	}
	states, err := s.repo.Paper.CountByState(ctx)
	if err != nil {
		s.logger.Error("统计地区分布失败", zap.Error(err))
		return nil, err
	}

	return &dto.AnalyticsResponse{
		Countries: toCountItems(countries),
		States:    toCountItems(states),
	}, nil
}

func toCountItems(rows []repository.GroupCount) []dto.CountItem {
	items := make([]dto.CountItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, dto.CountItem{Name: r.Name, Count: r.Count})
	}
	return items
}

// ────────────────────── SendStatusEmail ──────────────────────

func (s *paperService) SendStatusEmail(ctx context.Context, caller Caller, paperID uint) (*dto.SendStatusEmailResponse, error) {
	if err := caller.require(model.RoleAdmin); err != nil {
		return nil, err
	}

	paper, err := s.repo.Paper.GetMeta(ctx, paperID)
	if err != nil {
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

	authors, err := paper.ParseAuthors()
	if err != nil {
		s.logger.Error("作者数据解析失败", zap.Uint("paper_id", paperID), zap.Error(err))
		return nil, ErrMalformedAuthors
	}

	reviewerName := ""
	if review.Reviewer != nil {
		reviewerName = review.Reviewer.Name
	}

	sent, failures := s.notifier.SendStatusUpdate(ctx, paper, authors, review, reviewerName)

	return &dto.SendStatusEmailResponse{
		Message:    "状态通知邮件已发送",
		PaperID:    paperID,
		EmailsSent: sent,
		Failures:   failures,
	}, nil
}
