package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"icodses/backend/config"
	"icodses/backend/internal/dto"
	"icodses/backend/internal/model"
	"icodses/backend/internal/repository"
	"icodses/backend/pkg/metrics"
)

// AssignmentService 审稿分配业务接口
type AssignmentService interface {
	Assign(ctx context.Context, caller Caller, req *dto.AssignReviewerRequest) (*dto.AssignReviewerResponse, error)
	List(ctx context.Context, caller Caller, q *dto.AssignmentFilterQuery) ([]dto.AssignmentResponse, error)
	Update(ctx context.Context, caller Caller, paperID uint, req *dto.UpdateAssignmentRequest) (*dto.UpdateAssignmentResponse, error)
	Delete(ctx context.Context, caller Caller, paperID uint) (*dto.DeleteAssignmentResponse, error)
	Export(ctx context.Context, caller Caller, q *dto.AssignmentFilterQuery) (*bytes.Buffer, string, error)
}

type assignmentService struct {
	cfg      *config.Config
	repo     *repository.Repository
	notifier NotificationService
	logger   *zap.Logger
	loc      *time.Location
}

// NewAssignmentService 创建 AssignmentService 实例
func NewAssignmentService(
	cfg *config.Config,
	repo *repository.Repository,
	notifier NotificationService,
	logger *zap.Logger,
) AssignmentService {
	return &assignmentService{
		cfg:      cfg,
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		loc:      dbLocation(cfg.Database.Timezone, logger),
	}
}

// ────────────────────── Assign ──────────────────────

// Assign 校验、插入与通知入队在同一事务内；并发的重复分配由唯一索引转为冲突
func (s *assignmentService) Assign(ctx context.Context, caller Caller, req *dto.AssignReviewerRequest) (*dto.AssignReviewerResponse, error) {
	if err := caller.require(model.RoleAdmin); err != nil {
		return nil, err
	}

	var resp *dto.AssignReviewerResponse
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		paper, err := tx.Paper.GetMeta(ctx, req.PaperID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaperNotFound
			}
			return err
		}

		reviewer, err := s.getReviewer(ctx, tx, req.ReviewerID)
		if err != nil {
			return err
		}

		exists, err := tx.Assignment.Exists(ctx, req.PaperID, req.ReviewerID)
		if err != nil {
			return err
		}
		if exists {
			return ErrAssignmentExists
		}

		if s.cfg.Review.SinglePerPaper {
			current, err := tx.Assignment.ListByPaper(ctx, req.PaperID)
			if err != nil {
				return err
			}
			if len(current) > 0 {
				return ErrPaperAlreadyAssigned
			}
		}

		a := &model.Assignment{
			PaperID:    req.PaperID,
			ReviewerID: req.ReviewerID,
			AssignedAt: time.Now(),
		}
		if err := tx.Assignment.Create(ctx, a); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAssignmentExists
			}
			return err
		}

		if err := tx.Savepoint(ctx, "notify_assignment", func() error {
			return s.notifier.EnqueueReviewerAssignment(ctx, tx, reviewer, paper)
		}); err != nil {
			s.logger.Warn("分配通知入队失败",
				zap.Uint("paper_id", paper.ID),
				zap.Uint("reviewer_id", reviewer.ID),
				zap.Error(err),
			)
		}

		resp = &dto.AssignReviewerResponse{
			ID:           a.ID,
			Message:      "审稿人分配成功",
			PaperID:      paper.ID,
			ReviewerID:   reviewer.ID,
			ReviewerName: reviewer.Name,
			PaperTitle:   paper.Title,
		}
		return nil
	})
	if err != nil {
		if !isDomainError(err) {
			s.logger.Error("分配审稿人失败",
				zap.Uint("paper_id", req.PaperID),
				zap.Uint("reviewer_id", req.ReviewerID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	metrics.AssignmentCreated()
	return resp, nil
}

// getReviewer 用户不存在或不是审稿人都视为审稿人不存在
func (s *assignmentService) getReviewer(ctx context.Context, repo *repository.Repository, id uint) (*model.User, error) {
	user, err := repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReviewerNotFound
		}
		return nil, err
	}
	if user.Role != model.RoleReviewer {
		return nil, ErrReviewerNotFound
	}
	return user, nil
}

// ────────────────────── List ──────────────────────

func (s *assignmentService) List(ctx context.Context, caller Caller, q *dto.AssignmentFilterQuery) ([]dto.AssignmentResponse, error) {
	if err := caller.require(model.RoleAdmin); err != nil {
		return nil, err
	}

	rows, err := s.list(ctx, q)
	if err != nil {
		return nil, err
	}

	result := make([]dto.AssignmentResponse, 0, len(rows))
	for _, r := range rows {
		result = append(result, dto.AssignmentResponse{
			PaperID:       r.PaperID,
			ReviewerID:    r.ReviewerID,
			PaperTitle:    r.PaperTitle,
			ReviewerName:  r.ReviewerName,
			ReviewerEmail: r.ReviewerEmail,
			Track:         r.ReviewerTrack,
			CreatedAt:     r.PaperCreated,
			PaperTracks:   r.PaperTracks,
			AssignedAt:    r.AssignedAt,
		})
	}
	return result, nil
}

func (s *assignmentService) list(ctx context.Context, q *dto.AssignmentFilterQuery) ([]model.AssignmentDetail, error) {
	filter, err := toPaperFilter(&q.PaperFilterQuery, q.ReviewerTrackList(), s.loc)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.Assignment.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询分配列表失败", zap.Error(err))
		return nil, err
	}
	return rows, nil
}

// ────────────────────── Update ──────────────────────

// Update 更换论文（最早一条分配记录）的审稿人
func (s *assignmentService) Update(ctx context.Context, caller Caller, paperID uint, req *dto.UpdateAssignmentRequest) (*dto.UpdateAssignmentResponse, error) {
	if err := caller.require(model.RoleAdmin); err != nil {
		return nil, err
	}

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		current, err := tx.Assignment.GetFirstByPaper(ctx, paperID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAssignmentNotFound
			}
			return err
		}
		if current.ReviewerID == req.ReviewerID {
			return nil
		}

		if _, err := s.getReviewer(ctx, tx, req.ReviewerID); err != nil {
			return err
		}

		if err := tx.Assignment.UpdateReviewer(ctx, current, req.ReviewerID); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAssignmentExists
			}
			return err
		}
		return nil
	})
	if err != nil {
		if !isDomainError(err) {
			s.logger.Error("更换审稿人失败", zap.Uint("paper_id", paperID), zap.Error(err))
		}
		return nil, err
	}

	return &dto.UpdateAssignmentResponse{
		Message:    "分配已更新",
		PaperID:    paperID,
		ReviewerID: req.ReviewerID,
	}, nil
}

// ────────────────────── Delete ──────────────────────

// Delete 删除论文的全部分配记录，没有记录时同样成功并返回 0
func (s *assignmentService) Delete(ctx context.Context, caller Caller, paperID uint) (*dto.DeleteAssignmentResponse, error) {
	if err := caller.require(model.RoleAdmin); err != nil {
		return nil, err
	}

	deleted, err := s.repo.Assignment.DeleteByPaper(ctx, paperID)
	if err != nil {
		s.logger.Error("删除分配失败", zap.Uint("paper_id", paperID), zap.Error(err))
		return nil, err
	}

	return &dto.DeleteAssignmentResponse{
		Message: "分配已删除",
		PaperID: paperID,
		Deleted: deleted,
	}, nil
}

// ────────────────────── Export ──────────────────────

func (s *assignmentService) Export(ctx context.Context, caller Caller, q *dto.AssignmentFilterQuery) (*bytes.Buffer, string, error) {
	if err := caller.require(model.RoleAdmin); err != nil {
		return nil, "", err
	}

	rows, err := s.list(ctx, q)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Assignments"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headers := []string{"Paper ID", "Paper Title", "Paper Track", "Submitted", "Reviewer", "Reviewer Email", "Reviewer Track", "Assigned"}
	widths := []float64{10, 48, 20, 14, 24, 32, 20, 14}
	for i, w := range widths {
		col := colName(i)
		f.SetColWidth(sheetName, col, col, w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#2E86C1"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheetName, "A1", cell(colName(len(headers)-1), 1), headerStyle)

	row := 2
	for _, r := range rows {
		f.SetCellValue(sheetName, cell("A", row), r.PaperID)
		f.SetCellValue(sheetName, cell("B", row), r.PaperTitle)
		f.SetCellValue(sheetName, cell("C", row), r.PaperTracks)
		f.SetCellValue(sheetName, cell("D", row), r.PaperCreated.Format(dateLayout))
		f.SetCellValue(sheetName, cell("E", row), r.ReviewerName)
		f.SetCellValue(sheetName, cell("F", row), r.ReviewerEmail)
		f.SetCellValue(sheetName, cell("G", row), r.ReviewerTrack)
		f.SetCellValue(sheetName, cell("H", row), r.AssignedAt.Format(dateLayout))
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerate
	}

	filename := fmt.Sprintf("assignments_%s.xlsx", time.Now().Format("20060102"))
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
