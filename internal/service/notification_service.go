package service

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"go.uber.org/zap"

	"icodses/backend/config"
	"icodses/backend/internal/dto"
	"icodses/backend/internal/model"
	"icodses/backend/internal/repository"
	"icodses/backend/pkg/mailer"
	"icodses/backend/pkg/metrics"
)

const (
	conferenceName      = "NEC Conference"
	defaultComments     = "No comments provided"
	anonymousReviewer   = "Anonymous Reviewer"
	notificationDateFmt = "2006-01-02"
)

//go:embed templates/*.html
var templateFS embed.FS

var mailTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// DrainResult 一轮发件箱投递的结果
type DrainResult struct {
	Claimed int
	Sent    int
	Retried int
	Failed  int
}

// NotificationService 通知业务接口
// Enqueue* 写入传入的 repo，调用方在业务事务内传入事务 Repository
type NotificationService interface {
	EnqueueSubmissionConfirmation(ctx context.Context, repo *repository.Repository, paper *model.Paper, authors []model.Author) error
	EnqueueReviewerWelcome(ctx context.Context, repo *repository.Repository, reviewer *model.User) error
	EnqueueReviewerAssignment(ctx context.Context, repo *repository.Repository, reviewer *model.User, paper *model.Paper) error
	SendStatusUpdate(ctx context.Context, paper *model.Paper, authors []model.Author, review *model.Review, reviewerName string) (int, []dto.RecipientFailure)
	DrainOutbox(ctx context.Context) (DrainResult, error)
}

type notificationService struct {
	cfg    *config.Config
	repo   *repository.Repository
	mailer mailer.Mailer
	logger *zap.Logger
	now    func() time.Time
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(cfg *config.Config, repo *repository.Repository, m mailer.Mailer, logger *zap.Logger) NotificationService {
	return &notificationService{
		cfg:    cfg,
		repo:   repo,
		mailer: m,
		logger: logger.Named("notifier"),
		now:    time.Now,
	}
}

// ────────────────────── Enqueue ──────────────────────

func (s *notificationService) EnqueueSubmissionConfirmation(ctx context.Context, repo *repository.Repository, paper *model.Paper, authors []model.Author) error {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		names = append(names, a.Name)
	}
	name := ""
	if len(authors) > 0 {
		name = authors[0].Name
	}

	body, err := s.render("submission_confirmation.html", "Paper Submission Received", map[string]any{
		"Name":       name,
		"PaperID":    paper.ID,
		"PaperTitle": paper.Title,
		"Authors":    strings.Join(names, ", "),
	})
	if err != nil {
		return err
	}
	return s.enqueue(ctx, repo, model.NotifySubmissionConfirmation, paper.Email,
		"Conference Registration Confirmation", body)
}

// EnqueueReviewerWelcome 邮件中不包含密码
func (s *notificationService) EnqueueReviewerWelcome(ctx context.Context, repo *repository.Repository, reviewer *model.User) error {
	body, err := s.render("reviewer_welcome.html", "Reviewer Account Created", map[string]any{
		"Name":  reviewer.Name,
		"Email": reviewer.Email,
	})
	if err != nil {
		return err
	}
	return s.enqueue(ctx, repo, model.NotifyReviewerWelcome, reviewer.Email,
		"Your Reviewer Account - "+conferenceName, body)
}

func (s *notificationService) EnqueueReviewerAssignment(ctx context.Context, repo *repository.Repository, reviewer *model.User, paper *model.Paper) error {
	body, err := s.render("reviewer_assignment.html", "Paper Review Assignment", map[string]any{
		"Name":       reviewer.Name,
		"PaperID":    paper.ID,
		"PaperTitle": paper.Title,
	})
	if err != nil {
		return err
	}
	return s.enqueue(ctx, repo, model.NotifyReviewerAssignment, reviewer.Email,
		"Paper Review Assignment - "+conferenceName, body)
}

func (s *notificationService) enqueue(ctx context.Context, repo *repository.Repository, kind model.NotificationKind, to, subject, body string) error {
	msg := &model.OutboxMessage{
		Kind:          kind,
		Recipient:     to,
		Subject:       subject,
		Body:          body,
		Status:        model.OutboxPending,
		NextAttemptAt: s.now(),
	}
	if err := repo.Outbox.Create(ctx, msg); err != nil {
		return fmt.Errorf("写入发件箱失败: %w", err)
	}
	return nil
}

// ────────────────────── SendStatusUpdate ──────────────────────

// SendStatusUpdate 逐个作者同步发送（带重试），单个失败不影响其他收件人
// 返回尝试发送的数量与失败明细
func (s *notificationService) SendStatusUpdate(ctx context.Context, paper *model.Paper, authors []model.Author, review *model.Review, reviewerName string) (int, []dto.RecipientFailure) {
	comments := defaultComments
	if review.Comments != nil && strings.TrimSpace(*review.Comments) != "" {
		comments = *review.Comments
	}
	if reviewerName == "" {
		reviewerName = anonymousReviewer
	}
	subject := fmt.Sprintf("Paper Status Update - %s (Paper ID: %d)", conferenceName, paper.ID)

	attempted := 0
	var failures []dto.RecipientFailure

	for _, author := range authors {
		if author.Email == "" {
			continue
		}
		attempted++

		body, err := s.render("status_update.html", "Paper Status Update", map[string]any{
			"Name":         author.Name,
			"PaperID":      paper.ID,
			"PaperTitle":   paper.Title,
			"ReviewerName": reviewerName,
			"StatusText":   StatusText(review.Status),
			"Comments":     comments,
		})
		if err == nil {
			err = mailer.SendWithRetry(ctx, s.mailer, mailer.Message{To: author.Email, Subject: subject, HTML: body},
				s.cfg.Mail.MaxAttempts, s.cfg.Mail.RetryBackoff)
		}

		if err != nil {
			s.logger.Warn("状态通知邮件发送失败",
				zap.Uint("paper_id", paper.ID),
				zap.String("to", author.Email),
				zap.Error(err),
			)
			metrics.Notification(string(model.NotifyStatusUpdate), "failed")
			failures = append(failures, dto.RecipientFailure{Email: author.Email, Error: "发送失败"})
			continue
		}
		metrics.Notification(string(model.NotifyStatusUpdate), "sent")
	}

	return attempted, failures
}

// StatusText under_review -> UNDER REVIEW
func StatusText(status model.PaperStatus) string {
	return strings.ToUpper(strings.ReplaceAll(string(status), "_", " "))
}

// ────────────────────── DrainOutbox ──────────────────────

const (
	// defaultOutboxLease 领取后租约时长，未配置 outbox.lease 时使用
	defaultOutboxLease = 5 * time.Minute
	// outboxRecordTimeout 单条投递结果的写库时限，不受本轮超时影响
	outboxRecordTimeout = 5 * time.Second
)

// DrainOutbox 投递一批到期消息；失败按指数退避重排，达到上限后标记为 failed
// 领取在短事务内完成并续租，SMTP 发送不占用事务；每条结果单独落库。
// 本轮被取消时，未处理的消息在租约到期后重新领取。
func (s *notificationService) DrainOutbox(ctx context.Context) (DrainResult, error) {
	var result DrainResult
	now := s.now()

	msgs, err := s.claimOutbox(ctx, now)
	if err != nil {
		s.logger.Error("发件箱领取失败", zap.Error(err))
		return result, err
	}
	result.Claimed = len(msgs)

	for i := range msgs {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("发件箱投递中断，剩余消息等待租约到期",
				zap.Int("remaining", len(msgs)-i),
				zap.Error(err),
			)
			return result, err
		}

		msg := &msgs[i]
		sendErr := s.mailer.Send(ctx, mailer.Message{To: msg.Recipient, Subject: msg.Subject, HTML: msg.Body})
		if sendErr != nil && ctx.Err() != nil {
			// 发送被本轮超时打断，不计入重试次数
			s.logger.Warn("发件箱投递中断，剩余消息等待租约到期",
				zap.Uint("outbox_id", msg.ID),
				zap.Int("remaining", len(msgs)-i),
				zap.Error(sendErr),
			)
			return result, ctx.Err()
		}

		recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), outboxRecordTimeout)
		s.recordDelivery(recordCtx, msg, sendErr, now, &result)
		cancel()
	}

	if pending, err := s.repo.Outbox.CountPending(ctx); err == nil {
		metrics.SetOutboxPending(pending)
	}
	return result, nil
}

// claimOutbox 锁定到期消息并把 next_attempt_at 推到租约末尾，随即提交
func (s *notificationService) claimOutbox(ctx context.Context, now time.Time) ([]model.OutboxMessage, error) {
	lease := s.cfg.Outbox.Lease
	if lease <= 0 {
		lease = defaultOutboxLease
	}

	var msgs []model.OutboxMessage
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		msgs, err = tx.Outbox.ClaimDue(ctx, now, s.cfg.Outbox.BatchSize)
		if err != nil || len(msgs) == 0 {
			return err
		}

		ids := make([]uint, len(msgs))
		for i := range msgs {
			ids[i] = msgs[i].ID
		}
		return tx.Outbox.Lease(ctx, ids, now.Add(lease))
	})
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// recordDelivery 写入单条投递结果；写库失败只记日志，租约到期后该消息会被重新投递
func (s *notificationService) recordDelivery(ctx context.Context, msg *model.OutboxMessage, sendErr error, now time.Time, result *DrainResult) {
	attempts := msg.Attempts + 1

	switch {
	case sendErr == nil:
		result.Sent++
		metrics.Notification(string(msg.Kind), "sent")
		if err := s.repo.Outbox.MarkSent(ctx, msg.ID, s.now()); err != nil {
			s.logger.Error("记录投递成功失败，租约到期后可能重复发送",
				zap.Uint("outbox_id", msg.ID),
				zap.Error(err),
			)
		}

	case attempts >= s.cfg.Outbox.MaxAttempts:
		result.Failed++
		metrics.Notification(string(msg.Kind), "failed")
		s.logger.Error("通知投递失败，已放弃",
			zap.Uint("outbox_id", msg.ID),
			zap.String("kind", string(msg.Kind)),
			zap.Int("attempts", attempts),
			zap.Error(sendErr),
		)
		if err := s.repo.Outbox.MarkFailed(ctx, msg.ID, attempts, sendErr.Error()); err != nil {
			s.logger.Error("记录投递失败状态失败", zap.Uint("outbox_id", msg.ID), zap.Error(err))
		}

	default:
		next := now.Add(mailer.Backoff(s.cfg.Outbox.BaseBackoff, attempts))
		result.Retried++
		metrics.Notification(string(msg.Kind), "retry")
		s.logger.Warn("通知投递失败，稍后重试",
			zap.Uint("outbox_id", msg.ID),
			zap.Int("attempts", attempts),
			zap.Time("next_attempt_at", next),
			zap.Error(sendErr),
		)
		if err := s.repo.Outbox.MarkRetry(ctx, msg.ID, attempts, next, sendErr.Error()); err != nil {
			s.logger.Error("记录重试状态失败", zap.Uint("outbox_id", msg.ID), zap.Error(err))
		}
	}
}

// ── 辅助函数 ──

func (s *notificationService) render(name, heading string, data map[string]any) (string, error) {
	data["Conference"] = conferenceName
	data["Heading"] = heading
	data["LoginURL"] = s.cfg.Server.FrontendURL + "/login"
	if _, ok := data["Date"]; !ok {
		data["Date"] = s.now().Format(notificationDateFmt)
	}

	var buf bytes.Buffer
	if err := mailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("渲染邮件模板 %s 失败: %w", name, err)
	}
	return buf.String(), nil
}
