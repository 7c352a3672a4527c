package service

import (
	"go.uber.org/zap"

	"icodses/backend/config"
	"icodses/backend/internal/repository"
	"icodses/backend/pkg/jwt"
	"icodses/backend/pkg/mailer"
	"icodses/backend/pkg/storage"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	Reviewer     ReviewerService
	Paper        PaperService
	Assignment   AssignmentService
	Review       ReviewService
	Notification NotificationService
}

// Deps 外部依赖，Tokens 与 Archive 可为 nil
type Deps struct {
	JWT     *jwt.Manager
	Tokens  TokenBlacklist
	Mailer  mailer.Mailer
	Archive storage.Archive
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	deps Deps,
	logger *zap.Logger,
) *Service {
	notifier := NewNotificationService(cfg, repo, deps.Mailer, logger)
	return &Service{
		Auth:         NewAuthService(cfg, repo, deps.JWT, deps.Tokens, logger),
		Reviewer:     NewReviewerService(repo, notifier, logger),
		Paper:        NewPaperService(cfg, repo, notifier, deps.Archive, logger),
		Assignment:   NewAssignmentService(cfg, repo, notifier, logger),
		Review:       NewReviewService(repo, logger),
		Notification: notifier,
	}
}
