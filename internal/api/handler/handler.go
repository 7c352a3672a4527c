package handler

import "icodses/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	Paper      *PaperHandler
	Assignment *AssignmentHandler
	Review     *ReviewHandler
	Reviewer   *ReviewerHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth),
		Paper:      NewPaperHandler(svc.Paper),
		Assignment: NewAssignmentHandler(svc.Assignment),
		Review:     NewReviewHandler(svc.Review),
		Reviewer:   NewReviewerHandler(svc.Reviewer),
	}
}
