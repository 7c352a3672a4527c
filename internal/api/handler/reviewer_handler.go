package handler

import (
	"github.com/gin-gonic/gin"

	"icodses/backend/internal/dto"
	"icodses/backend/internal/service"
	"icodses/backend/pkg/response"
)

// ReviewerHandler 审稿人管理 HTTP 处理器
type ReviewerHandler struct {
	reviewerSvc service.ReviewerService
}

// NewReviewerHandler 创建 ReviewerHandler
func NewReviewerHandler(reviewerSvc service.ReviewerService) *ReviewerHandler {
	return &ReviewerHandler{reviewerSvc: reviewerSvc}
}

// Create 创建审稿人账号
// POST /api/admin/create-reviewer
func (h *ReviewerHandler) Create(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.CreateReviewerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.reviewerSvc.Create(c.Request.Context(), caller, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, result)
}

// List 审稿人列表
// GET /api/admin/reviewers
func (h *ReviewerHandler) List(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.reviewerSvc.List(c.Request.Context(), caller)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// ListWithAssignments 审稿人及其分配的论文
// GET /api/admin/reviewers-with-assignments
func (h *ReviewerHandler) ListWithAssignments(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.reviewerSvc.ListWithAssignments(c.Request.Context(), caller)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// Delete 删除审稿人
// DELETE /api/admin/delete-reviewer/:id
func (h *ReviewerHandler) Delete(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.reviewerSvc.Delete(c.Request.Context(), caller, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}
