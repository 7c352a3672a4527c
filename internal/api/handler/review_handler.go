package handler

import (
	"github.com/gin-gonic/gin"

	"icodses/backend/internal/dto"
	"icodses/backend/internal/service"
	"icodses/backend/pkg/response"
)

// ReviewHandler 审稿 HTTP 处理器
type ReviewHandler struct {
	reviewSvc service.ReviewService
}

// NewReviewHandler 创建 ReviewHandler
func NewReviewHandler(reviewSvc service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewSvc: reviewSvc}
}

// UpdateStatus 提交审稿结论
// POST /api/admin/reviewer/update-status
func (h *ReviewHandler) UpdateStatus(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.UpdatePaperStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "paperId 与 status 不能为空")
		return
	}

	result, err := h.reviewSvc.UpdateStatus(c.Request.Context(), caller, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// AssignedPapers 当前审稿人被分配的论文
// GET /api/admin/reviewer/assigned-papers
func (h *ReviewHandler) AssignedPapers(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.reviewSvc.AssignedPapers(c.Request.Context(), caller)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// Latest 论文的最新审稿结论
// GET /api/admin/latest-review/:paperId
func (h *ReviewHandler) Latest(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	paperID, ok := parseIDParam(c, "paperId")
	if !ok {
		return
	}

	result, err := h.reviewSvc.Latest(c.Request.Context(), caller, paperID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}
