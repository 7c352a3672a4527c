package handler

import (
	"github.com/gin-gonic/gin"

	"icodses/backend/internal/dto"
	"icodses/backend/internal/service"
	"icodses/backend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AssignmentHandler 审稿分配 HTTP 处理器
type AssignmentHandler struct {
	assignmentSvc service.AssignmentService
}

// NewAssignmentHandler 创建 AssignmentHandler
func NewAssignmentHandler(assignmentSvc service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentSvc: assignmentSvc}
}

// Assign 为论文分配审稿人
// POST /api/admin/assign-reviewer
func (h *AssignmentHandler) Assign(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.AssignReviewerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "paperId 与 reviewerId 不能为空")
		return
	}

	result, err := h.assignmentSvc.Assign(c.Request.Context(), caller, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, result)
}

// List 分配列表
// GET /api/admin/assignments?fromDate=&toDate=&paperTracks=&reviewerTracks=
func (h *AssignmentHandler) List(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var q dto.AssignmentFilterQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.assignmentSvc.List(c.Request.Context(), caller, &q)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// Export 导出分配列表为 Excel
// GET /api/admin/assignments/export
func (h *AssignmentHandler) Export(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var q dto.AssignmentFilterQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	buf, filename, err := h.assignmentSvc.Export(c.Request.Context(), caller, &q)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Attachment(c, filename, xlsxContentType, buf.Bytes())
}

// Update 更换论文的审稿人
// PUT /api/admin/assignment/:paperId
func (h *AssignmentHandler) Update(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	paperID, ok := parseIDParam(c, "paperId")
	if !ok {
		return
	}

	var req dto.UpdateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "reviewerId 不能为空")
		return
	}

	result, err := h.assignmentSvc.Update(c.Request.Context(), caller, paperID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// Delete 删除论文的全部分配
// DELETE /api/admin/assignment/:paperId
func (h *AssignmentHandler) Delete(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	paperID, ok := parseIDParam(c, "paperId")
	if !ok {
		return
	}

	result, err := h.assignmentSvc.Delete(c.Request.Context(), caller, paperID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}
