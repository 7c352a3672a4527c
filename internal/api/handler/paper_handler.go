package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"icodses/backend/internal/dto"
	"icodses/backend/internal/service"
	"icodses/backend/pkg/response"
)

// abstractField 投稿表单中摘要文件的字段名
const abstractField = "abstract"

// PaperHandler 投稿与论文查询 HTTP 处理器
type PaperHandler struct {
	paperSvc service.PaperService
}

// NewPaperHandler 创建 PaperHandler
func NewPaperHandler(paperSvc service.PaperService) *PaperHandler {
	return &PaperHandler{paperSvc: paperSvc}
}

// Submit 提交论文（multipart/form-data）
// POST /api/registration
func (h *PaperHandler) Submit(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.SubmitPaperRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	var abstract []byte
	if fh, err := c.FormFile(abstractField); err == nil {
		f, err := fh.Open()
		if err != nil {
			response.BadRequest(c, 15003, "摘要文件读取失败")
			return
		}
		defer f.Close()

		abstract, err = io.ReadAll(f)
		if err != nil {
			c.Error(err)
			response.BadRequest(c, 15003, "摘要文件读取失败")
			return
		}
	}

	result, err := h.paperSvc.Submit(c.Request.Context(), caller, &req, abstract)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, result)
}

// ListStatusForUser 查询作者的投稿状态
// GET /api/admin/paper-status/:userId
func (h *PaperHandler) ListStatusForUser(c *gin.Context) {
	if _, ok := MustGetCaller(c); !ok {
		return
	}
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	result, err := h.paperSvc.ListStatusForUser(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// ListUnassigned 未分配审稿人的论文
// GET /api/admin/unassigned-papers?fromDate=&toDate=&paperTracks=
func (h *PaperHandler) ListUnassigned(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var q dto.PaperFilterQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.paperSvc.ListUnassigned(c.Request.Context(), caller, &q)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// ListRegistrations 全部投稿及分配情况
// GET /api/admin/registrations-with-assignments
func (h *PaperHandler) ListRegistrations(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.paperSvc.ListRegistrations(c.Request.Context(), caller)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// Analytics 投稿地区统计
// GET /api/admin/registration-analytics
func (h *PaperHandler) Analytics(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.paperSvc.Analytics(c.Request.Context(), caller)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// SendStatusEmail 向全部作者发送最新审稿结论
// POST /api/admin/send-status-email
func (h *PaperHandler) SendStatusEmail(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.SendStatusEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "paperId 不能为空")
		return
	}

	result, err := h.paperSvc.SendStatusEmail(c.Request.Context(), caller, req.PaperID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}
