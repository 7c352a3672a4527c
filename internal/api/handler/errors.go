package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"icodses/backend/internal/service"
	pkgerrors "icodses/backend/pkg/errors"
	"icodses/backend/pkg/response"
)

// handleServiceError 按模块错误码映射，未单独列出的业务错误按分类兜底
// 存储错误统一返回 500，不暴露内部细节
func handleServiceError(c *gin.Context, err error) {
	switch {
	// 认证 11xxx
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, 11001, "邮箱或密码错误")
	case errors.Is(err, service.ErrEmailTaken):
		response.Conflict(c, 11002, "邮箱已被注册")
	case errors.Is(err, service.ErrWrongPassword):
		response.BadRequest(c, 11003, "原密码错误")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 11004, "用户不存在")

	// 审稿人 12xxx
	case errors.Is(err, service.ErrReviewerNotFound):
		response.NotFound(c, 12001, "审稿人不存在")

	// 分配 13xxx
	case errors.Is(err, service.ErrAssignmentExists):
		response.Conflict(c, 13001, "该审稿人已分配到此论文")
	case errors.Is(err, service.ErrAssignmentNotFound):
		response.NotFound(c, 13002, "分配记录不存在")
	case errors.Is(err, service.ErrPaperAlreadyAssigned):
		response.Conflict(c, 13003, "该论文已分配审稿人")

	// 审稿 14xxx
	case errors.Is(err, service.ErrNotAssigned):
		response.Forbidden(c, 14001, "该论文未分配给当前审稿人")
	case errors.Is(err, service.ErrInvalidReviewStatus):
		response.BadRequest(c, 14002, "无效的审稿状态")

	// 论文与通知 15xxx
	case errors.Is(err, service.ErrPaperNotFound):
		response.NotFound(c, 15001, "论文不存在")
	case errors.Is(err, service.ErrInvalidAuthors):
		response.BadRequest(c, 15002, "作者列表格式错误")
	case errors.Is(err, service.ErrAbstractRequired):
		response.BadRequest(c, 15003, "缺少摘要文件")
	case errors.Is(err, service.ErrAbstractTooLarge):
		response.BadRequest(c, 15004, "摘要文件过大")
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 15005, "日期格式应为 YYYY-MM-DD")
	case errors.Is(err, service.ErrNoReviewYet):
		response.BadRequest(c, 15006, "该论文尚无审稿结论")
	case errors.Is(err, service.ErrMalformedAuthors):
		response.Error(c, http.StatusInternalServerError, 15007, "论文作者数据损坏")

	// 分类兜底
	case errors.Is(err, pkgerrors.ErrForbidden):
		response.Forbidden(c, 10003, "无权限访问")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 10006, pkgerrors.ErrOptimisticLock.Error())
	case errors.Is(err, pkgerrors.ErrInvalidArgument):
		response.BadRequest(c, 10001, "参数校验失败")
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.NotFound(c, 10007, "记录不存在")
	case errors.Is(err, pkgerrors.ErrConflict):
		response.Conflict(c, 10008, "记录冲突")
	default:
		response.InternalError(c)
	}
}
