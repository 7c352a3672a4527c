package service

import (
	"errors"
	"fmt"

	pkgerrors "icodses/backend/pkg/errors"
)

// ── 业务错误 ──
// 除认证错误外都包装 pkg/errors 中的分类，Handler 依此映射状态码

var ErrRoleForbidden = fmt.Errorf("%w: 当前角色无权执行该操作", pkgerrors.ErrForbidden)

// 认证
var (
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrEmailTaken         = fmt.Errorf("%w: 邮箱已被注册", pkgerrors.ErrConflict)
	ErrWrongPassword      = fmt.Errorf("%w: 原密码错误", pkgerrors.ErrInvalidArgument)
	ErrUserNotFound       = fmt.Errorf("%w: 用户不存在", pkgerrors.ErrNotFound)
)

// 审稿人
var ErrReviewerNotFound = fmt.Errorf("%w: 审稿人不存在", pkgerrors.ErrNotFound)

// 论文
var (
	ErrPaperNotFound    = fmt.Errorf("%w: 论文不存在", pkgerrors.ErrNotFound)
	ErrInvalidAuthors   = fmt.Errorf("%w: 作者列表必须是至少包含一位作者的 JSON 数组", pkgerrors.ErrInvalidArgument)
	ErrAbstractRequired = fmt.Errorf("%w: 缺少摘要文件", pkgerrors.ErrInvalidArgument)
	ErrAbstractTooLarge = fmt.Errorf("%w: 摘要文件过大", pkgerrors.ErrInvalidArgument)
	ErrInvalidDate      = fmt.Errorf("%w: 日期格式应为 YYYY-MM-DD", pkgerrors.ErrInvalidArgument)
	ErrNoReviewYet      = fmt.Errorf("%w: 该论文尚无审稿结论", pkgerrors.ErrInvalidArgument)
	ErrMalformedAuthors = fmt.Errorf("%w: 作者数据解析失败", pkgerrors.ErrInternal)
	ErrExportGenerate   = fmt.Errorf("%w: 生成导出文件失败", pkgerrors.ErrInternal)
)

// 分配
var (
	ErrAssignmentExists     = fmt.Errorf("%w: 该审稿人已分配到此论文", pkgerrors.ErrConflict)
	ErrAssignmentNotFound   = fmt.Errorf("%w: 分配记录不存在", pkgerrors.ErrNotFound)
	ErrPaperAlreadyAssigned = fmt.Errorf("%w: 该论文已分配审稿人", pkgerrors.ErrConflict)
)

// 审稿
var (
	ErrInvalidReviewStatus = fmt.Errorf("%w: 无效的审稿状态", pkgerrors.ErrInvalidArgument)
	ErrNotAssigned         = fmt.Errorf("%w: 该论文未分配给当前审稿人", pkgerrors.ErrForbidden)
)

// isDomainError 业务错误无需再记录错误日志
func isDomainError(err error) bool {
	return errors.Is(err, pkgerrors.ErrForbidden) ||
		errors.Is(err, pkgerrors.ErrInvalidArgument) ||
		errors.Is(err, pkgerrors.ErrNotFound) ||
		errors.Is(err, pkgerrors.ErrConflict) ||
		errors.Is(err, pkgerrors.ErrOptimisticLock)
}
