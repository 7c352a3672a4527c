// Package errors 定义跨层共享的错误分类。
// Service 层的模块错误通过 fmt.Errorf("%w: ...") 包装这里的分类，
// Handler 层据此映射 HTTP 状态码。
package errors

import "errors"

var (
	// ErrForbidden 角色不匹配或非该论文的审稿人
	ErrForbidden = errors.New("无权限")
	// ErrInvalidArgument 缺少必填字段、状态枚举非法或存储的数据格式错误
	ErrInvalidArgument = errors.New("参数无效")
	// ErrNotFound 引用的论文、审稿人或分配记录不存在
	ErrNotFound = errors.New("记录不存在")
	// ErrConflict 重复的分配或唯一键冲突
	ErrConflict = errors.New("记录冲突")
	// ErrInternal 存储或解析失败，对外不暴露细节
	ErrInternal = errors.New("服务器内部错误")
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")
