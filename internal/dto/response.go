package dto

// ── 通用响应 ──

// MessageResponse 仅包含提示信息的响应
type MessageResponse struct {
	Message string `json:"message"`
}

// IDResponse 创建成功返回的 ID
type IDResponse struct {
	ID uint `json:"id"`
}

// CountItem 分组计数
type CountItem struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}
