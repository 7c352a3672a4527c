package dto

import "time"

// ── 审稿模块 DTO ──

// UpdatePaperStatusRequest 审稿人提交结论
type UpdatePaperStatusRequest struct {
	PaperID  uint    `json:"paperId"  binding:"required"`
	Status   string  `json:"status"   binding:"required"`
	Comments *string `json:"comments"`
}

// UpdatePaperStatusResponse 提交成功
type UpdatePaperStatusResponse struct {
	Message  string  `json:"message"`
	PaperID  uint    `json:"paperId"`
	Status   string  `json:"status"`
	Comments *string `json:"comments"`
}

// ReviewResponse 最新审稿结论
type ReviewResponse struct {
	PaperID      uint      `json:"paperId"`
	ReviewerID   uint      `json:"reviewerId"`
	ReviewerName string    `json:"reviewerName,omitempty"`
	Status       string    `json:"status"`
	Comments     *string   `json:"comments"`
	ReviewedAt   time.Time `json:"reviewedAt"`
}
