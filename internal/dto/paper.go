package dto

import (
	"encoding/json"
	"time"
)

// ── 投稿模块 DTO ──

// SubmitPaperRequest 投稿表单（multipart，摘要文件单独读取）
type SubmitPaperRequest struct {
	PaperTitle string `form:"paperTitle" binding:"required,max=255"`
	Authors    string `form:"authors"    binding:"required"` // JSON 数组 [{name,email}]
	Tracks     string `form:"tracks"     binding:"required,max=255"`
	Country    string `form:"country"    binding:"max=255"`
	State      string `form:"state"      binding:"max=255"`
	City       string `form:"city"       binding:"max=255"`
}

// AuthorDTO 作者
type AuthorDTO struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SubmitPaperResponse 投稿成功响应
type SubmitPaperResponse struct {
	ID      uint   `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// PaperFilterQuery 论文筛选参数
// 同时接受 paperTracks=a&paperTracks=b 与 paperTracks[]=a 两种写法
type PaperFilterQuery struct {
	FromDate       string   `form:"fromDate"`
	ToDate         string   `form:"toDate"`
	PaperTracks    []string `form:"paperTracks"`
	PaperTracksArr []string `form:"paperTracks[]"`
}

// Tracks 合并两种写法并去掉空值
func (q *PaperFilterQuery) Tracks() []string {
	return mergeTracks(q.PaperTracks, q.PaperTracksArr)
}

// UnassignedPaperResponse 未分配论文
type UnassignedPaperResponse struct {
	ID               uint            `json:"id"`
	UserID           uint            `json:"userId"`
	PaperTitle       string          `json:"paperTitle"`
	Authors          json.RawMessage `json:"authors"`
	Email            string          `json:"email"`
	CreatedAt        time.Time       `json:"createdAt"`
	AbstractBlob     *string         `json:"abstractBlob"`
	AbstractFileType string          `json:"abstractFileType,omitempty"`
	PaperTracks      string          `json:"paperTracks"`
}

// AssignedPaperResponse 审稿人被分配的论文
type AssignedPaperResponse struct {
	ID               uint            `json:"id"`
	PaperTitle       string          `json:"paperTitle"`
	Authors          json.RawMessage `json:"authors"`
	Email            string          `json:"email"`
	Status           string          `json:"status"`
	CreatedAt        time.Time       `json:"createdAt"`
	AbstractBlob     *string         `json:"abstractBlob"`
	AbstractFileType string          `json:"abstractFileType,omitempty"`
	AssignedAt       time.Time       `json:"assignedAt"`
	ReviewStatus     *string         `json:"reviewStatus"`
	Comments         *string         `json:"comments"`
	ReviewedAt       *time.Time      `json:"reviewedAt"`
}

// PaperStatusResponse 作者查看的投稿状态，每个分配的审稿人一行
type PaperStatusResponse struct {
	ID                   uint            `json:"id"`
	PaperTitle           string          `json:"paperTitle"`
	Authors              json.RawMessage `json:"authors"`
	Status               string          `json:"status"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
	AbstractBlob         *string         `json:"abstractBlob"`
	AbstractFileType     string          `json:"abstractFileType,omitempty"`
	ReviewStatus         *string         `json:"reviewStatus"`
	Comments             *string         `json:"comments"`
	ReviewedAt           *time.Time      `json:"reviewedAt"`
	ReviewerName         *string         `json:"reviewerName"`
	AssignedReviewerID   *uint           `json:"assignedReviewerId"`
	AssignedReviewerName *string         `json:"assignedReviewerName"`
	AssignedAt           *time.Time      `json:"assignedAt"`
}

// RegistrationResponse 管理端投稿列表，每个分配的审稿人一行
type RegistrationResponse struct {
	ID                   uint            `json:"id"`
	UserID               uint            `json:"userId"`
	PaperTitle           string          `json:"paperTitle"`
	Authors              json.RawMessage `json:"authors"`
	Email                string          `json:"email"`
	CreatedAt            time.Time       `json:"createdAt"`
	AbstractBlob         *string         `json:"abstractBlob"`
	AbstractFileType     string          `json:"abstractFileType,omitempty"`
	Tracks               string          `json:"tracks"`
	Status               string          `json:"status"`
	ReviewStatus         *string         `json:"reviewStatus"`
	Comments             *string         `json:"comments"`
	ReviewedAt           *time.Time      `json:"reviewedAt"`
	AssignedReviewerName *string         `json:"assignedReviewerName"`
	AssignedReviewerID   *uint           `json:"assignedReviewerId"`
	AssignedAt           *time.Time      `json:"assignedAt"`
}

// AnalyticsResponse 投稿地区统计
type AnalyticsResponse struct {
	Countries []CountItem `json:"countries"`
	States    []CountItem `json:"states"`
}

// SendStatusEmailRequest 发送状态通知邮件
type SendStatusEmailRequest struct {
	PaperID uint `json:"paperId" binding:"required"`
}

// RecipientFailure 单个收件人发送失败
type RecipientFailure struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

// SendStatusEmailResponse emailsSent 为尝试发送数，不代表送达
type SendStatusEmailResponse struct {
	Message    string             `json:"message"`
	PaperID    uint               `json:"paperId"`
	EmailsSent int                `json:"emailsSent"`
	Failures   []RecipientFailure `json:"failures,omitempty"`
}

func mergeTracks(lists ...[]string) []string {
	var out []string
	for _, list := range lists {
		for _, t := range list {
			if t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}
