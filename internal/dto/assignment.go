package dto

import "time"

// ── 审稿分配模块 DTO ──

// AssignReviewerRequest 分配审稿人
type AssignReviewerRequest struct {
	PaperID    uint `json:"paperId"    binding:"required"`
	ReviewerID uint `json:"reviewerId" binding:"required"`
}

// AssignReviewerResponse 分配成功
type AssignReviewerResponse struct {
	ID           uint   `json:"id"`
	Message      string `json:"message"`
	PaperID      uint   `json:"paperId"`
	ReviewerID   uint   `json:"reviewerId"`
	ReviewerName string `json:"reviewerName"`
	PaperTitle   string `json:"paperTitle"`
}

// UpdateAssignmentRequest 更换审稿人
type UpdateAssignmentRequest struct {
	ReviewerID uint `json:"reviewerId" binding:"required"`
}

// UpdateAssignmentResponse 更换成功
type UpdateAssignmentResponse struct {
	Message    string `json:"message"`
	PaperID    uint   `json:"paperId"`
	ReviewerID uint   `json:"reviewerId"`
}

// DeleteAssignmentResponse 删除结果，没有记录时 Deleted 为 0
type DeleteAssignmentResponse struct {
	Message string `json:"message"`
	PaperID uint   `json:"paperId"`
	Deleted int64  `json:"deleted"`
}

// AssignmentFilterQuery 分配列表筛选参数
type AssignmentFilterQuery struct {
	PaperFilterQuery
	ReviewerTracks    []string `form:"reviewerTracks"`
	ReviewerTracksArr []string `form:"reviewerTracks[]"`
}

// ReviewerTrackList 合并两种写法并去掉空值
func (q *AssignmentFilterQuery) ReviewerTrackList() []string {
	return mergeTracks(q.ReviewerTracks, q.ReviewerTracksArr)
}

// AssignmentResponse 分配列表项
type AssignmentResponse struct {
	PaperID       uint      `json:"paperId"`
	ReviewerID    uint      `json:"reviewerId"`
	PaperTitle    string    `json:"paperTitle"`
	ReviewerName  string    `json:"reviewerName"`
	ReviewerEmail string    `json:"reviewerEmail"`
	Track         string    `json:"track"`
	CreatedAt     time.Time `json:"createdAt"`
	PaperTracks   string    `json:"paperTracks"`
	AssignedAt    time.Time `json:"assignedAt"`
}
