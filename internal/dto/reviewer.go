package dto

// ── 审稿人管理 DTO ──

// CreateReviewerRequest 创建审稿人账号
type CreateReviewerRequest struct {
	Name     string `json:"name"     binding:"required,min=2,max=100"`
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Track    string `json:"track"    binding:"required,max=255"`
}

// ReviewerResponse 审稿人信息
type ReviewerResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Track string `json:"track"`
}

// CreateReviewerResponse 创建成功
type CreateReviewerResponse struct {
	Message  string           `json:"message"`
	Reviewer ReviewerResponse `json:"reviewer"`
}

// ReviewerWithAssignmentsResponse 审稿人及其分配的论文
type ReviewerWithAssignmentsResponse struct {
	ID              uint     `json:"id"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Track           string   `json:"track"`
	AssignmentCount int      `json:"assignmentCount"`
	PaperTitles     []string `json:"paperTitles"`
}

// DeleteReviewerResponse 删除审稿人结果
type DeleteReviewerResponse struct {
	Message            string `json:"message"`
	ReviewerID         uint   `json:"reviewerId"`
	ReviewerName       string `json:"reviewerName"`
	AssignmentsRemoved int64  `json:"assignmentsRemoved"`
	ReviewsRemoved     int64  `json:"reviewsRemoved"`
}
