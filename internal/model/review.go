package model

import "time"

// Review 审稿台账，对应 paper_reviews
// 每个 (paper_id, reviewer_id) 只保留一条，重复提交覆盖
// Seq 取自 papers.review_seq，同一论文内单调递增
type Review struct {
	ID         uint        `gorm:"primaryKey"                                json:"id"`
	PaperID    uint        `gorm:"not null;uniqueIndex:uq_paper_reviews_pair" json:"paperId"`
	ReviewerID uint        `gorm:"not null;uniqueIndex:uq_paper_reviews_pair" json:"reviewerId"`
	Status     PaperStatus `gorm:"type:varchar(20);not null"                 json:"status"`
	Comments   *string     `gorm:"type:text"                                 json:"comments"`
	Seq        int64       `gorm:"not null;default:0"                        json:"-"`
	ReviewedAt time.Time   `gorm:"not null"                                  json:"reviewedAt"`

	// 关联
	Reviewer *User `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
}

// TableName 指定表名
func (Review) TableName() string { return "paper_reviews" }

// LatestReview 取 Seq 最大的一条，Seq 相同（仅历史数据）时取 ID 较大者
func LatestReview(reviews []Review) *Review {
	var latest *Review
	for i := range reviews {
		r := &reviews[i]
		if latest == nil || r.Seq > latest.Seq || (r.Seq == latest.Seq && r.ID > latest.ID) {
			latest = r
		}
	}
	return latest
}
