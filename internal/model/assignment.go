package model

import "time"

// Assignment 审稿分配表，对应 paper_assignments
// (paper_id, reviewer_id) 唯一；同一论文可有多条分配
type Assignment struct {
	ID         uint      `gorm:"primaryKey"                                   json:"id"`
	PaperID    uint      `gorm:"not null;uniqueIndex:uq_paper_assignments_pair" json:"paperId"`
	ReviewerID uint      `gorm:"not null;uniqueIndex:uq_paper_assignments_pair" json:"reviewerId"`
	AssignedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"           json:"assignedAt"`

	// 关联
	Paper    *Paper `gorm:"foreignKey:PaperID"    json:"paper,omitempty"`
	Reviewer *User  `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
}

// TableName 指定表名
func (Assignment) TableName() string { return "paper_assignments" }

// AssignmentDetail 分配 + 论文 + 审稿人的联表结果
type AssignmentDetail struct {
	AssignmentID  uint
	PaperID       uint
	ReviewerID    uint
	PaperTitle    string
	PaperTracks   string
	PaperCreated  time.Time
	ReviewerName  string
	ReviewerEmail string
	ReviewerTrack string
	AssignedAt    time.Time
}
