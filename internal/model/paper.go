package model

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

// PaperStatus 论文状态，论文、审稿记录与接口共用
type PaperStatus string

const (
	StatusSubmitted   PaperStatus = "submitted"
	StatusUnderReview PaperStatus = "under_review"
	StatusAccepted    PaperStatus = "accepted"
	StatusRejected    PaperStatus = "rejected"
	StatusPublished   PaperStatus = "published"
)

// Valid 是否为论文可处于的状态
func (s PaperStatus) Valid() bool {
	switch s {
	case StatusSubmitted, StatusUnderReview, StatusAccepted, StatusRejected, StatusPublished:
		return true
	}
	return false
}

// IsReviewStatus 审稿人可提交的状态（不含 submitted）
func (s PaperStatus) IsReviewStatus() bool {
	switch s {
	case StatusUnderReview, StatusAccepted, StatusRejected, StatusPublished:
		return true
	case StatusSubmitted:
		return false
	}
	return false
}

// Propagates 审稿结论是否同步到论文状态
// under_review 只记录在审稿台账，不改变论文状态
func (s PaperStatus) Propagates() bool {
	switch s {
	case StatusAccepted, StatusRejected, StatusPublished:
		return true
	case StatusSubmitted, StatusUnderReview:
		return false
	}
	return false
}

// Author 作者，顺序即署名顺序
type Author struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Paper 论文投稿表，对应 papers
type Paper struct {
	ID           uint           `gorm:"primaryKey"                                    json:"id"`
	UserID       uint           `gorm:"not null;index"                                json:"userId"`
	Title        string         `gorm:"column:paper_title;type:varchar(255);not null" json:"paperTitle"`
	Authors      datatypes.JSON `gorm:"not null"                                      json:"authors"`
	AbstractBlob []byte         `gorm:"column:abstract_blob"                          json:"-"`
	Email        string         `gorm:"type:varchar(255);not null"                    json:"email"`
	Tracks       string         `gorm:"column:tracks;type:varchar(255)"               json:"tracks"`
	Country      string         `gorm:"type:varchar(255)"                             json:"country"`
	State        string         `gorm:"type:varchar(255)"                             json:"state"`
	City         string         `gorm:"type:varchar(255)"                             json:"city"`
	Status       PaperStatus    `gorm:"type:varchar(20);not null;default:'submitted'" json:"status"`
	ReviewSeq    int64          `gorm:"not null;default:0"                            json:"-"`
	BaseModel
}

// TableName 指定表名
func (Paper) TableName() string { return "papers" }

// EncodeAuthors 序列化作者列表
func EncodeAuthors(authors []Author) (datatypes.JSON, error) {
	if authors == nil {
		authors = []Author{}
	}
	b, err := json.Marshal(authors)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// ParseAuthors 反序列化作者列表，格式错误时返回 error
func (p *Paper) ParseAuthors() ([]Author, error) {
	var authors []Author
	if err := json.Unmarshal(p.Authors, &authors); err != nil {
		return nil, fmt.Errorf("论文 %d 的作者数据格式错误: %w", p.ID, err)
	}
	return authors, nil
}
