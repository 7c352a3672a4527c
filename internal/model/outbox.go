package model

import "time"

// NotificationKind 通知类型
type NotificationKind string

const (
	NotifySubmissionConfirmation NotificationKind = "submission_confirmation"
	NotifyReviewerWelcome        NotificationKind = "reviewer_welcome"
	NotifyReviewerAssignment     NotificationKind = "reviewer_assignment"
	NotifyStatusUpdate           NotificationKind = "status_update"
)

// OutboxStatus 发件箱投递状态
type OutboxStatus string

const (
	OutboxPending OutboxStatus = "pending"
	OutboxSent    OutboxStatus = "sent"
	OutboxFailed  OutboxStatus = "failed"
)

// OutboxMessage 通知发件箱，对应 notification_outbox
// 与业务变更在同一事务内写入，由后台任务投递
type OutboxMessage struct {
	ID            uint             `gorm:"primaryKey"                                  json:"id"`
	Kind          NotificationKind `gorm:"type:varchar(40);not null"                   json:"kind"`
	Recipient     string           `gorm:"type:varchar(255);not null"                  json:"recipient"`
	Subject       string           `gorm:"type:varchar(255);not null"                  json:"subject"`
	Body          string           `gorm:"type:text;not null"                          json:"-"`
	Status        OutboxStatus     `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Attempts      int              `gorm:"not null;default:0"                          json:"attempts"`
	LastError     *string          `gorm:"type:text"                                   json:"lastError,omitempty"`
	NextAttemptAt time.Time        `gorm:"not null"                                    json:"nextAttemptAt"`
	SentAt        *time.Time       `json:"sentAt,omitempty"`
	BaseModel
}

// TableName 指定表名
func (OutboxMessage) TableName() string { return "notification_outbox" }
