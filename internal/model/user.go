package model

// Role 用户角色
type Role string

const (
	RoleUser     Role = "user"
	RoleReviewer Role = "reviewer"
	RoleAdmin    Role = "admin"
)

// Valid 是否为已知角色
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleReviewer, RoleAdmin:
		return true
	}
	return false
}

// User 用户表，对应 users
// 审稿人即 role=reviewer 的用户，Track 为其研究方向
type User struct {
	ID                 uint   `gorm:"primaryKey"                               json:"id"`
	Name               string `gorm:"type:varchar(100);not null"               json:"name"`
	Email              string `gorm:"type:varchar(255);not null;uniqueIndex"   json:"email"`
	PasswordHash       string `gorm:"type:varchar(255);not null"               json:"-"`
	Role               Role   `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	Track              string `gorm:"type:varchar(255)"                        json:"track,omitempty"`
	MustChangePassword bool   `gorm:"not null;default:false"                   json:"mustChangePassword"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }
