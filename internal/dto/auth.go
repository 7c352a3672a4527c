package dto

// ── 认证模块 DTO ──

// SignupRequest 作者注册请求
type SignupRequest struct {
	Name     string `json:"name"     binding:"required,min=2,max=100"`
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8,max=72"`
}

// TokenResponse 登录成功响应
type TokenResponse struct {
	AccessToken        string       `json:"token"`
	ExpiresIn          int          `json:"expiresIn"` // 秒
	MustChangePassword bool         `json:"mustChangePassword"`
	User               UserResponse `json:"user"`
}

// UserResponse 用户信息（脱敏）
type UserResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Track string `json:"track,omitempty"`
}
