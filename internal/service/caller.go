package service

import "icodses/backend/internal/model"

// Caller 请求方身份，来自 JWT 声明
type Caller struct {
	ID    uint
	Role  model.Role
	Track string
}

// require 角色校验，在任何参数校验之前执行
func (c Caller) require(role model.Role) error {
	if c.Role != role {
		return ErrRoleForbidden
	}
	return nil
}
