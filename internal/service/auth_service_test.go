package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"icodses/backend/config"
	"icodses/backend/internal/dto"
	"icodses/backend/internal/model"
	"icodses/backend/pkg/jwt"
)

func TestSignupAndLogin(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	user, err := env.svc.Auth.Signup(ctx, &dto.SignupRequest{Name: "Kiran", Email: "Kiran@Example.com", Password: "password-123"})
	if err != nil {
		t.Fatalf("Signup 失败: %v", err)
	}
	if user.Role != string(model.RoleUser) || user.Email != "kiran@example.com" {
		t.Errorf("注册用户不符: %+v", user)
	}

	if _, err := env.svc.Auth.Signup(ctx, &dto.SignupRequest{Name: "Dup", Email: "kiran@example.com", Password: "password-123"}); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("重复注册应返回 ErrEmailTaken，实际 %v", err)
	}

	tok, err := env.svc.Auth.Login(ctx, &dto.LoginRequest{Email: "kiran@example.com", Password: "password-123"})
	if err != nil {
		t.Fatalf("Login 失败: %v", err)
	}
	if tok.AccessToken == "" || tok.ExpiresIn != 3600 || tok.MustChangePassword {
		t.Errorf("登录响应不符: %+v", tok)
	}

	claims, err := jwt.NewManager(&env.cfg.Auth).ParseToken(tok.AccessToken)
	if err != nil {
		t.Fatalf("解析 Token 失败: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != "user" {
		t.Errorf("Token 声明不符: %+v", claims)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("right-password"), bcrypt.MinCost)
	env.store.users[7].PasswordHash = string(hash)

	tests := []struct{ name, email, password string }{
		{"密码错误", "r7@nec.org", "wrong-password"},
		{"用户不存在", "ghost@nec.org", "right-password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Auth.Login(ctx, &dto.LoginRequest{Email: tt.email, Password: tt.password})
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("期望 ErrInvalidCredentials，实际 %v", err)
			}
		})
	}
}

func TestChangePassword_ClearsFlag(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("initial-pass"), bcrypt.MinCost)
	r7 := env.store.users[7]
	r7.PasswordHash = string(hash)
	r7.MustChangePassword = true

	tok, _ := env.svc.Auth.Login(ctx, &dto.LoginRequest{Email: "r7@nec.org", Password: "initial-pass"})
	if tok == nil || !tok.MustChangePassword {
		t.Fatal("首次登录应提示修改密码")
	}

	err := env.svc.Auth.ChangePassword(ctx, 7, &dto.ChangePasswordRequest{OldPassword: "bad", NewPassword: "new-password-1"})
	if !errors.Is(err, ErrWrongPassword) {
		t.Errorf("原密码错误应返回 ErrWrongPassword，实际 %v", err)
	}

	if err := env.svc.Auth.ChangePassword(ctx, 7, &dto.ChangePasswordRequest{OldPassword: "initial-pass", NewPassword: "new-password-1"}); err != nil {
		t.Fatalf("ChangePassword 失败: %v", err)
	}
	if r7.MustChangePassword {
		t.Error("修改密码后应清除标记")
	}
	if _, err := env.svc.Auth.Login(ctx, &dto.LoginRequest{Email: "r7@nec.org", Password: "new-password-1"}); err != nil {
		t.Errorf("新密码应可登录: %v", err)
	}

	if err := env.svc.Auth.ChangePassword(ctx, 404, &dto.ChangePasswordRequest{}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际 %v", err)
	}
}

func TestLogout_Blacklists(t *testing.T) {
	env := setupTestEnv(t)

	if err := env.svc.Auth.Logout(context.Background(), "jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Logout 失败: %v", err)
	}
	ttl, ok := env.tokens.tokens["jti-1"]
	if !ok || ttl <= 0 || ttl > time.Hour {
		t.Errorf("黑名单 TTL 不符: ok=%v ttl=%v", ok, ttl)
	}
}

func TestEnsureAdmin(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	seed := config.SeedConfig{AdminName: "Chair", AdminEmail: "chair@nec.org", AdminPassword: "chair-password"}

	for i := 0; i < 2; i++ {
		if err := env.svc.Auth.EnsureAdmin(ctx, seed); err != nil {
			t.Fatalf("EnsureAdmin 失败: %v", err)
		}
	}
	admins := 0
	for _, u := range env.store.users {
		if u.Email == "chair@nec.org" && u.Role == model.RoleAdmin {
			admins++
		}
	}
	if admins != 1 {
		t.Errorf("应只创建 1 个管理员，实际 %d", admins)
	}

	if err := env.svc.Auth.EnsureAdmin(ctx, config.SeedConfig{}); err != nil {
		t.Errorf("未配置种子账号时应跳过: %v", err)
	}
}
