package service

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"icodses/backend/internal/dto"
	"icodses/backend/internal/model"
)

func newReviewerRequest() *dto.CreateReviewerRequest {
	return &dto.CreateReviewerRequest{
		Name:     "Meera Iyer",
		Email:    " Meera@NEC.org ",
		Password: "initial-pass-1",
		Track:    "Systems",
	}
}

func TestCreateReviewer_Success(t *testing.T) {
	env := setupTestEnv(t)

	resp, err := env.svc.Reviewer.Create(context.Background(), adminCaller, newReviewerRequest())
	if err != nil {
		t.Fatalf("Create 失败: %v", err)
	}
	if resp.Reviewer.Email != "meera@nec.org" || resp.Reviewer.Track != "Systems" {
		t.Errorf("响应内容不符: %+v", resp.Reviewer)
	}

	u := env.store.users[resp.Reviewer.ID]
	if u.Role != model.RoleReviewer || !u.MustChangePassword {
		t.Errorf("新审稿人应为 reviewer 且需修改密码: %+v", u)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("initial-pass-1")) != nil {
		t.Error("密码应以 bcrypt 存储")
	}

	if len(env.store.outbox) != 1 || env.store.outbox[0].Kind != model.NotifyReviewerWelcome {
		t.Error("应写入一条欢迎邮件消息")
	}
}

func TestCreateReviewer_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("邮箱已存在", func(t *testing.T) {
		env := setupTestEnv(t)
		req := newReviewerRequest()
		req.Email = "R7@nec.org"
		if _, err := env.svc.Reviewer.Create(ctx, adminCaller, req); !errors.Is(err, ErrEmailTaken) {
			t.Errorf("期望 ErrEmailTaken，实际 %v", err)
		}
	})

	t.Run("非管理员", func(t *testing.T) {
		env := setupTestEnv(t)
		if _, err := env.svc.Reviewer.Create(ctx, reviewerCaller, newReviewerRequest()); !errors.Is(err, ErrRoleForbidden) {
			t.Errorf("期望 ErrRoleForbidden，实际 %v", err)
		}
	})

	t.Run("欢迎邮件入队失败", func(t *testing.T) {
		env := setupTestEnv(t)
		env.store.failOutboxCreate = true
		if _, err := env.svc.Reviewer.Create(ctx, adminCaller, newReviewerRequest()); err != nil {
			t.Errorf("入队失败不应影响创建: %v", err)
		}
	})
}

func TestListReviewers(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.store.addAssignment(3, 7)
	env.store.addAssignment(9, 7)

	list, err := env.svc.Reviewer.List(ctx, adminCaller)
	if err != nil {
		t.Fatalf("List 失败: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Reviewer Eight" {
		t.Errorf("应只列出审稿人并按姓名排序: %+v", list)
	}

	withAssignments, err := env.svc.Reviewer.ListWithAssignments(ctx, adminCaller)
	if err != nil {
		t.Fatalf("ListWithAssignments 失败: %v", err)
	}
	counts := map[uint]int{}
	for _, r := range withAssignments {
		counts[r.ID] = r.AssignmentCount
		if r.PaperTitles == nil {
			t.Errorf("审稿人 %d 的 paperTitles 不应为 nil", r.ID)
		}
	}
	if counts[7] != 2 || counts[8] != 0 {
		t.Errorf("分配计数不符: %v", counts)
	}
}

func TestDeleteReviewer(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.store.addAssignment(3, 7)
	env.store.addAssignment(3, 8)
	env.svc.Review.UpdateStatus(ctx, reviewerCaller, &dto.UpdatePaperStatusRequest{PaperID: 3, Status: "under_review"})

	resp, err := env.svc.Reviewer.Delete(ctx, adminCaller, 7)
	if err != nil {
		t.Fatalf("Delete 失败: %v", err)
	}
	if resp.AssignmentsRemoved != 1 || resp.ReviewsRemoved != 1 || resp.ReviewerName != "Reviewer Seven" {
		t.Errorf("删除结果不符: %+v", resp)
	}
	if _, ok := env.store.users[7]; ok {
		t.Error("审稿人应已删除")
	}
	if len(env.store.assignments) != 1 || env.store.assignments[0].ReviewerID != 8 {
		t.Error("其他审稿人的分配应保留")
	}

	if _, err := env.svc.Reviewer.Delete(ctx, adminCaller, 7); !errors.Is(err, ErrReviewerNotFound) {
		t.Errorf("重复删除应返回 ErrReviewerNotFound，实际 %v", err)
	}
	if _, err := env.svc.Reviewer.Delete(ctx, adminCaller, 9); !errors.Is(err, ErrReviewerNotFound) {
		t.Errorf("删除非审稿人应返回 ErrReviewerNotFound，实际 %v", err)
	}
}
