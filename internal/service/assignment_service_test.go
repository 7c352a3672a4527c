package service

import (
	"context"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"icodses/backend/config"
	"icodses/backend/internal/dto"
	"icodses/backend/internal/model"
)

func TestAssign_OnceThenConflict(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	req := &dto.AssignReviewerRequest{PaperID: 3, ReviewerID: 7}

	resp, err := env.svc.Assignment.Assign(ctx, adminCaller, req)
	if err != nil {
		t.Fatalf("首次分配应成功: %v", err)
	}
	if resp.ReviewerName != "Reviewer Seven" || resp.PaperTitle != "Graph Sparsification" {
		t.Errorf("响应内容不符: %+v", resp)
	}

	if _, err := env.svc.Assignment.Assign(ctx, adminCaller, req); !errors.Is(err, ErrAssignmentExists) {
		t.Errorf("重复分配应返回 ErrAssignmentExists，实际: %v", err)
	}
	if n := len(env.store.assignments); n != 1 {
		t.Errorf("期望 1 条分配记录，实际 %d", n)
	}
}

func TestAssign_PaperLeavesUnassigned(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.Assignment.Assign(ctx, adminCaller, &dto.AssignReviewerRequest{PaperID: 3, ReviewerID: 7}); err != nil {
		t.Fatalf("分配失败: %v", err)
	}

	rows, err := env.svc.Assignment.List(ctx, adminCaller, &dto.AssignmentFilterQuery{})
	if err != nil {
		t.Fatalf("List 失败: %v", err)
	}
	found := false
	for _, r := range rows {
		if r.PaperID == 3 && r.ReviewerID == 7 {
			found = true
		}
	}
	if !found {
		t.Error("分配列表中应包含 (3, 7)")
	}

	unassigned, err := env.svc.Paper.ListUnassigned(ctx, adminCaller, &dto.PaperFilterQuery{})
	if err != nil {
		t.Fatalf("ListUnassigned 失败: %v", err)
	}
	for _, p := range unassigned {
		if p.ID == 3 {
			t.Error("已分配的论文 3 不应出现在未分配列表中")
		}
	}
	if len(unassigned) != 1 || unassigned[0].ID != 9 {
		t.Errorf("未分配列表应只剩论文 9，实际 %+v", unassigned)
	}
}

func TestAssign_EnqueuesReviewerNotification(t *testing.T) {
	env := setupTestEnv(t)

	if _, err := env.svc.Assignment.Assign(context.Background(), adminCaller, &dto.AssignReviewerRequest{PaperID: 3, ReviewerID: 7}); err != nil {
		t.Fatalf("分配失败: %v", err)
	}

	if len(env.store.outbox) != 1 {
		t.Fatalf("期望 1 条发件箱消息，实际 %d", len(env.store.outbox))
	}
	msg := env.store.outbox[0]
	if msg.Kind != model.NotifyReviewerAssignment || msg.Recipient != "r7@nec.org" {
		t.Errorf("发件箱消息不符: kind=%s to=%s", msg.Kind, msg.Recipient)
	}
	if len(env.mailer.sent) != 0 {
		t.Error("分配时不应同步发送邮件")
	}
}

func TestAssign_OutboxFailureStillSucceeds(t *testing.T) {
	env := setupTestEnv(t)
	env.store.failOutboxCreate = true

	if _, err := env.svc.Assignment.Assign(context.Background(), adminCaller, &dto.AssignReviewerRequest{PaperID: 3, ReviewerID: 7}); err != nil {
		t.Fatalf("通知入队失败不应影响分配: %v", err)
	}
	if len(env.store.assignments) != 1 {
		t.Error("分配记录应已写入")
	}
}

func TestAssign_Validation(t *testing.T) {
	tests := []struct {
		name    string
		caller  Caller
		req     dto.AssignReviewerRequest
		wantErr error
	}{
		{"非管理员", reviewerCaller, dto.AssignReviewerRequest{}, ErrRoleForbidden},
		{"论文不存在", adminCaller, dto.AssignReviewerRequest{PaperID: 404, ReviewerID: 7}, ErrPaperNotFound},
		{"审稿人不存在", adminCaller, dto.AssignReviewerRequest{PaperID: 3, ReviewerID: 404}, ErrReviewerNotFound},
		{"用户不是审稿人", adminCaller, dto.AssignReviewerRequest{PaperID: 3, ReviewerID: 9}, ErrReviewerNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t)
			_, err := env.svc.Assignment.Assign(context.Background(), tt.caller, &tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("期望 %v，实际 %v", tt.wantErr, err)
			}
			if len(env.store.assignments) != 0 {
				t.Error("失败时不应写入分配记录")
			}
		})
	}
}

func TestAssign_SingleReviewerMode(t *testing.T) {
	env := setupTestEnv(t, func(c *config.Config) { c.Review.SinglePerPaper = true })
	ctx := context.Background()

	if _, err := env.svc.Assignment.Assign(ctx, adminCaller, &dto.AssignReviewerRequest{PaperID: 3, ReviewerID: 7}); err != nil {
		t.Fatalf("首次分配应成功: %v", err)
	}
	_, err := env.svc.Assignment.Assign(ctx, adminCaller, &dto.AssignReviewerRequest{PaperID: 3, ReviewerID: 8})
	if !errors.Is(err, ErrPaperAlreadyAssigned) {
		t.Errorf("单审稿人模式下第二位审稿人应被拒绝，实际: %v", err)
	}
}

func TestAssign_MultiReviewerByDefault(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	for _, rid := range []uint{7, 8} {
		if _, err := env.svc.Assignment.Assign(ctx, adminCaller, &dto.AssignReviewerRequest{PaperID: 3, ReviewerID: rid}); err != nil {
			t.Fatalf("分配审稿人 %d 失败: %v", rid, err)
		}
	}
	if len(env.store.assignments) != 2 {
		t.Errorf("期望 2 条分配记录，实际 %d", len(env.store.assignments))
	}
}

func TestDeleteAssignment_ListExcludesPaper(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.store.addAssignment(3, 7)
	env.store.addAssignment(3, 8)
	env.store.addAssignment(9, 7)

	resp, err := env.svc.Assignment.Delete(ctx, adminCaller, 3)
	if err != nil {
		t.Fatalf("Delete 失败: %v", err)
	}
	if resp.Deleted != 2 {
		t.Errorf("期望删除 2 条，实际 %d", resp.Deleted)
	}

	rows, _ := env.svc.Assignment.List(ctx, adminCaller, &dto.AssignmentFilterQuery{})
	for _, r := range rows {
		if r.PaperID == 3 {
			t.Error("删除后分配列表不应包含论文 3")
		}
	}
	if len(rows) != 1 {
		t.Errorf("期望剩余 1 条，实际 %d", len(rows))
	}

	again, err := env.svc.Assignment.Delete(ctx, adminCaller, 3)
	if err != nil || again.Deleted != 0 {
		t.Errorf("重复删除应成功且计数为 0: resp=%+v err=%v", again, err)
	}
}

func TestUpdateAssignment(t *testing.T) {
	ctx := context.Background()

	t.Run("无分配记录", func(t *testing.T) {
		env := setupTestEnv(t)
		_, err := env.svc.Assignment.Update(ctx, adminCaller, 3, &dto.UpdateAssignmentRequest{ReviewerID: 8})
		if !errors.Is(err, ErrAssignmentNotFound) {
			t.Errorf("期望 ErrAssignmentNotFound，实际 %v", err)
		}
	})

	t.Run("更换审稿人", func(t *testing.T) {
		env := setupTestEnv(t)
		env.store.addAssignment(3, 7)
		if _, err := env.svc.Assignment.Update(ctx, adminCaller, 3, &dto.UpdateAssignmentRequest{ReviewerID: 8}); err != nil {
			t.Fatalf("Update 失败: %v", err)
		}
		if got := env.store.assignments[0].ReviewerID; got != 8 {
			t.Errorf("期望审稿人为 8，实际 %d", got)
		}
	})

	t.Run("审稿人未变化", func(t *testing.T) {
		env := setupTestEnv(t)
		env.store.addAssignment(3, 7)
		if _, err := env.svc.Assignment.Update(ctx, adminCaller, 3, &dto.UpdateAssignmentRequest{ReviewerID: 7}); err != nil {
			t.Errorf("相同审稿人应直接成功: %v", err)
		}
	})

	t.Run("新审稿人无效", func(t *testing.T) {
		env := setupTestEnv(t)
		env.store.addAssignment(3, 7)
		_, err := env.svc.Assignment.Update(ctx, adminCaller, 3, &dto.UpdateAssignmentRequest{ReviewerID: 9})
		if !errors.Is(err, ErrReviewerNotFound) {
			t.Errorf("期望 ErrReviewerNotFound，实际 %v", err)
		}
	})

	t.Run("新审稿人已分配", func(t *testing.T) {
		env := setupTestEnv(t)
		env.store.addAssignment(3, 7)
		env.store.addAssignment(3, 8)
		_, err := env.svc.Assignment.Update(ctx, adminCaller, 3, &dto.UpdateAssignmentRequest{ReviewerID: 8})
		if !errors.Is(err, ErrAssignmentExists) {
			t.Errorf("期望 ErrAssignmentExists，实际 %v", err)
		}
	})
}

func TestListAssignments_Filters(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.store.addAssignment(3, 7)
	env.store.addAssignment(9, 8)

	rows, err := env.svc.Assignment.List(ctx, adminCaller, &dto.AssignmentFilterQuery{ReviewerTracks: []string{"Networks"}})
	if err != nil {
		t.Fatalf("List 失败: %v", err)
	}
	if len(rows) != 1 || rows[0].PaperID != 9 {
		t.Errorf("按审稿人方向筛选应只返回论文 9，实际 %+v", rows)
	}

	rows, _ = env.svc.Assignment.List(ctx, adminCaller, &dto.AssignmentFilterQuery{
		PaperFilterQuery: dto.PaperFilterQuery{ToDate: "2026-03-10"},
	})
	if len(rows) != 1 || rows[0].PaperID != 3 {
		t.Errorf("toDate 应包含当天，实际 %+v", rows)
	}

	_, err = env.svc.Assignment.List(ctx, adminCaller, &dto.AssignmentFilterQuery{
		PaperFilterQuery: dto.PaperFilterQuery{FromDate: "10/03/2026"},
	})
	if !errors.Is(err, ErrInvalidDate) {
		t.Errorf("非法日期应返回 ErrInvalidDate，实际 %v", err)
	}
}

func TestExportAssignments(t *testing.T) {
	env := setupTestEnv(t)
	env.store.addAssignment(9, 8)
	env.store.addAssignment(3, 7)

	buf, filename, err := env.svc.Assignment.Export(context.Background(), adminCaller, &dto.AssignmentFilterQuery{})
	if err != nil {
		t.Fatalf("Export 失败: %v", err)
	}
	if filename == "" {
		t.Error("文件名不应为空")
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("打开导出文件失败: %v", err)
	}
	defer f.Close()

	title, _ := f.GetCellValue("Assignments", "B2")
	if title != "Edge Caching" {
		t.Errorf("第一行应按标题排序为 Edge Caching，实际 %q", title)
	}
	reviewer, _ := f.GetCellValue("Assignments", "E3")
	if reviewer != "Reviewer Seven" {
		t.Errorf("第二行审稿人应为 Reviewer Seven，实际 %q", reviewer)
	}
}

func TestAssignmentPaths_SkipAbstractContent(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.store.papers[3].AbstractBlob = make([]byte, 1<<20)

	resp, err := env.svc.Assignment.Assign(ctx, adminCaller, &dto.AssignReviewerRequest{PaperID: 3, ReviewerID: 7})
	if err != nil {
		t.Fatalf("分配失败: %v", err)
	}
	if resp.PaperTitle != "Graph Sparsification" {
		t.Errorf("标题应来自元数据，实际 %q", resp.PaperTitle)
	}

	list, err := env.svc.Reviewer.ListWithAssignments(ctx, adminCaller)
	if err != nil {
		t.Fatalf("ListWithAssignments 失败: %v", err)
	}
	found := false
	for _, r := range list {
		if r.ID != 7 {
			continue
		}
		for _, title := range r.PaperTitles {
			if title == "Graph Sparsification" {
				found = true
			}
		}
	}
	if !found {
		t.Errorf("审稿人列表应带出论文标题: %+v", list)
	}

	if _, err := env.svc.Review.Latest(ctx, adminCaller, 3); !errors.Is(err, ErrNoReviewYet) {
		t.Errorf("无审稿记录时应返回 ErrNoReviewYet，实际 %v", err)
	}

	if env.store.blobReads != 0 {
		t.Errorf("分配与列表路径不应读取摘要内容，实际读取 %d 次", env.store.blobReads)
	}
}
