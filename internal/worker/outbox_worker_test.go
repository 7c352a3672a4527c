package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"icodses/backend/internal/service"
)

type mockDrainer struct {
	calls    atomic.Int32
	err      error
	deadline bool
}

func (m *mockDrainer) DrainOutbox(ctx context.Context) (service.DrainResult, error) {
	m.calls.Add(1)
	_, m.deadline = ctx.Deadline()
	if m.err != nil {
		return service.DrainResult{}, m.err
	}
	return service.DrainResult{Claimed: 2, Sent: 2}, nil
}

func TestNewOutboxWorker_InvalidSchedule(t *testing.T) {
	if _, err := NewOutboxWorker("every ten seconds", 0, &mockDrainer{}, zap.NewNop()); err == nil {
		t.Error("无效的 cron 表达式应返回错误")
	}
}

func TestRunOnce(t *testing.T) {
	d := &mockDrainer{}
	w, err := NewOutboxWorker("@every 1h", 5*time.Second, d, zap.NewNop())
	if err != nil {
		t.Fatalf("NewOutboxWorker 失败: %v", err)
	}

	res := w.RunOnce(context.Background())
	if res.Sent != 2 || d.calls.Load() != 1 {
		t.Errorf("RunOnce 结果不符: res=%+v calls=%d", res, d.calls.Load())
	}
	if !d.deadline {
		t.Error("配置超时时应带 deadline")
	}

	d.err = errors.New("db down")
	if res := w.RunOnce(context.Background()); res.Claimed != 0 {
		t.Errorf("失败时结果应为空: %+v", res)
	}
}

func TestStartStop(t *testing.T) {
	d := &mockDrainer{}
	w, err := NewOutboxWorker("@every 1s", 0, d, zap.NewNop())
	if err != nil {
		t.Fatalf("NewOutboxWorker 失败: %v", err)
	}

	w.Start()
	time.Sleep(1500 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("Stop 失败: %v", err)
	}
	if d.calls.Load() < 1 {
		t.Error("调度启动后应至少执行一次")
	}
}
