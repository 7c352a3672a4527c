package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"icodses/backend/internal/service"
)

// Drainer 投递一批到期的发件箱消息
type Drainer interface {
	DrainOutbox(ctx context.Context) (service.DrainResult, error)
}

// OutboxWorker 按 cron 表达式定期投递通知发件箱
type OutboxWorker struct {
	drainer Drainer
	cron    *cron.Cron
	timeout time.Duration
	logger  *zap.Logger
}

// NewOutboxWorker 注册定时任务，上一轮未结束时跳过本轮
func NewOutboxWorker(schedule string, timeout time.Duration, drainer Drainer, logger *zap.Logger) (*OutboxWorker, error) {
	w := &OutboxWorker{
		drainer: drainer,
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		timeout: timeout,
		logger:  logger.Named("outbox-worker"),
	}

	if _, err := w.cron.AddFunc(schedule, func() { w.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("无效的 outbox.schedule %q: %w", schedule, err)
	}
	return w, nil
}

// Start 启动调度
func (w *OutboxWorker) Start() {
	w.logger.Info("发件箱投递任务已启动")
	w.cron.Start()
}

// Stop 停止调度并等待正在执行的任务结束，ctx 到期时直接返回
func (w *OutboxWorker) Stop(ctx context.Context) error {
	done := w.cron.Stop().Done()
	select {
	case <-done:
		w.logger.Info("发件箱投递任务已停止")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce 执行一轮投递
func (w *OutboxWorker) RunOnce(ctx context.Context) service.DrainResult {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	res, err := w.drainer.DrainOutbox(ctx)
	if err != nil {
		w.logger.Error("发件箱投递失败", zap.Error(err))
		return res
	}
	if res.Claimed > 0 {
		w.logger.Info("发件箱投递完成",
			zap.Int("claimed", res.Claimed),
			zap.Int("sent", res.Sent),
			zap.Int("retried", res.Retried),
			zap.Int("failed", res.Failed),
		)
	}
	return res
}
