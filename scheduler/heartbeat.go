package scheduler

import (
	"context"
	"time"

	"github.com/mengeric/jobengine-go/job"
	"github.com/mengeric/jobengine-go/logging"
	"github.com/mengeric/jobengine-go/metrics"
)

// StateCounter 心跳所需的精简存储视图。
type StateCounter interface {
	CountByState(ctx context.Context) (map[job.StateName]int, error)
}

// Heartbeat 周期性输出引擎健康日志：系统指标 + 任务状态分布 + 运行中实例数。
type Heartbeat struct {
	store    StateCounter
	running  func() int
	interval time.Duration
}

// NewHeartbeat 构造。running 返回当前执行中的任务实例数。
func NewHeartbeat(store StateCounter, running func() int, interval time.Duration) *Heartbeat {
	return &Heartbeat{store: store, running: running, interval: interval}
}

// Start 启动心跳。
func (h *Heartbeat) Start(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m := metrics.CollectSystemMetric(ctx)
				counts, err := h.store.CountByState(ctx)
				if err != nil {
					logging.L().Warn(ctx, "count jobs by state failed", "err", err)
					continue
				}
				logging.L().Info(ctx, "engine heartbeat",
					"score", m.Score,
					"cpuLoad", m.CPULoad,
					"running", h.running(),
					"enqueued", counts[job.StateEnqueued],
					"scheduled", counts[job.StateScheduled],
					"processing", counts[job.StateProcessing],
					"succeeded", counts[job.StateSucceeded],
					"failed", counts[job.StateFailed],
				)
			}
		}
	}()
}
