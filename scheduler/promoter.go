package scheduler

import (
	"context"
	"time"

	"github.com/mengeric/jobengine-go/job"
	"github.com/mengeric/jobengine-go/logging"
)

// DueLister 仅需要列出到期 Scheduled 任务的精简存储视图。
type DueLister interface {
	ListDueScheduled(ctx context.Context, before time.Time, limit int) ([]*job.Job, error)
}

// PromoteFunc 晋升回调：由引擎实现，将任务经流水线转入 Enqueued。
type PromoteFunc func(ctx context.Context, j *job.Job) error

// Promoter 周期性把到期的 Scheduled 任务晋升为 Enqueued（重试闭环的后半程）。
type Promoter struct {
	store    DueLister
	promote  PromoteFunc
	interval time.Duration
	batch    int
}

// NewPromoter 构造。
func NewPromoter(store DueLister, promote PromoteFunc, interval time.Duration, batch int) *Promoter {
	if batch <= 0 {
		batch = 64
	}
	return &Promoter{store: store, promote: promote, interval: interval, batch: batch}
}

// Start 启动晋升任务。
func (p *Promoter) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				list, err := p.store.ListDueScheduled(ctx, time.Now(), p.batch)
				if err != nil {
					logging.L().Warn(ctx, "list due scheduled failed", "err", err)
					continue
				}
				for _, j := range list {
					if err := p.promote(ctx, j); err != nil {
						logging.L().Warn(ctx, "promote scheduled job failed", "job", j.ID(), "err", err)
					}
				}
			}
		}
	}()
}
