package engine

import (
	"context"
	"time"

	"github.com/mengeric/jobengine-go/job"
	"github.com/mengeric/jobengine-go/logging"
)

// transitionLog 内置应用过滤器：把每次已提交的状态转换写入批量通道，
// 后台协程按周期/批量阈值落库为审计记录。通道满时丢弃并告警，不阻塞流水线。
type transitionLog struct {
	store Storage
	ch    chan TransitionEvent
	tick  time.Duration
	max   int
}

// newTransitionLog 创建转换审计过滤器。
// 参数：interval 落库周期；batchMax 单批最大条数。
func newTransitionLog(store Storage, interval time.Duration, batchMax int) *transitionLog {
	if batchMax <= 0 {
		batchMax = 256
	}
	return &transitionLog{
		store: store,
		ch:    make(chan TransitionEvent, batchMax*4),
		tick:  interval,
		max:   batchMax,
	}
}

// OnStateApplied 实现 filter.ApplyStateFilter：只观察，不修改任务。
func (l *transitionLog) OnStateApplied(j *job.Job, oldState, newState job.State) {
	ev := TransitionEvent{JobID: j.ID(), To: newState.Name(), At: time.Now()}
	if oldState != nil {
		ev.From = oldState.Name()
	}
	select {
	case l.ch <- ev:
	default:
		logging.L().Warn(context.Background(), "transition log queue full, drop", "job", ev.JobID, "to", ev.To)
	}
}

// Start 启动后台落库协程。
func (l *transitionLog) Start(ctx context.Context) {
	ticker := time.NewTicker(l.tick)
	go func() {
		defer ticker.Stop()
		buf := make([]TransitionEvent, 0, l.max)
		flush := func() {
			if len(buf) == 0 {
				return
			}
			if err := l.store.AppendEvents(ctx, buf); err != nil {
				logging.L().Warn(ctx, "append transition events failed", "count", len(buf), "err", err)
			}
			buf = buf[:0]
		}
		for {
			select {
			case <-ctx.Done():
				flush()
				return
			case ev := <-l.ch:
				buf = append(buf, ev)
				if len(buf) >= l.max {
					flush()
				}
			case <-ticker.C:
				flush()
			}
		}
	}()
}
