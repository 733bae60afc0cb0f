package filter

import (
	"fmt"
	"time"

	"github.com/mengeric/jobengine-go/job"
)

// RetryFilter 内置默认选举过滤器：实现"有限重试、耗尽后保持终止失败"。
// 当前状态为 Failed 且失败次数未超过任务重试预算时，提案改为 Scheduled（指数回退）；
// 预算耗尽则不提案，任务停留在 Failed 终态。
type RetryFilter struct {
	maxRetries int // 任务未设置预算时的兜底上限
}

// NewRetryFilter 构造默认重试过滤器。
func NewRetryFilter(maxRetries int) *RetryFilter {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RetryFilter{maxRetries: maxRetries}
}

// OnStateElection 实现 ElectStateFilter。
func (f *RetryFilter) OnStateElection(j *job.Job, proposal *StateProposal) {
	cur := proposal.Current()
	if cur == nil || cur.Name() != job.StateFailed {
		return
	}
	budget := j.MaxRetries()
	if budget <= 0 {
		budget = f.maxRetries
	}
	failures := j.FailureCount()
	if failures > budget {
		return // 重试预算耗尽，保持 Failed 终态
	}
	at := time.Now().Add(backoff(failures))
	proposal.Propose(job.NewScheduled(at, fmt.Sprintf("retry %d of %d", failures, budget)))
}

// backoff 重试回退时长。简单指数曲线即可，精细回退策略不在本层职责内。
func backoff(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	n := failures * failures * failures * failures
	return time.Duration(n)*time.Second + 10*time.Second
}
