package engine

import (
	"context"
	"errors"
	"time"

	"github.com/mengeric/jobengine-go/job"
)

// ErrNotFound 任务不存在错误。
var ErrNotFound = errors.New("job not found")

// TransitionEvent 一次已提交状态转换的审计记录。
type TransitionEvent struct {
	JobID string        `json:"jobId"`
	From  job.StateName `json:"from,omitempty"`
	To    job.StateName `json:"to"`
	At    time.Time     `json:"at"`
}

// Storage 任务持久化接口（可由宿主实现或使用内置 gormstore/内存实现）。
// 约定：Save 持久化任务完整快照；实现需保证 FetchNextEnqueued 的认领原子性，
// 同一任务在重新 Save 前不会被第二个 worker 取走。
type Storage interface {
	// Save 插入或整体覆盖任务快照。
	Save(ctx context.Context, j *job.Job) error
	// Get 按任务ID读取；不存在返回 ErrNotFound。
	Get(ctx context.Context, id string) (*job.Job, error)
	// FetchNextEnqueued 原子认领一个 Enqueued 任务；无任务返回 (nil, nil)。
	FetchNextEnqueued(ctx context.Context) (*job.Job, error)
	// ListDueScheduled 列出计划时间早于 before 的 Scheduled 任务。
	ListDueScheduled(ctx context.Context, before time.Time, limit int) ([]*job.Job, error)
	// CountByState 按当前状态统计任务数，心跳健康报告使用。
	CountByState(ctx context.Context) (map[job.StateName]int, error)
	// AppendEvents 批量追加状态转换审计记录。
	AppendEvents(ctx context.Context, evs []TransitionEvent) error
}
