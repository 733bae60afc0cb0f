package job

import "time"

// StateName 任务状态名常量，保持与状态机文档一致。
type StateName string

const (
	StateScheduled  StateName = "SCHEDULED"
	StateEnqueued   StateName = "ENQUEUED"
	StateProcessing StateName = "PROCESSING"
	StateSucceeded  StateName = "SUCCEEDED"
	StateFailed     StateName = "FAILED"
	StateDeleted    StateName = "DELETED"
)

// State 状态变体的公共视图：状态名 + 进入该状态的时间。
// 各具体状态另行携带状态私有数据（如 Failed 的异常摘要、Scheduled 的目标时间）。
type State interface {
	Name() StateName
	CreatedAt() time.Time
}

// ScheduledState 计划执行状态（含重试回退后的下一次执行时间）。
type ScheduledState struct {
	Created     time.Time `json:"createdAt"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Reason      string    `json:"reason,omitempty"`
}

func (s ScheduledState) Name() StateName      { return StateScheduled }
func (s ScheduledState) CreatedAt() time.Time { return s.Created }

// NewScheduled 构造 Scheduled 状态。
func NewScheduled(at time.Time, reason string) ScheduledState {
	return ScheduledState{Created: time.Now(), ScheduledAt: at, Reason: reason}
}

// EnqueuedState 已入队等待执行状态。
type EnqueuedState struct {
	Created time.Time `json:"createdAt"`
}

func (s EnqueuedState) Name() StateName      { return StateEnqueued }
func (s EnqueuedState) CreatedAt() time.Time { return s.Created }

// NewEnqueued 构造 Enqueued 状态。
func NewEnqueued() EnqueuedState { return EnqueuedState{Created: time.Now()} }

// ProcessingState 执行中状态，记录执行该实例的 worker 标识。
type ProcessingState struct {
	Created  time.Time `json:"createdAt"`
	WorkerID string    `json:"workerId,omitempty"`
}

func (s ProcessingState) Name() StateName      { return StateProcessing }
func (s ProcessingState) CreatedAt() time.Time { return s.Created }

// NewProcessing 构造 Processing 状态。
func NewProcessing(workerID string) ProcessingState {
	return ProcessingState{Created: time.Now(), WorkerID: workerID}
}

// SucceededState 执行成功状态，携带处理器返回码与消息。
type SucceededState struct {
	Created time.Time `json:"createdAt"`
	Code    int       `json:"code,omitempty"`
	Message string    `json:"message,omitempty"`
}

func (s SucceededState) Name() StateName      { return StateSucceeded }
func (s SucceededState) CreatedAt() time.Time { return s.Created }

// NewSucceeded 构造 Succeeded 状态。
func NewSucceeded(code int, msg string) SucceededState {
	return SucceededState{Created: time.Now(), Code: code, Message: msg}
}

// FailedState 执行失败状态，携带异常摘要。
type FailedState struct {
	Created time.Time `json:"createdAt"`
	Code    int       `json:"code,omitempty"`
	Message string    `json:"message"`
}

func (s FailedState) Name() StateName      { return StateFailed }
func (s FailedState) CreatedAt() time.Time { return s.Created }

// NewFailed 构造 Failed 状态。
func NewFailed(code int, msg string) FailedState {
	return FailedState{Created: time.Now(), Code: code, Message: msg}
}

// DeletedState 终态：任务被删除（重试耗尽或被显式删除）。
type DeletedState struct {
	Created time.Time `json:"createdAt"`
	Reason  string    `json:"reason,omitempty"`
}

func (s DeletedState) Name() StateName      { return StateDeleted }
func (s DeletedState) CreatedAt() time.Time { return s.Created }

// NewDeleted 构造 Deleted 状态。
func NewDeleted(reason string) DeletedState {
	return DeletedState{Created: time.Now(), Reason: reason}
}
