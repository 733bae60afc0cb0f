package job

import (
	"encoding/json"

	"github.com/google/uuid"
)

// DefaultMaxRetries 默认重试次数上限（默认选举过滤器使用）。
const DefaultMaxRetries = 10

// Details 任务目标描述：处理器名 + 入口方法 + 原始参数。
// 说明：Processor/Method 仅为查找键，解析失败不视为错误（见 filter.Resolver）。
type Details struct {
	Processor string          `json:"processor"`
	Method    string          `json:"method,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
}

// Job 任务实体：状态历史 + 元数据侧通道。
// 所有权：实体归引擎/存储层所有；过滤器流水线仅在单个阶段调用期间持有可变引用。
// 并发：实体内部不加锁，调用方须保证单阶段调用期间的独占访问。
type Job struct {
	id         string
	name       string
	details    Details
	maxRetries int

	history  []State
	saved    int // 已提交到存储的状态数（版本水位）
	metadata map[string]any
}

// New 创建任务实体（无初始状态，由调用方 ApplyState 驱动）。
func New(name string, d Details) *Job {
	return &Job{
		id:         uuid.NewString(),
		name:       name,
		details:    d,
		maxRetries: DefaultMaxRetries,
		metadata:   map[string]any{},
	}
}

// ID 返回任务标识。
func (j *Job) ID() string { return j.id }

// Name 返回任务名。
func (j *Job) Name() string { return j.name }

// Details 返回目标描述。
func (j *Job) Details() Details { return j.details }

// MaxRetries 返回重试上限。
func (j *Job) MaxRetries() int { return j.maxRetries }

// SetMaxRetries 设置重试上限（<0 视为 0）。
func (j *Job) SetMaxRetries(n int) {
	if n < 0 {
		n = 0
	}
	j.maxRetries = n
}

// ApplyState 追加一个新状态。历史只增不减，这是唯一的状态变更入口。
func (j *Job) ApplyState(s State) { j.history = append(j.history, s) }

// LastState 返回最近一次状态；无历史时返回 nil。
func (j *Job) LastState() State {
	if len(j.history) == 0 {
		return nil
	}
	return j.history[len(j.history)-1]
}

// PreviousState 返回倒数第二个状态；不足两条时返回 nil。
func (j *Job) PreviousState() State {
	if len(j.history) < 2 {
		return nil
	}
	return j.history[len(j.history)-2]
}

// StateName 返回最近状态名；无历史时返回空串。
func (j *Job) StateName() StateName {
	if s := j.LastState(); s != nil {
		return s.Name()
	}
	return ""
}

// History 返回状态历史副本（切片层面拷贝，状态值只读使用）。
func (j *Job) History() []State {
	out := make([]State, len(j.history))
	copy(out, j.history)
	return out
}

// StateNames 返回历史状态名序列，测试断言常用。
func (j *Job) StateNames() []StateName {
	out := make([]StateName, 0, len(j.history))
	for _, s := range j.history {
		out = append(out, s.Name())
	}
	return out
}

// Version 返回已提交的状态数（版本水位）。
func (j *Job) Version() int { return j.saved }

// HasUnsavedStates 判断是否存在尚未提交的状态变更。
func (j *Job) HasUnsavedStates() bool { return len(j.history) > j.saved }

// UnsavedStates 返回尚未提交的状态切片。
func (j *Job) UnsavedStates() []State {
	if !j.HasUnsavedStates() {
		return nil
	}
	out := make([]State, len(j.history)-j.saved)
	copy(out, j.history[j.saved:])
	return out
}

// FailureCount 返回历史中 Failed 状态的数量，默认重试策略据此判断预算。
func (j *Job) FailureCount() int {
	n := 0
	for _, s := range j.history {
		if s.Name() == StateFailed {
			n++
		}
	}
	return n
}

// markSaved 将当前历史全部标记为已提交，由 Versioner.Commit 调用。
func (j *Job) markSaved() { j.saved = len(j.history) }

// Metadata 返回元数据映射本体：过滤器之间的读写侧通道，非并发安全。
func (j *Job) Metadata() map[string]any { return j.metadata }

// MetaSet 写入一个元数据键值。
func (j *Job) MetaSet(k string, v any) { j.metadata[k] = v }

// MetaGet 读取一个元数据键值。
func (j *Job) MetaGet(k string) (any, bool) { v, ok := j.metadata[k]; return v, ok }
