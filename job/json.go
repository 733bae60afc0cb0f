package job

import (
	"encoding/json"
	"fmt"
	"time"
)

// stateJSON 状态的扁平化 JSON 表示：按 State 字段区分变体。
type stateJSON struct {
	State       StateName  `json:"state"`
	CreatedAt   time.Time  `json:"createdAt"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	WorkerID    string     `json:"workerId,omitempty"`
	Code        int        `json:"code,omitempty"`
	Message     string     `json:"message,omitempty"`
	Reason      string     `json:"reason,omitempty"`
}

func toStateJSON(s State) stateJSON {
	out := stateJSON{State: s.Name(), CreatedAt: s.CreatedAt()}
	switch v := s.(type) {
	case ScheduledState:
		at := v.ScheduledAt
		out.ScheduledAt = &at
		out.Reason = v.Reason
	case ProcessingState:
		out.WorkerID = v.WorkerID
	case SucceededState:
		out.Code = v.Code
		out.Message = v.Message
	case FailedState:
		out.Code = v.Code
		out.Message = v.Message
	case DeletedState:
		out.Reason = v.Reason
	}
	return out
}

func fromStateJSON(s stateJSON) (State, error) {
	switch s.State {
	case StateScheduled:
		at := s.CreatedAt
		if s.ScheduledAt != nil {
			at = *s.ScheduledAt
		}
		return ScheduledState{Created: s.CreatedAt, ScheduledAt: at, Reason: s.Reason}, nil
	case StateEnqueued:
		return EnqueuedState{Created: s.CreatedAt}, nil
	case StateProcessing:
		return ProcessingState{Created: s.CreatedAt, WorkerID: s.WorkerID}, nil
	case StateSucceeded:
		return SucceededState{Created: s.CreatedAt, Code: s.Code, Message: s.Message}, nil
	case StateFailed:
		return FailedState{Created: s.CreatedAt, Code: s.Code, Message: s.Message}, nil
	case StateDeleted:
		return DeletedState{Created: s.CreatedAt, Reason: s.Reason}, nil
	default:
		return nil, fmt.Errorf("unknown job state %q", s.State)
	}
}

// Snapshot 任务的可序列化快照，供存储层与 HTTP API 使用。
type Snapshot struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Details    Details        `json:"details"`
	MaxRetries int            `json:"maxRetries"`
	Version    int            `json:"version"`
	States     []stateJSON    `json:"states"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// CurrentState 返回快照的当前状态名；无状态时返回空串。
func (s Snapshot) CurrentState() StateName {
	if len(s.States) == 0 {
		return ""
	}
	return s.States[len(s.States)-1].State
}

// Snapshot 导出当前任务快照。
func (j *Job) Snapshot() Snapshot {
	states := make([]stateJSON, 0, len(j.history))
	for _, s := range j.history {
		states = append(states, toStateJSON(s))
	}
	meta := make(map[string]any, len(j.metadata))
	for k, v := range j.metadata {
		meta[k] = v
	}
	return Snapshot{
		ID:         j.id,
		Name:       j.name,
		Details:    j.details,
		MaxRetries: j.maxRetries,
		Version:    j.saved,
		States:     states,
		Metadata:   meta,
	}
}

// FromSnapshot 由快照还原任务实体。
// 版本水位取快照 Version 并夹取到 [0, len(states)]，容忍历史数据不一致。
func FromSnapshot(s Snapshot) (*Job, error) {
	history := make([]State, 0, len(s.States))
	for _, st := range s.States {
		decoded, err := fromStateJSON(st)
		if err != nil {
			return nil, err
		}
		history = append(history, decoded)
	}
	saved := s.Version
	if saved < 0 {
		saved = 0
	}
	if saved > len(history) {
		saved = len(history)
	}
	meta := s.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	return &Job{
		id:         s.ID,
		name:       s.Name,
		details:    s.Details,
		maxRetries: s.MaxRetries,
		history:    history,
		saved:      saved,
		metadata:   meta,
	}, nil
}

// MarshalJSON 以快照形式序列化任务。
func (j *Job) MarshalJSON() ([]byte, error) { return json.Marshal(j.Snapshot()) }

// UnmarshalJSON 由快照反序列化任务。
func (j *Job) UnmarshalJSON(b []byte) error {
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	decoded, err := FromSnapshot(s)
	if err != nil {
		return err
	}
	*j = *decoded
	return nil
}
