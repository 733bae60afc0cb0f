package filter

import "github.com/mengeric/jobengine-go/job"

// Filter 标记接口：一个过滤器实例可实现下列任意能力子集，
// 解析器按"是否实现能力 X"筛选，而非按继承层次。一个能力都不实现的实例是惰性的。
type Filter interface{}

// ElectStateFilter 选举能力：在状态转换前参与决定下一个状态。
// proposal 以任务当前（最后一个）状态为初值，后运行的过滤器可见并可覆盖前者的提案。
type ElectStateFilter interface {
	OnStateElection(j *job.Job, proposal *StateProposal)
}

// ApplyStateFilter 应用能力：状态转换提交后的只读观察钩子。
type ApplyStateFilter interface {
	OnStateApplied(j *job.Job, oldState, newState job.State)
}

// ProcessingFilter 处理前钩子：任务业务逻辑执行前调用。
type ProcessingFilter interface {
	OnProcessing(j *job.Job)
}

// ProcessingSucceededFilter 处理成功钩子：任务业务逻辑执行成功后调用。
type ProcessingSucceededFilter interface {
	OnProcessingSucceeded(j *job.Job)
}

// Stage 流水线阶段选择器。
type Stage int

const (
	StageElection Stage = iota
	StageApplied
	StageProcessing
	StageProcessingSucceeded
)

// String 返回阶段名，用于日志。
func (s Stage) String() string {
	switch s {
	case StageElection:
		return "election"
	case StageApplied:
		return "applied"
	case StageProcessing:
		return "processing"
	case StageProcessingSucceeded:
		return "processing-succeeded"
	default:
		return "unknown"
	}
}

// implementsStage 判断过滤器实例是否实现指定阶段的能力。
func implementsStage(f Filter, s Stage) bool {
	switch s {
	case StageElection:
		_, ok := f.(ElectStateFilter)
		return ok
	case StageApplied:
		_, ok := f.(ApplyStateFilter)
		return ok
	case StageProcessing:
		_, ok := f.(ProcessingFilter)
		return ok
	case StageProcessingSucceeded:
		_, ok := f.(ProcessingSucceededFilter)
		return ok
	default:
		return false
	}
}

// StateProposal 选举阶段的可变"下一状态"容器。
// 初值为任务当前状态；只有某个过滤器显式 Propose 过，流水线才会提交（追加）最终提案。
type StateProposal struct {
	current job.State
	elected bool
}

// NewStateProposal 以任务当前状态为初值创建提案容器。
func NewStateProposal(cur job.State) *StateProposal { return &StateProposal{current: cur} }

// Current 返回当前提案状态。
func (p *StateProposal) Current() job.State { return p.current }

// Propose 覆盖当前提案；后续过滤器将看到新值。
func (p *StateProposal) Propose(s job.State) {
	p.current = s
	p.elected = true
}

// Elected 返回是否有过滤器显式提出过提案。
func (p *StateProposal) Elected() bool { return p.elected }
