package filter

import (
	"context"
	"fmt"

	"github.com/mengeric/jobengine-go/job"
	"github.com/mengeric/jobengine-go/logging"
)

// Pipeline 单任务、单转换窗口的过滤器流水线。
// 构造时对"任务是否存在未提交状态变更"做快照：快照为净时，
// 选举与应用两个状态阶段整体短路（不解析、不调用）。
// 因此每个转换窗口都应新建一个 Pipeline 实例，不做跨窗口复用。
// 非并发安全：调用方须保证阶段调用期间对任务的独占访问。
type Pipeline struct {
	j         *job.Job
	resolver  *Resolver
	hasChange bool
}

// NewPipeline 创建流水线实例并捕获状态变更快照。
func NewPipeline(j *job.Job, r *Resolver) *Pipeline {
	return &Pipeline{j: j, resolver: r, hasChange: j.HasUnsavedStates()}
}

// RunOnStateElectionFilter 选举阶段：
// 依序调用各选举过滤器，提案容器以任务当前状态为初值，后者可覆盖前者；
// 全部运行后，若有过滤器显式提案，则把最终提案追加进任务历史（唯一追加点）。
// 过滤器运行期故障被隔离：记录日志后继续运行剩余过滤器，不向调用方传播。
func (p *Pipeline) RunOnStateElectionFilter() {
	if !p.hasChange {
		return
	}
	fs, err := p.resolver.Resolve(p.j, StageElection)
	if err != nil {
		// 选举阶段按约定不产生致命解析错误，这里仅兜底记录
		logging.L().Error(context.Background(), "resolve election filters failed", "job", p.j.ID(), "err", err)
		return
	}
	proposal := NewStateProposal(p.j.LastState())
	for _, f := range fs {
		ef := f.(ElectStateFilter)
		p.safeInvoke(StageElection, f, func() { ef.OnStateElection(p.j, proposal) })
	}
	if proposal.Elected() && proposal.Current() != nil {
		p.j.ApplyState(proposal.Current())
	}
}

// RunOnStateAppliedFilters 应用阶段：
// 快照为净时整体跳过；否则依序调用各应用过滤器，入参为 (任务, 旧状态, 新状态)。
// 单个过滤器故障被隔离，剩余过滤器照常运行，调用方不会看到异常。
func (p *Pipeline) RunOnStateAppliedFilters() {
	if !p.hasChange {
		return
	}
	newState := p.j.LastState()
	if newState == nil {
		return
	}
	fs, err := p.resolver.Resolve(p.j, StageApplied)
	if err != nil {
		logging.L().Error(context.Background(), "resolve applied filters failed", "job", p.j.ID(), "err", err)
		return
	}
	oldState := p.j.PreviousState()
	for _, f := range fs {
		af := f.(ApplyStateFilter)
		p.safeInvoke(StageApplied, f, func() { af.OnStateApplied(p.j, oldState, newState) })
	}
}

// RunOnJobProcessingFilters 处理前阶段。
// 解析期的配置/能力错误（*ActivationError）不被隔离，原样返回给调用方；
// 单个过滤器的运行期故障仍被隔离。
func (p *Pipeline) RunOnJobProcessingFilters() error {
	fs, err := p.resolver.Resolve(p.j, StageProcessing)
	if err != nil {
		return err
	}
	for _, f := range fs {
		pf := f.(ProcessingFilter)
		p.safeInvoke(StageProcessing, f, func() { pf.OnProcessing(p.j) })
	}
	return nil
}

// RunOnJobProcessingSucceededFilters 处理成功阶段，错误语义与处理前阶段对称。
func (p *Pipeline) RunOnJobProcessingSucceededFilters() error {
	fs, err := p.resolver.Resolve(p.j, StageProcessingSucceeded)
	if err != nil {
		return err
	}
	for _, f := range fs {
		sf := f.(ProcessingSucceededFilter)
		p.safeInvoke(StageProcessingSucceeded, f, func() { sf.OnProcessingSucceeded(p.j) })
	}
	return nil
}

// safeInvoke 单过滤器故障隔离：panic 被捕获并记录，不中断流水线。
// 故障过滤器已产生的局部副作用不回滚。
func (p *Pipeline) safeInvoke(stage Stage, f Filter, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logging.L().Error(context.Background(), "job filter panicked, isolated",
				"stage", stage.String(), "filter", fmt.Sprintf("%T", f), "job", p.j.ID(), "panic", r)
		}
	}()
	fn()
}
