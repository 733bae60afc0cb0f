package filter

import (
	"fmt"

	"github.com/mengeric/jobengine-go/job"
)

// Declared 任务目标上声明的过滤器条目。
// Filter 为现成实例；Filter 为 nil 且 Inject 非空时，表示需要依赖注入构造的过滤器类型。
type Declared struct {
	Filter Filter
	Inject string
}

// Target 目标解析结果：目标方法上声明的过滤器列表。
type Target struct {
	Declared []Declared
}

// TargetResolver 任务目标查找边界（显式查找表，而非反射内嵌到流水线）。
// 约定：目标或方法不存在时返回 ok=false，绝不返回错误。
type TargetResolver interface {
	ResolveTarget(d job.Details) (Target, bool)
}

// Activator 依赖注入能力探针：仅在注入型过滤器即将被调用时使用。
type Activator interface {
	CanActivate(typeName string) bool
	Activate(typeName string) (Filter, error)
}

// ActivationError 配置/能力错误：任务声明了需要依赖注入的过滤器，
// 而当前引擎未配置注入能力。不被流水线的通用错误隔离捕获，向调用方传播。
type ActivationError struct {
	TypeName string
}

func (e *ActivationError) Error() string {
	return fmt.Sprintf("job filter %q requires dependency injection, but no filter activator is configured; "+
		"configure one via engine.WithFilterActivator to enable injected job filters", e.TypeName)
}

// Resolver 按 (任务, 阶段) 计算本次调用的过滤器列表。
// 顺序：注册表过滤器在前（注册序），任务声明过滤器在后。解析幂等、对任务无副作用。
type Resolver struct {
	reg       *Registry
	targets   TargetResolver
	activator Activator
}

// NewResolver 构造解析器。targets、activator 均可为 nil。
func NewResolver(reg *Registry, targets TargetResolver, activator Activator) *Resolver {
	return &Resolver{reg: reg, targets: targets, activator: activator}
}

// Resolve 计算指定阶段的过滤器调用列表。
// 目标无法解析（处理器未注册、方法不存在）静默降级为"无任务声明过滤器"。
// 注入型声明过滤器：处理阶段缺少注入能力返回 *ActivationError；
// 选举/应用阶段与其无关，直接跳过。
func (r *Resolver) Resolve(j *job.Job, stage Stage) ([]Filter, error) {
	out := r.reg.forStage(stage)

	if r.targets == nil {
		return out, nil
	}
	target, ok := r.targets.ResolveTarget(j.Details())
	if !ok {
		return out, nil
	}
	for _, d := range target.Declared {
		f := d.Filter
		if f == nil {
			if d.Inject == "" {
				continue
			}
			if stage != StageProcessing && stage != StageProcessingSucceeded {
				continue
			}
			if r.activator == nil || !r.activator.CanActivate(d.Inject) {
				return nil, &ActivationError{TypeName: d.Inject}
			}
			activated, err := r.activator.Activate(d.Inject)
			if err != nil {
				return nil, fmt.Errorf("activate job filter %q: %w", d.Inject, err)
			}
			f = activated
		}
		if implementsStage(f, stage) {
			out = append(out, f)
		}
	}
	return out, nil
}
