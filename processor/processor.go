package processor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/mengeric/jobengine-go/filter"
	"github.com/mengeric/jobengine-go/job"
)

// Result 处理器执行结果。
type Result struct {
	Code int
	Msg  string
}

// Processor 统一处理器接口。
// 功能：执行业务逻辑；Stop 用于响应停止。参数为任务 Details 中的原始 JSON，由处理器自行解码。
type Processor interface {
	Init(ctx context.Context) error
	Run(ctx context.Context, params json.RawMessage) (Result, error)
	Stop(ctx context.Context) error
}

// DefaultMethod 任务 Details.Method 留空时的默认入口方法名。
const DefaultMethod = "Run"

// Registration 一次处理器注册：入口方法集合与目标上声明的任务级过滤器。
// 声明过滤器是对"目标方法注解"的显式查找表表达：随注册声明，随任务解析。
type Registration struct {
	name    string
	proc    Processor
	methods map[string]struct{}
	filters []filter.Declared
}

// Name 返回注册名。
func (r *Registration) Name() string { return r.name }

// Proc 返回处理器实例。
func (r *Registration) Proc() Processor { return r.proc }

// HasMethod 判断入口方法是否存在；空串与 DefaultMethod 总是存在。
func (r *Registration) HasMethod(m string) bool {
	if m == "" || m == DefaultMethod {
		return true
	}
	_, ok := r.methods[m]
	return ok
}

// DeclaredFilters 返回声明过滤器列表副本。
func (r *Registration) DeclaredFilters() []filter.Declared {
	out := make([]filter.Declared, len(r.filters))
	copy(out, r.filters)
	return out
}

// RegisterOption 注册可选项。
type RegisterOption func(*Registration)

// WithMethods 声明默认入口之外的方法名。
func WithMethods(names ...string) RegisterOption {
	return func(r *Registration) {
		for _, n := range names {
			r.methods[n] = struct{}{}
		}
	}
}

// WithJobFilters 在目标上声明现成的任务级过滤器实例。
func WithJobFilters(fs ...filter.Filter) RegisterOption {
	return func(r *Registration) {
		for _, f := range fs {
			r.filters = append(r.filters, filter.Declared{Filter: f})
		}
	}
}

// WithInjectedJobFilter 声明一个需要依赖注入构造的任务级过滤器类型。
// 仅当处理阶段即将调用它且引擎未配置 Activator 时，才会产生配置错误。
func WithInjectedJobFilter(typeName string) RegisterOption {
	return func(r *Registration) {
		r.filters = append(r.filters, filter.Declared{Inject: typeName})
	}
}

var (
	regMu      sync.RWMutex
	processors = map[string]*Registration{}
)

// Register 注册处理器。
func Register(name string, p Processor, opts ...RegisterOption) {
	r := &Registration{name: name, proc: p, methods: map[string]struct{}{}}
	for _, fn := range opts {
		fn(r)
	}
	regMu.Lock()
	defer regMu.Unlock()
	processors[name] = r
}

// Get 获取处理器注册信息。
func Get(name string) (*Registration, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	r, ok := processors[name]
	return r, ok
}

// ErrNotFound 处理器不存在错误。
var ErrNotFound = errors.New("processor not found")

// targets 将注册表适配为 filter.TargetResolver。
type targets struct{}

// Targets 返回基于注册表的目标解析器。
// 处理器未注册或方法不存在时返回 ok=false，不产生错误。
func Targets() filter.TargetResolver { return targets{} }

// ResolveTarget 实现 filter.TargetResolver。
func (targets) ResolveTarget(d job.Details) (filter.Target, bool) {
	r, ok := Get(d.Processor)
	if !ok {
		return filter.Target{}, false
	}
	if !r.HasMethod(d.Method) {
		return filter.Target{}, false
	}
	return filter.Target{Declared: r.DeclaredFilters()}, true
}
