package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/mengeric/jobengine-go/client"
	"github.com/mengeric/jobengine-go/filter"
	"github.com/mengeric/jobengine-go/job"
	"github.com/mengeric/jobengine-go/logging"
	"github.com/mengeric/jobengine-go/processor"
	"github.com/mengeric/jobengine-go/scheduler"
	"github.com/mengeric/jobengine-go/tracker"
)

// Engine 任务引擎：对外提供 HTTP 入队/停止/查询端点，
// 对内驱动 worker 拉取执行、状态过滤器流水线、重试晋升与健康心跳。
type Engine struct {
	opt      Options
	store    Storage
	resolver *filter.Resolver
	trk      *tracker.Manager
	tlog     *transitionLog

	srv    *http.Server
	addrMu sync.RWMutex
	addr   string
}

// New 创建引擎实例。
// 功能：装配存储、过滤器注册表与解析器；转换审计过滤器恒定追加在注册表末位。
// 参数：opts 见 options.go 中的 With... 系列。
// 返回：未启动的引擎，调用 Start 后开始服务。
func New(opts ...Option) *Engine {
	cfg := engineConfig{}
	for _, fn := range opts {
		fn(&cfg)
	}
	cfg.opt.withDefaults()

	e := &Engine{opt: cfg.opt, store: cfg.store, trk: tracker.NewManager()}
	if e.store == nil {
		e.store = newDefaultMemStore()
	}

	e.tlog = newTransitionLog(e.store, time.Second, cfg.opt.EventBatchMax)
	fs := append(append([]filter.Filter{}, cfg.filters...), e.tlog)

	var reg *filter.Registry
	if cfg.replaceDefault {
		reg = filter.NewRegistryWithoutDefault(fs...)
	} else {
		reg = filter.NewRegistry(fs...)
	}

	targets := cfg.targets
	if targets == nil {
		targets = processor.Targets()
	}
	e.resolver = filter.NewResolver(reg, targets, cfg.activator)
	return e
}

// Start 启动引擎：HTTP 服务、转换审计落库、worker 循环、晋升与心跳后台任务。
// ctx 取消时触发整体优雅关闭。监听失败立即返回错误。
func (e *Engine) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	e.registerHandlers(mux)

	ln, err := net.Listen("tcp", e.opt.ListenAddr)
	if err != nil {
		logging.L().Error(ctx, "engine listen failed", "addr", e.opt.ListenAddr, "err", err)
		return err
	}
	e.addrMu.Lock()
	e.addr = ln.Addr().String()
	e.addrMu.Unlock()

	e.srv = &http.Server{Handler: mux}
	go func() {
		if err := e.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.L().Error(ctx, "engine http serve exited", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.srv.Shutdown(shutdownCtx)
	}()

	e.tlog.Start(ctx)
	for i := 0; i < e.opt.Workers; i++ {
		go e.workerLoop(ctx, i)
	}
	scheduler.NewPromoter(e.store, e.promote, e.opt.PromoteEvery, 0).Start(ctx)
	scheduler.NewHeartbeat(e.store, e.trk.Count, e.opt.HeartbeatEvery).Start(ctx)

	logging.L().Info(ctx, "engine started",
		"addr", e.addr, "workerID", e.opt.WorkerID, "workers", e.opt.Workers)
	return nil
}

// Addr 返回实际监听地址（支持 ":0" 随机端口）。Start 成功前为空串。
func (e *Engine) Addr() string {
	e.addrMu.RLock()
	defer e.addrMu.RUnlock()
	return e.addr
}

// Store 返回引擎使用的存储实现。
func (e *Engine) Store() Storage { return e.store }

// NewJob 按引擎默认重试上限构造新任务。
func (e *Engine) NewJob(name string, d job.Details) *job.Job {
	j := job.New(name, d)
	j.SetMaxRetries(e.opt.MaxRetries)
	return j
}

// Enqueue 把任务置为 Enqueued 并经流水线提交入库。
func (e *Engine) Enqueue(ctx context.Context, j *job.Job) error {
	j.ApplyState(job.NewEnqueued())
	return e.transition(ctx, j)
}

// transition 一个转换窗口：选举 → 提交落库 → 应用通知。
func (e *Engine) transition(ctx context.Context, j *job.Job) error {
	pf := filter.NewPipeline(j, e.resolver)
	pf.RunOnStateElectionFilter()
	if err := e.commit(ctx, j); err != nil {
		return err
	}
	pf.RunOnStateAppliedFilters()
	return nil
}

// commit 持久化任务并推进版本水位。
func (e *Engine) commit(ctx context.Context, j *job.Job) error {
	v := job.NewVersioner(j)
	if err := e.store.Save(ctx, j); err != nil {
		return err
	}
	v.Commit()
	return nil
}

// moveTo 追加一个状态并走完整转换窗口，失败仅记录。
func (e *Engine) moveTo(ctx context.Context, j *job.Job, s job.State) {
	j.ApplyState(s)
	if err := e.transition(ctx, j); err != nil {
		logging.L().Error(ctx, "persist job transition failed",
			"job", j.ID(), "state", s.Name(), "err", err)
	}
}

// promote 晋升回调：到期 Scheduled → Enqueued。
func (e *Engine) promote(ctx context.Context, j *job.Job) error {
	j.ApplyState(job.NewEnqueued())
	return e.transition(ctx, j)
}

// workerLoop 单 worker 循环：按周期拉取 Enqueued 任务并执行，单周期内持续拉空队列。
func (e *Engine) workerLoop(ctx context.Context, idx int) {
	ticker := time.NewTicker(e.opt.PollEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				j, err := e.store.FetchNextEnqueued(ctx)
				if err != nil {
					logging.L().Warn(ctx, "fetch enqueued job failed", "worker", idx, "err", err)
					break
				}
				if j == nil {
					break
				}
				e.perform(ctx, j)
				select {
				case <-ctx.Done():
					return
				default:
				}
			}
		}
	}
}

// perform 执行一个已认领任务的完整生命周期：
// Processing 转换（选举可改道）→ 处理前过滤器 → 业务执行 → 终态转换 → 处理成功过滤器。
func (e *Engine) perform(ctx context.Context, j *job.Job) {
	ins := e.trk.Start(ctx, j.ID())
	defer e.trk.Stop(j.ID())

	j.ApplyState(job.NewProcessing(e.opt.WorkerID))
	if err := e.transition(ctx, j); err != nil {
		logging.L().Error(ctx, "enter processing failed", "job", j.ID(), "err", err)
		return
	}
	// 选举过滤器可能改道（如直接判删），此时不再执行业务
	if j.StateName() != job.StateProcessing {
		return
	}

	pf := filter.NewPipeline(j, e.resolver)
	if err := pf.RunOnJobProcessingFilters(); err != nil {
		logging.L().Error(ctx, "job processing filters failed", "job", j.ID(), "err", err)
		e.moveTo(ctx, j, job.NewFailed(-1, err.Error()))
		return
	}

	res, runErr := e.run(ins.Ctx, j)
	if runErr != nil {
		select {
		case <-ctx.Done():
			// 引擎整体关闭：不写终态，任务保持 Processing 待恢复
			return
		default:
		}
		if ins.Ctx.Err() != nil {
			e.moveTo(ctx, j, job.NewDeleted("stopped by user"))
			return
		}
		e.moveTo(ctx, j, job.NewFailed(res.Code, runErr.Error()))
		return
	}

	j.ApplyState(job.NewSucceeded(res.Code, res.Msg))
	if err := e.transition(ctx, j); err != nil {
		logging.L().Error(ctx, "persist succeeded state failed", "job", j.ID(), "err", err)
		return
	}
	spf := filter.NewPipeline(j, e.resolver)
	if err := spf.RunOnJobProcessingSucceededFilters(); err != nil {
		logging.L().Error(ctx, "job processing succeeded filters failed", "job", j.ID(), "err", err)
	}
}

// run 查找处理器并执行业务逻辑。
func (e *Engine) run(ctx context.Context, j *job.Job) (processor.Result, error) {
	reg, ok := processor.Get(j.Details().Processor)
	if !ok {
		return processor.Result{Code: -1, Msg: "processor not found"}, processor.ErrNotFound
	}
	return reg.Proc().Run(ctx, j.Details().Params)
}

// registerHandlers 注册 HTTP 端点。
func (e *Engine) registerHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/jobs/enqueue", e.handleEnqueueJob)
	mux.HandleFunc("/jobs/stop", e.handleStopJob)
	mux.HandleFunc("/jobs/query", e.handleQueryJob)
}

// handleEnqueueJob 入队端点：构造任务并经流水线提交。
func (e *Engine) handleEnqueueJob(w http.ResponseWriter, r *http.Request) {
	var req client.EnqueueJobReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Processor == "" {
		writeErr(w, http.StatusBadRequest, "processor is required")
		return
	}
	name := req.Name
	if name == "" {
		name = req.Processor
	}
	j := e.NewJob(name, job.Details{Processor: req.Processor, Method: req.Method, Params: req.Params})
	if req.MaxRetries > 0 {
		j.SetMaxRetries(req.MaxRetries)
	}
	if err := e.Enqueue(r.Context(), j); err != nil {
		writeErr(w, http.StatusInternalServerError, "enqueue failed: "+err.Error())
		return
	}
	writeJSON(w, client.CommonResp[job.Snapshot]{Success: true, Data: j.Snapshot()})
}

// handleStopJob 停止端点：运行中的任务取消其上下文；
// 排队/计划中的任务直接经流水线转 Deleted；终态任务视为已停止。
func (e *Engine) handleStopJob(w http.ResponseWriter, r *http.Request) {
	var req client.JobIDReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.JobID == "" {
		writeErr(w, http.StatusBadRequest, "jobId is required")
		return
	}
	if e.trk.Stop(req.JobID) {
		writeJSON(w, client.CommonResp[struct{}]{Success: true})
		return
	}
	j, err := e.store.Get(r.Context(), req.JobID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeErr(w, http.StatusNotFound, "job not found")
			return
		}
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	switch j.StateName() {
	case job.StateSucceeded, job.StateFailed, job.StateDeleted:
		// 已是终态，不再追加
	default:
		e.moveTo(r.Context(), j, job.NewDeleted("stopped by user"))
	}
	writeJSON(w, client.CommonResp[struct{}]{Success: true})
}

// handleQueryJob 查询端点：返回任务快照。
func (e *Engine) handleQueryJob(w http.ResponseWriter, r *http.Request) {
	var req client.JobIDReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.JobID == "" {
		writeErr(w, http.StatusBadRequest, "jobId is required")
		return
	}
	j, err := e.store.Get(r.Context(), req.JobID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeErr(w, http.StatusNotFound, "job not found")
			return
		}
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, client.CommonResp[job.Snapshot]{Success: true, Data: j.Snapshot()})
}

// writeJSON 输出 JSON 响应。
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr 输出错误响应。
func writeErr(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(client.CommonResp[struct{}]{Success: false, Message: msg})
}
