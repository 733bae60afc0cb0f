package filter

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mengeric/jobengine-go/job"
)

// buildJob 构造带初始状态历史的任务，全部状态处于未提交水位。
func buildJob(states ...job.State) *job.Job {
	j := job.New("test-job", job.Details{Processor: "demo"})
	for _, s := range states {
		j.ApplyState(s)
	}
	return j
}

// commitAll 把任务当前历史全部提交（模拟已落库）。
func commitAll(j *job.Job) {
	job.NewVersioner(j).Commit()
}

// electRecorder 记录型选举过滤器：可选地提出固定提案。
type electRecorder struct {
	propose job.State
	seen    []job.StateName
	calls   int
	log     *[]string
	tag     string
}

func (f *electRecorder) OnStateElection(j *job.Job, p *StateProposal) {
	f.calls++
	if f.log != nil {
		*f.log = append(*f.log, f.tag)
	}
	if p.Current() != nil {
		f.seen = append(f.seen, p.Current().Name())
	}
	if f.propose != nil {
		p.Propose(f.propose)
	}
}

// deleteOnFailure 业务式选举过滤器：任务失败时直接判删。
type deleteOnFailure struct{}

func (deleteOnFailure) OnStateElection(j *job.Job, p *StateProposal) {
	if j.StateName() == job.StateFailed {
		p.Propose(job.NewDeleted("failure is terminal for this job"))
	}
}

// applyRecorder 记录型应用过滤器。
type applyRecorder struct {
	olds  []job.StateName
	news  []job.StateName
	calls int
}

func (f *applyRecorder) OnStateApplied(j *job.Job, oldState, newState job.State) {
	f.calls++
	if oldState != nil {
		f.olds = append(f.olds, oldState.Name())
	}
	f.news = append(f.news, newState.Name())
}

// procRecorder 记录处理前/处理成功钩子调用。
type procRecorder struct {
	processing int
	succeeded  int
}

func (f *procRecorder) OnProcessing(j *job.Job)          { f.processing++ }
func (f *procRecorder) OnProcessingSucceeded(j *job.Job) { f.succeeded++ }

// panicky 在所有阶段都 panic 的故障过滤器。
type panicky struct{}

func (panicky) OnStateElection(j *job.Job, p *StateProposal) { panic("election boom") }
func (panicky) OnStateApplied(j *job.Job, o, n job.State)    { panic("applied boom") }
func (panicky) OnProcessing(j *job.Job)                      { panic("processing boom") }
func (panicky) OnProcessingSucceeded(j *job.Job)             { panic("succeeded boom") }

func newResolver(reg *Registry) *Resolver { return NewResolver(reg, nil, nil) }

func TestPipelineShortCircuit(t *testing.T) {
	Convey("election and applied stages skip entirely when no unsaved state change", t, func() {
		j := buildJob(job.NewEnqueued(), job.NewProcessing("w1"))
		commitAll(j)

		er := &electRecorder{propose: job.NewDeleted("should never be applied")}
		ar := &applyRecorder{}
		p := NewPipeline(j, newResolver(NewRegistryWithoutDefault(er, ar)))

		p.RunOnStateElectionFilter()
		p.RunOnStateAppliedFilters()

		So(er.calls, ShouldEqual, 0)
		So(ar.calls, ShouldEqual, 0)
		So(j.StateNames(), ShouldResemble, []job.StateName{job.StateEnqueued, job.StateProcessing})
	})

	Convey("snapshot is taken at construction, not at stage invocation", t, func() {
		j := buildJob(job.NewEnqueued())
		commitAll(j)
		p := NewPipeline(j, newResolver(NewRegistryWithoutDefault(&electRecorder{})))
		// 构造后再追加状态：本窗口流水线仍按净快照短路
		j.ApplyState(job.NewProcessing("w1"))
		p.RunOnStateElectionFilter()
		So(j.StateNames(), ShouldResemble, []job.StateName{job.StateEnqueued, job.StateProcessing})
	})
}

func TestDefaultRetryElection(t *testing.T) {
	Convey("a freshly failed job is rescheduled by the default retry filter", t, func() {
		j := buildJob(job.NewEnqueued(), job.NewProcessing("w1"))
		commitAll(j)
		j.ApplyState(job.NewFailed(-1, "connection reset"))

		p := NewPipeline(j, newResolver(NewRegistry()))
		p.RunOnStateElectionFilter()

		So(j.StateNames(), ShouldResemble, []job.StateName{
			job.StateEnqueued, job.StateProcessing, job.StateFailed, job.StateScheduled,
		})
		sch, ok := j.LastState().(job.ScheduledState)
		So(ok, ShouldBeTrue)
		So(sch.Reason, ShouldEqual, "retry 1 of 10")
	})

	Convey("a job whose retry budget is exhausted stays failed", t, func() {
		j := buildJob(
			job.NewEnqueued(), job.NewProcessing("w1"), job.NewFailed(-1, "boom"),
			job.NewScheduled(time.Now(), "retry 1 of 1"),
			job.NewEnqueued(), job.NewProcessing("w1"),
		)
		j.SetMaxRetries(1)
		commitAll(j)
		j.ApplyState(job.NewFailed(-1, "boom again"))

		p := NewPipeline(j, newResolver(NewRegistry()))
		p.RunOnStateElectionFilter()

		// 失败计数 2 > 预算 1：不再提案，保持 Failed 终态
		So(j.StateName(), ShouldEqual, job.StateFailed)
		So(len(j.StateNames()), ShouldEqual, 7)
	})

	Convey("election does nothing for a non-failed current state", t, func() {
		j := buildJob(job.NewEnqueued())
		p := NewPipeline(j, newResolver(NewRegistry()))
		p.RunOnStateElectionFilter()
		So(j.StateNames(), ShouldResemble, []job.StateName{job.StateEnqueued})
	})
}

func TestElectionOverride(t *testing.T) {
	Convey("a later elect filter overwrites the retry proposal in place", t, func() {
		j := buildJob(job.NewEnqueued(), job.NewProcessing("w1"))
		commitAll(j)
		j.ApplyState(job.NewFailed(-1, "fatal"))

		// 默认重试过滤器先提案 Scheduled，判删过滤器后运行并覆盖之
		p := NewPipeline(j, newResolver(NewRegistry(deleteOnFailure{})))
		p.RunOnStateElectionFilter()

		So(j.StateNames(), ShouldResemble, []job.StateName{
			job.StateEnqueued, job.StateProcessing, job.StateFailed, job.StateDeleted,
		})
	})

	Convey("replacing the default election filter removes the retry behavior", t, func() {
		j := buildJob(job.NewEnqueued(), job.NewProcessing("w1"))
		commitAll(j)
		j.ApplyState(job.NewFailed(-1, "fatal"))

		p := NewPipeline(j, newResolver(NewRegistryWithoutDefault(&electRecorder{})))
		p.RunOnStateElectionFilter()

		// 无人提案：不追加任何状态
		So(j.StateName(), ShouldEqual, job.StateFailed)
		So(len(j.StateNames()), ShouldEqual, 3)
	})

	Convey("later filters observe the proposal left by earlier ones", t, func() {
		j := buildJob(job.NewEnqueued(), job.NewProcessing("w1"))
		commitAll(j)
		j.ApplyState(job.NewFailed(-1, "fatal"))

		witness := &electRecorder{}
		p := NewPipeline(j, newResolver(NewRegistry(witness)))
		p.RunOnStateElectionFilter()

		// 默认重试过滤器已把提案改为 Scheduled，后运行者看到的是新提案
		So(witness.seen, ShouldResemble, []job.StateName{job.StateScheduled})
	})
}

func TestAppliedStage(t *testing.T) {
	Convey("applied filters receive the committed old and new states", t, func() {
		j := buildJob(job.NewEnqueued())
		commitAll(j)
		j.ApplyState(job.NewProcessing("w1"))

		ar := &applyRecorder{}
		p := NewPipeline(j, newResolver(NewRegistryWithoutDefault(ar)))
		p.RunOnStateAppliedFilters()

		So(ar.calls, ShouldEqual, 1)
		So(ar.olds, ShouldResemble, []job.StateName{job.StateEnqueued})
		So(ar.news, ShouldResemble, []job.StateName{job.StateProcessing})
	})

	Convey("applied stage observes but never mutates the history", t, func() {
		j := buildJob(job.NewEnqueued())
		commitAll(j)
		j.ApplyState(job.NewProcessing("w1"))

		p := NewPipeline(j, newResolver(NewRegistryWithoutDefault(&applyRecorder{})))
		p.RunOnStateAppliedFilters()
		So(j.StateNames(), ShouldResemble, []job.StateName{job.StateEnqueued, job.StateProcessing})
	})
}

func TestProcessingStages(t *testing.T) {
	Convey("processing hooks run regardless of the state-change snapshot", t, func() {
		j := buildJob(job.NewEnqueued(), job.NewProcessing("w1"))
		commitAll(j) // 快照为净，处理钩子不受短路影响

		pr := &procRecorder{}
		p := NewPipeline(j, newResolver(NewRegistryWithoutDefault(pr)))

		So(p.RunOnJobProcessingFilters(), ShouldBeNil)
		So(p.RunOnJobProcessingSucceededFilters(), ShouldBeNil)
		So(pr.processing, ShouldEqual, 1)
		So(pr.succeeded, ShouldEqual, 1)
	})
}

func TestPanicIsolation(t *testing.T) {
	Convey("a panicking filter is isolated and the rest of the chain still runs", t, func() {
		j := buildJob(job.NewEnqueued())
		commitAll(j)
		j.ApplyState(job.NewFailed(-1, "boom"))

		after := &electRecorder{propose: job.NewDeleted("cleanup")}
		p := NewPipeline(j, newResolver(NewRegistryWithoutDefault(panicky{}, after)))
		p.RunOnStateElectionFilter()

		So(after.calls, ShouldEqual, 1)
		So(j.StateName(), ShouldEqual, job.StateDeleted)
	})

	Convey("panics in applied and processing hooks never reach the caller", t, func() {
		j := buildJob(job.NewEnqueued())
		commitAll(j)
		j.ApplyState(job.NewProcessing("w1"))

		p := NewPipeline(j, newResolver(NewRegistryWithoutDefault(panicky{})))
		So(func() { p.RunOnStateAppliedFilters() }, ShouldNotPanic)
		So(p.RunOnJobProcessingFilters(), ShouldBeNil)
		So(p.RunOnJobProcessingSucceededFilters(), ShouldBeNil)
	})
}
