package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mengeric/jobengine-go/client"
	"github.com/mengeric/jobengine-go/job"
	"github.com/mengeric/jobengine-go/processor"
)

type okProc struct{}

func (okProc) Init(ctx context.Context) error { return nil }
func (okProc) Run(ctx context.Context, params json.RawMessage) (processor.Result, error) {
	return processor.Result{Code: 0, Msg: "done"}, nil
}
func (okProc) Stop(ctx context.Context) error { return nil }

type failProc struct{}

func (failProc) Init(ctx context.Context) error { return nil }
func (failProc) Run(ctx context.Context, params json.RawMessage) (processor.Result, error) {
	return processor.Result{Code: 500, Msg: "exploded"}, errors.New("business logic exploded")
}
func (failProc) Stop(ctx context.Context) error { return nil }

type blockProc struct{}

func (blockProc) Init(ctx context.Context) error { return nil }
func (blockProc) Run(ctx context.Context, params json.RawMessage) (processor.Result, error) {
	<-ctx.Done()
	return processor.Result{}, ctx.Err()
}
func (blockProc) Stop(ctx context.Context) error { return nil }

// newTestEngine 启动一个随机端口、快轮询的引擎。
func newTestEngine(t *testing.T, ctx context.Context, opts ...Option) *Engine {
	t.Helper()
	base := []Option{
		WithListenAddr("127.0.0.1:0"),
		WithWorkers(1),
		WithPollEvery(20 * time.Millisecond),
		WithPromoteEvery(20 * time.Millisecond),
		WithHeartbeatEvery(time.Hour),
	}
	e := New(append(base, opts...)...)
	if err := e.Start(ctx); err != nil {
		t.Fatalf("start engine: %v", err)
	}
	return e
}

// waitState 轮询存储直到任务到达期望状态。
func waitState(store Storage, id string, want job.StateName) (*job.Job, bool) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		j, err := store.Get(context.Background(), id)
		if err == nil && j.StateName() == want {
			return j, true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return nil, false
}

func TestEngineSuccessFlow(t *testing.T) {
	Convey("an enqueued job runs to SUCCEEDED and its transitions are audited", t, func() {
		processor.Register("engine-ok-proc", okProc{})
		store := NewMemStore()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		e := newTestEngine(t, ctx, WithStorage(store))

		api := client.NewHTTPAPI()
		snap, err := api.EnqueueJob(ctx, e.Addr(), client.EnqueueJobReq{
			Name: "ok-flow", Processor: "engine-ok-proc",
		})
		So(err, ShouldBeNil)
		So(snap.CurrentState(), ShouldEqual, job.StateEnqueued)

		j, ok := waitState(store, snap.ID, job.StateSucceeded)
		So(ok, ShouldBeTrue)
		So(j.StateNames(), ShouldResemble, []job.StateName{
			job.StateEnqueued, job.StateProcessing, job.StateSucceeded,
		})

		got, err := api.QueryJob(ctx, e.Addr(), snap.ID)
		So(err, ShouldBeNil)
		So(got.CurrentState(), ShouldEqual, job.StateSucceeded)

		// 转换审计按秒级批量落库，稍候再查
		time.Sleep(1200 * time.Millisecond)
		evs := store.Events()
		So(len(evs), ShouldBeGreaterThanOrEqualTo, 3)
		So(evs[len(evs)-1].To, ShouldEqual, job.StateSucceeded)
	})
}

func TestEngineRetryFlow(t *testing.T) {
	Convey("a failing job is rescheduled with exponential backoff", t, func() {
		processor.Register("engine-fail-proc", failProc{})
		store := NewMemStore()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		e := newTestEngine(t, ctx, WithStorage(store), WithMaxRetries(2))

		j := e.NewJob("fail-flow", job.Details{Processor: "engine-fail-proc"})
		So(e.Enqueue(ctx, j), ShouldBeNil)

		got, ok := waitState(store, j.ID(), job.StateScheduled)
		So(ok, ShouldBeTrue)
		So(got.StateNames(), ShouldResemble, []job.StateName{
			job.StateEnqueued, job.StateProcessing, job.StateFailed, job.StateScheduled,
		})
		sch := got.LastState().(job.ScheduledState)
		So(sch.Reason, ShouldEqual, "retry 1 of 2")
		So(sch.ScheduledAt.After(time.Now()), ShouldBeTrue)
	})
}

func TestEngineStop(t *testing.T) {
	Convey("stopping a running job cancels its context and deletes it", t, func() {
		processor.Register("engine-block-proc", blockProc{})
		store := NewMemStore()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		e := newTestEngine(t, ctx, WithStorage(store))

		j := e.NewJob("block-flow", job.Details{Processor: "engine-block-proc"})
		So(e.Enqueue(ctx, j), ShouldBeNil)

		_, ok := waitState(store, j.ID(), job.StateProcessing)
		So(ok, ShouldBeTrue)

		api := client.NewHTTPAPI()
		So(api.StopJob(ctx, e.Addr(), j.ID()), ShouldBeNil)

		got, ok := waitState(store, j.ID(), job.StateDeleted)
		So(ok, ShouldBeTrue)
		del := got.LastState().(job.DeletedState)
		So(del.Reason, ShouldEqual, "stopped by user")
	})

	Convey("stopping a pending job deletes it without running it", t, func() {
		store := NewMemStore()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		e := newTestEngine(t, ctx, WithStorage(store))

		j := e.NewJob("pending-flow", job.Details{Processor: "no-such-proc"})
		j.ApplyState(job.NewScheduled(time.Now().Add(time.Hour), "manual"))
		So(e.transition(ctx, j), ShouldBeNil)

		api := client.NewHTTPAPI()
		So(api.StopJob(ctx, e.Addr(), j.ID()), ShouldBeNil)

		got, err := store.Get(ctx, j.ID())
		So(err, ShouldBeNil)
		So(got.StateName(), ShouldEqual, job.StateDeleted)
	})

	Convey("stopping an unknown job reports not found", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		e := newTestEngine(t, ctx)

		api := client.NewHTTPAPI()
		err := api.StopJob(ctx, e.Addr(), "no-such-job")
		So(err, ShouldNotBeNil)
	})
}

func TestEnginePromotion(t *testing.T) {
	Convey("a due scheduled job is promoted to ENQUEUED and then executed", t, func() {
		processor.Register("engine-promote-proc", okProc{})
		store := NewMemStore()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		e := newTestEngine(t, ctx, WithStorage(store))

		j := e.NewJob("promote-flow", job.Details{Processor: "engine-promote-proc"})
		j.ApplyState(job.NewScheduled(time.Now().Add(-time.Second), "already due"))
		So(e.transition(ctx, j), ShouldBeNil)

		got, ok := waitState(store, j.ID(), job.StateSucceeded)
		So(ok, ShouldBeTrue)
		So(got.StateNames(), ShouldResemble, []job.StateName{
			job.StateScheduled, job.StateEnqueued, job.StateProcessing, job.StateSucceeded,
		})
	})
}

func TestEngineEnqueueValidation(t *testing.T) {
	Convey("the enqueue endpoint rejects a missing processor", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		e := newTestEngine(t, ctx)

		api := client.NewHTTPAPI()
		_, err := api.EnqueueJob(ctx, e.Addr(), client.EnqueueJobReq{Name: "bad"})
		So(err, ShouldNotBeNil)
	})
}
