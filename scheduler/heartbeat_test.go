package scheduler

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/mock/gomock"

	"github.com/mengeric/jobengine-go/job"
	"github.com/mengeric/jobengine-go/mocks"
)

func TestHeartbeat(t *testing.T) {
	Convey("heartbeat should periodically query the state distribution", t, func() {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		store := mocks.NewMockStateCounter(ctrl)
		store.EXPECT().
			CountByState(gomock.Any()).
			Return(map[job.StateName]int{job.StateEnqueued: 2, job.StateProcessing: 1}, nil).
			MinTimes(1)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		NewHeartbeat(store, func() int { return 1 }, 50*time.Millisecond).Start(ctx)
		time.Sleep(120 * time.Millisecond)
		So(true, ShouldBeTrue)
	})

	Convey("heartbeat survives a counting error", t, func() {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		store := mocks.NewMockStateCounter(ctrl)
		store.EXPECT().
			CountByState(gomock.Any()).
			Return(nil, context.DeadlineExceeded).
			MinTimes(1)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		NewHeartbeat(store, func() int { return 0 }, 30*time.Millisecond).Start(ctx)
		time.Sleep(100 * time.Millisecond)
		So(true, ShouldBeTrue)
	})
}
