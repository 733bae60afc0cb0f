package example

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mengeric/jobengine-go/processor"
)

// Sleep 示例处理器：按参数休眠指定毫秒后成功返回。
type Sleep struct{}

type sleepParams struct {
	SleepMS int `json:"sleepMS"`
}

// Init 无初始化动作。
func (Sleep) Init(ctx context.Context) error { return nil }

// Run 解码参数并休眠；ctx 取消时提前返回。
func (Sleep) Run(ctx context.Context, params json.RawMessage) (processor.Result, error) {
	var p sleepParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return processor.Result{Code: -1, Msg: "bad params"}, err
		}
	}
	select {
	case <-ctx.Done():
		return processor.Result{Code: -1, Msg: "cancelled"}, ctx.Err()
	case <-time.After(time.Duration(p.SleepMS) * time.Millisecond):
	}
	return processor.Result{Code: 0, Msg: "ok"}, nil
}

// Stop 无停止动作。
func (Sleep) Stop(ctx context.Context) error { return nil }
