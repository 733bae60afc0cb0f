package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mengeric/jobengine-go/job"
)

// API 定义与引擎 HTTP 端点的交互接口，便于 gomock 打桩。
type API interface {
	EnqueueJob(ctx context.Context, host string, req EnqueueJobReq) (job.Snapshot, error)
	QueryJob(ctx context.Context, host string, jobID string) (job.Snapshot, error)
	StopJob(ctx context.Context, host string, jobID string) error
}

// httpAPI 实现 API。
type httpAPI struct{ hc *http.Client }

// NewHTTPAPI 构造 HTTP 实现。
func NewHTTPAPI() API { return &httpAPI{hc: &http.Client{Timeout: 8 * time.Second}} }

// EnqueueJob 提交一个任务到引擎。
// 参数：host 形如 127.0.0.1:27777。返回：入队后的任务快照，或错误。
func (h *httpAPI) EnqueueJob(ctx context.Context, host string, req EnqueueJobReq) (job.Snapshot, error) {
	u := fmt.Sprintf("http://%s/jobs/enqueue", host)
	var resp CommonResp[job.Snapshot]
	if err := h.post(ctx, u, req, &resp); err != nil {
		return job.Snapshot{}, err
	}
	if !resp.Success {
		return job.Snapshot{}, fmt.Errorf("enqueue job failed: %s", resp.Message)
	}
	return resp.Data, nil
}

// QueryJob 查询任务快照。
func (h *httpAPI) QueryJob(ctx context.Context, host string, jobID string) (job.Snapshot, error) {
	u := fmt.Sprintf("http://%s/jobs/query", host)
	var resp CommonResp[job.Snapshot]
	if err := h.post(ctx, u, JobIDReq{JobID: jobID}, &resp); err != nil {
		return job.Snapshot{}, err
	}
	if !resp.Success {
		return job.Snapshot{}, fmt.Errorf("query job failed: %s", resp.Message)
	}
	return resp.Data, nil
}

// StopJob 停止（删除）任务。
func (h *httpAPI) StopJob(ctx context.Context, host string, jobID string) error {
	u := fmt.Sprintf("http://%s/jobs/stop", host)
	var resp CommonResp[struct{}]
	if err := h.post(ctx, u, JobIDReq{JobID: jobID}, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("stop job failed: %s", resp.Message)
	}
	return nil
}

// post 执行 POST 请求并可选解码响应。
func (h *httpAPI) post(ctx context.Context, u string, body any, out any) error {
	b, _ := json.Marshal(body)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	res, err := h.hc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		rb, _ := io.ReadAll(res.Body)
		return fmt.Errorf("POST %s => %d: %s", u, res.StatusCode, string(rb))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
