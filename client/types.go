package client

import "encoding/json"

// CommonResp 统一响应包装。
type CommonResp[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message"`
}

// EnqueueJobReq enqueue 请求体。
type EnqueueJobReq struct {
	Name       string          `json:"name"`
	Processor  string          `json:"processor"`
	Method     string          `json:"method,omitempty"`
	Params     json.RawMessage `json:"params,omitempty"`
	MaxRetries int             `json:"maxRetries,omitempty"`
}

// JobIDReq stop/query 请求体。
type JobIDReq struct {
	JobID string `json:"jobId"`
}
