package models

import "time"

// JobStatus 批量任务中单个URL的状态
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"   // 待执行
	JobStatusRunning   JobStatus = "running"   // 执行中
	JobStatusCompleted JobStatus = "completed" // 已完成
	JobStatusFailed    JobStatus = "failed"    // 失败
	JobStatusCancelled JobStatus = "cancelled" // 已取消
	JobStatusSkipped   JobStatus = "skipped"   // 前序失败后跳过
)

// JobResult 批量模式中单个URL的处理结果
type JobResult struct {
	URL          string        `json:"url"`
	Status       JobStatus     `json:"status"`
	ErrorKind    string        `json:"errorKind,omitempty"`
	Error        string        `json:"error,omitempty"`
	IsThread     bool          `json:"isThread"`
	ThreadLength int           `json:"threadLength"`
	OutputFile   string        `json:"outputFile,omitempty"`
	Duration     float64       `json:"duration"` // 秒
	ProcessedAt  time.Time     `json:"processedAt"`
	Result       *ThreadResult `json:"-"`
}

// BatchSummary 批量提取摘要
type BatchSummary struct {
	TotalURLs     int         `json:"totalUrls"`
	SuccessCount  int         `json:"successCount"`
	FailCount     int         `json:"failCount"`
	SkippedCount  int         `json:"skippedCount"`
	TotalPosts    int         `json:"totalPosts"`
	TotalDuration float64     `json:"totalDuration"` // 秒
	Results       []JobResult `json:"results"`
}
