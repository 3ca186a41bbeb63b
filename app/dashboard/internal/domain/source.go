package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// 两种上游记录结构。字段名只在这里和下面两个映射函数中出现，
// 上游改名时只需要改这个文件。

// CompletedSource 已完成报告索引中的记录
type CompletedSource struct {
	Topic     string   `json:"topic"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	Filename  string   `json:"filename,omitempty"`
	PublicURL string   `json:"public_url,omitempty"`
	CreatedAt string   `json:"created_at"`
	Keywords  []string `json:"keywords,omitempty"`
	Summary   *Summary `json:"summary,omitempty"`
}

// JobSource 报告任务索引中的记录（进行中或失败）
type JobSource struct {
	Topic      string   `json:"topic"`
	StartDate  string   `json:"start_date"`
	EndDate    string   `json:"end_date"`
	CreatedAt  string   `json:"created_at"`
	Status     string   `json:"status,omitempty"`
	Progress   *float64 `json:"progress,omitempty"`
	ID         string   `json:"id,omitempty"`
	SubKeyword string   `json:"sub_keyword,omitempty"`
	Summary    *Summary `json:"summary,omitempty"`
}

// UnmarshalJSON id 可能是数字，progress 可能是字符串
func (s *JobSource) UnmarshalJSON(data []byte) error {
	type plain JobSource
	aux := struct {
		*plain
		ID       json.RawMessage `json:"id"`
		Progress json.RawMessage `json:"progress"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	id, err := scalarString(aux.ID)
	if err != nil {
		return fmt.Errorf("job id: %w", err)
	}
	progress, err := scalarFloat(aux.Progress)
	if err != nil {
		return fmt.Errorf("job progress: %w", err)
	}
	s.ID, s.Progress = id, progress
	return nil
}

// FromCompleted 已完成记录 -> Report
func FromCompleted(src *CompletedSource) *Report {
	keywords := src.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return &Report{
		Topic:     src.Topic,
		StartDate: src.StartDate,
		EndDate:   src.EndDate,
		Filename:  src.Filename,
		URL:       src.PublicURL,
		CreatedAt: src.CreatedAt,
		Status:    StatusCompleted,
		Progress:  100,
		Keywords:  keywords,
		Summary:   src.Summary,
	}
}

// FromJob 任务记录 -> Report
func FromJob(src *JobSource) *Report {
	status := src.Status
	if status == "" {
		status = StatusProcessing
	}
	var progress int
	if src.Progress != nil {
		progress = int(*src.Progress)
	}
	return &Report{
		Topic:     src.Topic,
		StartDate: src.StartDate,
		EndDate:   src.EndDate,
		CreatedAt: src.CreatedAt,
		Status:    status,
		Progress:  progress,
		JobID:     src.ID,
		Keywords:  SplitKeywords(src.SubKeyword),
		Summary:   src.Summary,
	}
}

// SplitKeywords 拆分逗号拼接的关键词；空串得到空切片而不是 [""]
func SplitKeywords(joined string) []string {
	if joined == "" {
		return []string{}
	}
	return strings.Split(joined, ",")
}

// JoinKeywords 与 SplitKeywords 相反，用于 generate-report 的 sub_keyword 参数
func JoinKeywords(keywords []string) string {
	return strings.Join(keywords, ",")
}
