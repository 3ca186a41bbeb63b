package service

import (
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/domain"
)

type ListMineReq struct {
	Q     string `json:"q"`
	Page  int    `json:"page"`
	PrevQ string `json:"prev_q"`
}

type ListMineReply struct {
	Reports    []*domain.Report `json:"reports"`
	Page       int              `json:"page"`
	Total      int              `json:"total"`
	TotalPages int              `json:"total_pages"`
	Polling    bool             `json:"polling"`
	Email      string           `json:"email"`
	Q          string           `json:"q"`
}

type KeywordsReq struct {
	Topic string `json:"topic"`
}

type KeywordsReply struct {
	Keywords []string `json:"keywords"`
}

type GenerateReq struct {
	Topic     string   `json:"topic"`
	Keywords  []string `json:"keywords"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	Email     string   `json:"email"`
}

type RegenerateReq struct {
	JobID string `json:"job_id"`
	Email string `json:"email"`
}

// ActionReply 生成/重新生成的结果
type ActionReply struct {
	Status       string               `json:"status"`
	Message      string               `json:"message"`
	Notification *domain.Notification `json:"notification,omitempty"`
	Reports      []*domain.Report     `json:"reports,omitempty"`
}

type LoginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginReply struct {
	User domain.User `json:"user"`
}

type StatusReply struct {
	Status string `json:"status"`
}

// StreamEvent SSE 中 reports 事件的数据
type StreamEvent struct {
	Reports []*domain.Report `json:"reports"`
	Polling bool             `json:"polling"`
	Error   string           `json:"error,omitempty"`
}
