package repo

import (
	"context"

	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/domain"
)

// ReportSearcher 对指定索引执行查询，只返回命中列表
type ReportSearcher interface {
	Search(ctx context.Context, index string, query domain.SearchQuery) ([]domain.Hit, error)
}

// GenerateRequest generate-report 接口参数
type GenerateRequest struct {
	Topic     string
	StartDate string // YYYY-MM-DD
	EndDate   string // YYYY-MM-DD
	Keywords  []string
	Email     string
}

// GenerateResult generate-report 接口响应
type GenerateResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// JobService 外部报告/任务服务
type JobService interface {
	// SuggestKeywords 根据主题获取推荐关键词
	SuggestKeywords(ctx context.Context, topic string) ([]string, error)
	// GenerateReport 提交报告生成任务
	GenerateReport(ctx context.Context, req *GenerateRequest) (*GenerateResult, error)
	// RegenerateReport 重新生成失败的任务
	RegenerateReport(ctx context.Context, jobID, email string) (map[string]any, error)
	// UserReports 直接按邮箱拉取报告列表
	UserReports(ctx context.Context, email string) ([]*domain.Report, error)
}

// IdentityService 外部身份服务
type IdentityService interface {
	Login(ctx context.Context, creds domain.Credentials) (*domain.Session, error)
}

// PreferenceRepo 持久化用户最近一次使用的报告邮箱
type PreferenceRepo interface {
	GetReportEmail(ctx context.Context, userID string) (string, error)
	SaveReportEmail(ctx context.Context, userID, email string) error
	DeleteReportEmail(ctx context.Context, userID string) error
}
