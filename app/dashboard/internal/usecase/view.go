package usecase

import (
	"strings"

	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/domain"
)

// PageSize 每页报告数
const PageSize = 5

// ReportView 一页报告
type ReportView struct {
	Reports    []*domain.Report `json:"reports"`
	Page       int              `json:"page"`
	Total      int              `json:"total"`
	TotalPages int              `json:"total_pages"`
}

// Filter 按主题或任一关键词做大小写不敏感的子串匹配，空白搜索词返回原列表
func Filter(reports []*domain.Report, term string) []*domain.Report {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return reports
	}
	out := make([]*domain.Report, 0, len(reports))
	for _, r := range reports {
		if matches(r, term) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r *domain.Report, term string) bool {
	if strings.Contains(strings.ToLower(r.Topic), term) {
		return true
	}
	for _, k := range r.Keywords {
		if strings.Contains(strings.ToLower(k), term) {
			return true
		}
	}
	return false
}

// TotalPages ceil(n/size)
func TotalPages(n, size int) int {
	if size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Paginate 取第 page 页（从 1 开始），越界页返回空切片
func Paginate(reports []*domain.Report, page, size int) []*domain.Report {
	if page < 1 || size <= 0 {
		return []*domain.Report{}
	}
	start := (page - 1) * size
	if start >= len(reports) {
		return []*domain.Report{}
	}
	end := start + size
	if end > len(reports) {
		end = len(reports)
	}
	return reports[start:end]
}

// BuildView 过滤后分页
func BuildView(reports []*domain.Report, term string, page int) *ReportView {
	filtered := Filter(reports, term)
	return &ReportView{
		Reports:    Paginate(filtered, page, PageSize),
		Page:       page,
		Total:      len(filtered),
		TotalPages: TotalPages(len(filtered), PageSize),
	}
}
