package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/sync/errgroup"

	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/conf"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/domain"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/repo"
)

// SourceDirect 通过 user-reports 接口直接拉取
const SourceDirect = "direct"

// sortByCreatedAt 两个索引共用的排序子句，created_at.keyword 为字符串排序
var sortByCreatedAt = json.RawMessage(`[{"created_at.keyword":{"order":"desc"}}]`)

// ReportUseCase 报告聚合
type ReportUseCase struct {
	searcher       repo.ReportSearcher
	jobs           repo.JobService
	completedIndex string
	jobsIndex      string
	direct         bool
	log            *log.Helper
}

// NewReportUseCase jobs 仅在 reports.source 为 direct 时使用，可以为 nil
func NewReportUseCase(searcher repo.ReportSearcher, jobs repo.JobService, s *conf.Search, r *conf.Reports, logger log.Logger) *ReportUseCase {
	return &ReportUseCase{
		searcher:       searcher,
		jobs:           jobs,
		completedIndex: s.CompletedIndexName(),
		jobsIndex:      s.JobsIndexName(),
		direct:         r != nil && r.Source == SourceDirect,
		log:            log.NewHelper(logger),
	}
}

// CompletedQuery 已完成报告索引的查询
func CompletedQuery(email string) domain.SearchQuery {
	q, _ := json.Marshal(map[string]any{
		"match": map[string]any{"email_receiver": email},
	})
	return domain.SearchQuery{Query: q, Sort: sortByCreatedAt}
}

// JobsQuery 任务索引的查询，排除 completed 状态
func JobsQuery(email string) domain.SearchQuery {
	q, _ := json.Marshal(map[string]any{
		"bool": map[string]any{
			"must": []any{
				map[string]any{"match": map[string]any{"email_receiver": email}},
				map[string]any{"bool": map[string]any{
					"must_not": []any{
						map[string]any{"match": map[string]any{"status": domain.StatusCompleted}},
					},
				}},
			},
		},
	})
	return domain.SearchQuery{Query: q, Sort: sortByCreatedAt}
}

// Aggregate 查询两个索引并合并为按 created_at 倒序的报告列表。
// 两次查询并发执行，都返回后才产出结果；邮箱为空时不发起请求。
func (uc *ReportUseCase) Aggregate(ctx context.Context, email string) ([]*domain.Report, error) {
	if email == "" {
		return []*domain.Report{}, nil
	}
	if uc.direct {
		return uc.aggregateDirect(ctx, email)
	}

	var (
		completedHits, jobHits []domain.Hit
		completedErr, jobErr   error
		g                      errgroup.Group
	)
	g.Go(func() error {
		completedHits, completedErr = uc.searcher.Search(ctx, uc.completedIndex, CompletedQuery(email))
		return completedErr
	})
	g.Go(func() error {
		jobHits, jobErr = uc.searcher.Search(ctx, uc.jobsIndex, JobsQuery(email))
		return jobErr
	})
	if err := g.Wait(); err != nil {
		// 两边都失败时以任务索引的错误为准
		if jobErr != nil {
			err = jobErr
		}
		uc.log.WithContext(ctx).Errorf("aggregate reports for %s failed: %v", email, err)
		return nil, fetchError(err)
	}
	if completedHits == nil || jobHits == nil {
		return nil, domain.FetchError(domain.MsgInvalidResponse)
	}

	reports := make([]*domain.Report, 0, len(completedHits)+len(jobHits))
	for _, h := range jobHits {
		var src domain.JobSource
		if !uc.decodeSource(ctx, uc.jobsIndex, h, &src) {
			continue
		}
		reports = append(reports, domain.FromJob(&src))
	}
	for _, h := range completedHits {
		var src domain.CompletedSource
		if !uc.decodeSource(ctx, uc.completedIndex, h, &src) {
			continue
		}
		reports = append(reports, domain.FromCompleted(&src))
	}
	SortByCreatedAt(reports)
	return reports, nil
}

func (uc *ReportUseCase) aggregateDirect(ctx context.Context, email string) ([]*domain.Report, error) {
	if uc.jobs == nil {
		return nil, domain.FetchError("report API not configured")
	}
	reports, err := uc.jobs.UserReports(ctx, email)
	if err != nil {
		uc.log.WithContext(ctx).Errorf("user-reports for %s failed: %v", email, err)
		return nil, fetchError(err)
	}
	SortByCreatedAt(reports)
	return reports, nil
}

// fetchError 保留上游的 message
func fetchError(err error) error {
	if e := errors.FromError(err); e != nil && e.Reason != errors.UnknownReason {
		return domain.FetchError(e.Message)
	}
	return domain.FetchError("")
}

// decodeSource _source 为空或 null 的命中被跳过；无法解析的命中记录告警后跳过
func (uc *ReportUseCase) decodeSource(ctx context.Context, index string, h domain.Hit, dst any) bool {
	raw := bytes.TrimSpace(h.Source)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		uc.log.WithContext(ctx).Warnf("skip undecodable hit in %s: %v", index, err)
		return false
	}
	return true
}

// SortByCreatedAt created_at 倒序的稳定排序。无法解析的时间排在最后，彼此按字符串倒序。
func SortByCreatedAt(reports []*domain.Report) {
	type key struct {
		t  time.Time
		ok bool
	}
	keys := make(map[*domain.Report]key, len(reports))
	for _, r := range reports {
		t, err := dateparse.ParseIn(r.CreatedAt, time.UTC)
		keys[r] = key{t: t, ok: err == nil && r.CreatedAt != ""}
	}
	sort.SliceStable(reports, func(i, j int) bool {
		a, b := keys[reports[i]], keys[reports[j]]
		switch {
		case a.ok && b.ok:
			return a.t.After(b.t)
		case a.ok != b.ok:
			return a.ok
		default:
			return reports[i].CreatedAt > reports[j].CreatedAt
		}
	})
}
