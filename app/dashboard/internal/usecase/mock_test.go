package usecase

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/domain"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/repo"
)

// mockSearcher 按索引返回预设命中
type mockSearcher struct {
	mu      sync.Mutex
	hits    map[string][]domain.Hit
	errs    map[string]error
	queries map[string]domain.SearchQuery
}

func newMockSearcher() *mockSearcher {
	return &mockSearcher{
		hits:    map[string][]domain.Hit{},
		errs:    map[string]error{},
		queries: map[string]domain.SearchQuery{},
	}
}

func (m *mockSearcher) add(index string, sources ...string) {
	for _, s := range sources {
		m.hits[index] = append(m.hits[index], domain.Hit{Source: json.RawMessage(s)})
	}
}

func (m *mockSearcher) Search(ctx context.Context, index string, query domain.SearchQuery) ([]domain.Hit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries[index] = query
	if err := m.errs[index]; err != nil {
		return nil, err
	}
	if h, ok := m.hits[index]; ok {
		return h, nil
	}
	return []domain.Hit{}, nil
}

// mockJobs 记录调用次数的任务服务
type mockJobs struct {
	mu sync.Mutex

	suggest    []string
	suggestErr error
	generate   *repo.GenerateResult
	genErr     error
	regenErr   error
	reports    []*domain.Report
	reportsErr error

	calls     int
	generated []*repo.GenerateRequest
}

func (m *mockJobs) SuggestKeywords(ctx context.Context, topic string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.suggest, m.suggestErr
}

func (m *mockJobs) GenerateReport(ctx context.Context, req *repo.GenerateRequest) (*repo.GenerateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.generated = append(m.generated, req)
	if m.genErr != nil {
		return nil, m.genErr
	}
	if m.generate == nil {
		return &repo.GenerateResult{Status: "success"}, nil
	}
	return m.generate, nil
}

func (m *mockJobs) RegenerateReport(ctx context.Context, jobID, email string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.regenErr != nil {
		return nil, m.regenErr
	}
	return map[string]any{"status": "success", "job_id": jobID}, nil
}

func (m *mockJobs) UserReports(ctx context.Context, email string) ([]*domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.reports, m.reportsErr
}

func (m *mockJobs) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type savedEmails []string

func (s *savedEmails) SaveEmail(ctx context.Context, email string) error {
	*s = append(*s, email)
	return nil
}
