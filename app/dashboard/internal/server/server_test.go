package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/conf"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/domain"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/repo"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/service"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/session"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/usecase"
)

// fakeSearcher 按索引返回 _source 列表
type fakeSearcher struct {
	mu      sync.Mutex
	sources map[string][]string
	err     error
	calls   int
}

func (f *fakeSearcher) Search(ctx context.Context, index string, q domain.SearchQuery) ([]domain.Hit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	hits := []domain.Hit{}
	for _, s := range f.sources[index] {
		hits = append(hits, domain.Hit{Source: json.RawMessage(s)})
	}
	return hits, nil
}

func (f *fakeSearcher) set(index string, sources ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources[index] = sources
}

type fakeJobs struct {
	mu        sync.Mutex
	generated []*repo.GenerateRequest
	regen     []string
}

func (f *fakeJobs) SuggestKeywords(ctx context.Context, topic string) ([]string, error) {
	if topic == "fail" {
		return nil, domain.UpstreamError(500, "boom")
	}
	return []string{topic + " news", "banjir"}, nil
}

func (f *fakeJobs) GenerateReport(ctx context.Context, req *repo.GenerateRequest) (*repo.GenerateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generated = append(f.generated, req)
	return &repo.GenerateResult{Status: "success"}, nil
}

func (f *fakeJobs) RegenerateReport(ctx context.Context, jobID, email string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if jobID == "missing" {
		return nil, domain.UpstreamError(404, "Failed to regenerate report: 404 - job not found")
	}
	f.regen = append(f.regen, jobID+"|"+email)
	return map[string]any{"status": "success"}, nil
}

func (f *fakeJobs) UserReports(ctx context.Context, email string) ([]*domain.Report, error) {
	return []*domain.Report{}, nil
}

type fakeIdentity struct{}

func (fakeIdentity) Login(ctx context.Context, c domain.Credentials) (*domain.Session, error) {
	if c.Password != "pw" {
		return nil, errors.Unauthorized(domain.ReasonCredentials, "Invalid email or password")
	}
	return &domain.Session{
		Tokens: domain.Tokens{AccessToken: "at", RefreshToken: "rt"},
		User:   domain.User{ID: "u-1", Email: c.Username, Name: "Ana"},
	}, nil
}

type testEnv struct {
	srv      *khttp.Server
	searcher *fakeSearcher
	jobs     *fakeJobs
	sessions *session.Manager
}

func newTestEnv(t *testing.T, allowed ...string) *testEnv {
	t.Helper()
	logger := log.DefaultLogger
	searcher := &fakeSearcher{sources: map[string][]string{}}
	jobs := &fakeJobs{}
	search := &conf.Search{AllowedIndices: allowed}

	sessions := session.NewManager(&conf.Auth{JwtKey: "test"}, fakeIdentity{}, nil, logger)
	svc := service.NewDashboardService(
		searcher,
		usecase.NewReportUseCase(searcher, jobs, search, nil, logger),
		usecase.NewRequestUseCase(jobs, logger),
		sessions,
		search,
		&conf.Poll{Interval: "1s"},
		logger,
	)
	return &testEnv{
		srv:      NewHTTPServer(&conf.Server{Http: &conf.HTTP{Timeout: "5s"}}, svc, logger),
		searcher: searcher,
		jobs:     jobs,
		sessions: sessions,
	}
}

// login 走真实登录接口拿到 Cookie
func (e *testEnv) login(t *testing.T) []*http.Cookie {
	t.Helper()
	form := url.Values{"username": {"a@b.co"}, "password": {"pw"}}
	req := httptest.NewRequest(http.MethodPost, "/api/session/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return rec.Result().Cookies()
}

func (e *testEnv) do(t *testing.T, req *http.Request, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	for _, c := range cookies {
		if c.MaxAge >= 0 && c.Value != "" {
			req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
		}
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}
