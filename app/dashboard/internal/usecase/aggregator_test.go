package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/conf"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/domain"
)

const (
	completedIndex = conf.DefaultCompletedIndex
	jobsIndex      = conf.DefaultJobsIndex
)

func topics(reports []*domain.Report) []string {
	out := make([]string, 0, len(reports))
	for _, r := range reports {
		out = append(out, r.Topic)
	}
	return out
}

func TestAggregate_MergeAndSort(t *testing.T) {
	s := newMockSearcher()
	s.add(completedIndex,
		`{"topic":"old","created_at":"2025-01-01T08:00:00","public_url":"https://x/old.pdf","keywords":["a","b"]}`,
		`{"topic":"new","created_at":"2025-03-01T08:00:00"}`,
		`null`,
	)
	s.add(jobsIndex,
		`{"topic":"running","created_at":"2025-02-01T08:00:00","status":"processing","progress":42.7,"id":"j1","sub_keyword":"x,y"}`,
		`{"topic":"broken","created_at":"2025-04-01T08:00:00","status":"failed","id":"j2"}`,
	)

	uc := NewReportUseCase(s, nil, nil, nil, log.DefaultLogger)
	reports, err := uc.Aggregate(context.Background(), "a@b.co")
	require.NoError(t, err)
	assert.Equal(t, []string{"broken", "new", "running", "old"}, topics(reports))

	old := reports[3]
	assert.Equal(t, domain.StatusCompleted, old.Status)
	assert.Equal(t, 100, old.Progress)
	assert.Equal(t, "https://x/old.pdf", old.URL)
	assert.Equal(t, []string{"a", "b"}, old.Keywords)
	assert.Equal(t, []string{}, reports[1].Keywords)

	running := reports[2]
	assert.Equal(t, 42, running.Progress)
	assert.Equal(t, "j1", running.JobID)
	assert.Equal(t, []string{"x", "y"}, running.Keywords)
	assert.Equal(t, []string{}, reports[0].Keywords)
}

func TestAggregate_Queries(t *testing.T) {
	s := newMockSearcher()
	uc := NewReportUseCase(s, nil, &conf.Search{CompletedIndex: "done", JobsIndex: "jobs"}, nil, log.DefaultLogger)

	_, err := uc.Aggregate(context.Background(), "a@b.co")
	require.NoError(t, err)

	require.Contains(t, s.queries, "done")
	require.Contains(t, s.queries, "jobs")
	assert.JSONEq(t, `{"match":{"email_receiver":"a@b.co"}}`, string(s.queries["done"].Query))
	assert.JSONEq(t, `{"bool":{"must":[
		{"match":{"email_receiver":"a@b.co"}},
		{"bool":{"must_not":[{"match":{"status":"completed"}}]}}
	]}}`, string(s.queries["jobs"].Query))
	for _, q := range s.queries {
		assert.JSONEq(t, `[{"created_at.keyword":{"order":"desc"}}]`, string(q.Sort))
	}
}

func TestAggregate_EmptyEmail(t *testing.T) {
	s := newMockSearcher()
	reports, err := NewReportUseCase(s, nil, nil, nil, log.DefaultLogger).Aggregate(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, reports)
	assert.Empty(t, s.queries)
}

func TestAggregate_UpstreamMessage(t *testing.T) {
	s := newMockSearcher()
	s.errs[completedIndex] = domain.UpstreamError(http.StatusInternalServerError, "search_phase_execution_exception: all shards failed")

	_, err := NewReportUseCase(s, nil, nil, nil, log.DefaultLogger).Aggregate(context.Background(), "a@b.co")
	require.Error(t, err)
	assert.Equal(t, domain.ReasonFetchReports, errors.Reason(err))
	assert.Equal(t, "search_phase_execution_exception: all shards failed", errors.FromError(err).Message)
}

func TestAggregate_JobsErrorWins(t *testing.T) {
	s := newMockSearcher()
	s.errs[completedIndex] = domain.UpstreamError(500, "completed failed")
	s.errs[jobsIndex] = domain.UpstreamError(500, "jobs failed")

	_, err := NewReportUseCase(s, nil, nil, nil, log.DefaultLogger).Aggregate(context.Background(), "a@b.co")
	require.Error(t, err)
	assert.Equal(t, "jobs failed", errors.FromError(err).Message)
}

func TestAggregate_GenericFailure(t *testing.T) {
	s := newMockSearcher()
	s.errs[jobsIndex] = context.DeadlineExceeded

	_, err := NewReportUseCase(s, nil, nil, nil, log.DefaultLogger).Aggregate(context.Background(), "a@b.co")
	require.Error(t, err)
	assert.Equal(t, domain.MsgFetchReports, errors.FromError(err).Message)
}

func TestAggregate_Direct(t *testing.T) {
	jobs := &mockJobs{reports: []*domain.Report{
		{Topic: "a", CreatedAt: "2025-01-01T00:00:00", Keywords: []string{}},
		{Topic: "b", CreatedAt: "2025-02-01T00:00:00", Keywords: []string{}},
	}}
	s := newMockSearcher()
	uc := NewReportUseCase(s, jobs, nil, &conf.Reports{Source: SourceDirect}, log.DefaultLogger)

	reports, err := uc.Aggregate(context.Background(), "a@b.co")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, topics(reports))
	assert.Empty(t, s.queries)

	jobs.reportsErr = domain.UpstreamError(404, "user not found")
	_, err = uc.Aggregate(context.Background(), "a@b.co")
	require.Error(t, err)
	assert.Equal(t, "user not found", errors.FromError(err).Message)
}

func TestSortByCreatedAt(t *testing.T) {
	reports := []*domain.Report{
		{Topic: "b-tie", CreatedAt: "2025-01-02T10:00:00"},
		{Topic: "junk-a", CreatedAt: "not a date"},
		{Topic: "zoned", CreatedAt: "2025-01-02T11:00:00+02:00"},
		{Topic: "a-tie", CreatedAt: "2025-01-02T10:00:00"},
		{Topic: "empty", CreatedAt: ""},
		{Topic: "latest", CreatedAt: "2025-01-03"},
		{Topic: "junk-z", CreatedAt: "zzz"},
	}
	SortByCreatedAt(reports)
	assert.Equal(t, []string{"latest", "b-tie", "a-tie", "zoned", "junk-z", "junk-a", "empty"}, topics(reports))
}

// recordLogger 记录日志内容，便于断言告警
type recordLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordLogger) Log(level log.Level, keyvals ...interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level.String()+" "+fmt.Sprint(keyvals...))
	return nil
}

func TestAggregate_LenientJobFields(t *testing.T) {
	s := newMockSearcher()
	s.add(jobsIndex,
		`{"topic":"running","created_at":"2025-02-01T08:00:00","status":"processing","progress":"45","id":"j1"}`,
		`{"topic":"numeric id","created_at":"2025-01-01T08:00:00","status":"failed","progress":12.5,"id":7}`,
		`{"topic":"odd progress","created_at":"2024-12-01T08:00:00","status":"processing","progress":"n/a"}`,
		`{"topic":"broken","created_at":"2024-11-01T08:00:00","id":true}`,
	)
	logger := &recordLogger{}

	uc := NewReportUseCase(s, nil, nil, nil, logger)
	reports, err := uc.Aggregate(context.Background(), "a@b.co")
	require.NoError(t, err)
	require.Equal(t, []string{"running", "numeric id", "odd progress"}, topics(reports))

	assert.Equal(t, 45, reports[0].Progress)
	assert.Equal(t, domain.StatusProcessing, reports[0].Status)
	assert.True(t, domain.HasPending(reports))
	assert.Equal(t, "7", reports[1].JobID)
	assert.True(t, reports[1].CanRegenerate())
	assert.Equal(t, 0, reports[2].Progress)

	var warned bool
	for _, line := range logger.lines {
		if strings.HasPrefix(line, "WARN") && strings.Contains(line, "skip undecodable hit in "+jobsIndex) {
			warned = true
		}
	}
	assert.True(t, warned, "undecodable hit should be logged with its index")
}
