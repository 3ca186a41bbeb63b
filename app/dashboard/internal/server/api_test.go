package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/conf"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/domain"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/service"
)

type errorBody struct {
	Code     int               `json:"code"`
	Reason   string            `json:"reason"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata"`
}

func TestSearchProxy(t *testing.T) {
	env := newTestEnv(t)
	env.searcher.set("moskal-reports", `{"topic":"Jakarta"}`)

	rec := env.do(t, jsonRequest(http.MethodPost, "/api/reports",
		`{"index":"moskal-reports","query":{"query":{"match_all":{}},"sort":[]}}`), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"hits":{"hits":[{"_source":{"topic":"Jakarta"}}]}}`, rec.Body.String())
}

func TestSearchProxy_Failure(t *testing.T) {
	env := newTestEnv(t)
	env.searcher.err = domain.UpstreamError(500, "cluster unavailable")

	rec := env.do(t, jsonRequest(http.MethodPost, "/api/reports", `{"index":"moskal-reports","query":{}}`), nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var f domain.ProxyFailure
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &f))
	assert.Equal(t, service.ProxyFailureTitle, f.Error)
	assert.Equal(t, "cluster unavailable", f.Message)
	assert.Equal(t, "upstream status 500", f.Details)
}

func TestSearchProxy_BadRequests(t *testing.T) {
	env := newTestEnv(t, "moskal-reports")

	rec := env.do(t, jsonRequest(http.MethodPost, "/api/reports", `{not json`), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, jsonRequest(http.MethodPost, "/api/reports", `{"index":"secrets","query":{}}`), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "not allowed")
	assert.Equal(t, 0, env.searcher.calls)
}

func TestListMine(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.login(t)

	var done []string
	for i := 0; i < 12; i++ {
		done = append(done, fmt.Sprintf(`{"topic":"economy %c","created_at":"2025-01-%02dT00:00:00"}`, 'a'+i, i+1))
	}
	env.searcher.set(conf.DefaultCompletedIndex, done...)
	env.searcher.set(conf.DefaultJobsIndex, `{"topic":"running","status":"processing","id":"j1","created_at":"2024-12-01T00:00:00"}`)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/reports/mine?page=3", nil), cookies)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out service.ListMineReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "a@b.co", out.Email)
	assert.Equal(t, 13, out.Total)
	assert.Equal(t, 3, out.TotalPages)
	assert.Equal(t, 3, out.Page)
	assert.Len(t, out.Reports, 3)
	assert.True(t, out.Polling)

	// 搜索词变化时回到第一页
	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/reports/mine?q=ECO&prev_q=&page=3", nil), cookies)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 1, out.Page)
	assert.Equal(t, 12, out.Total)
	assert.Len(t, out.Reports, 5)
}

func TestListMine_FetchError(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.login(t)
	env.searcher.err = domain.UpstreamError(500, "shard failure")

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/reports/mine", nil), cookies)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var e errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, domain.ReasonFetchReports, e.Reason)
	assert.Equal(t, "shard failure", e.Message)
}

func TestKeywords(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, jsonRequest(http.MethodPost, "/api/keywords", `{"topic":"Jakarta"}`), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"keywords":["Jakarta news","banjir"]}`, rec.Body.String())

	rec = env.do(t, jsonRequest(http.MethodPost, "/api/keywords", `{"topic":"  "}`), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var e errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, domain.ReasonValidation, e.Reason)
	assert.Equal(t, "topic", e.Metadata["field"])
}

func TestGenerate(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.login(t)

	rec := env.do(t, jsonRequest(http.MethodPost, "/api/reports/generate",
		`{"topic":"Jakarta","keywords":["banjir"],"start_date":"2025-02-01","end_date":"2025-01-01","email":"x@y.co"}`), cookies)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, env.jobs.generated)

	rec = env.do(t, jsonRequest(http.MethodPost, "/api/reports/generate",
		`{"topic":"Jakarta","keywords":["banjir"],"start_date":"2025-01-01","end_date":"2025-01-31","email":"x@y.co"}`), cookies)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, env.jobs.generated, 1)

	var reportEmail string
	for _, c := range rec.Result().Cookies() {
		if c.Name == "reportEmail" {
			reportEmail = c.Value
		}
	}
	assert.Equal(t, "x@y.co", reportEmail)
}

func TestRegenerate(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.login(t)

	rec := env.do(t, jsonRequest(http.MethodPost, "/api/reports/regenerate", `{"job_id":"j1"}`), cookies)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"j1|a@b.co"}, env.jobs.regen)
	assert.Equal(t, 2, env.searcher.calls, "refresh after regenerate")

	rec = env.do(t, jsonRequest(http.MethodPost, "/api/reports/regenerate", `{"job_id":"missing","email":"a@b.co"}`), cookies)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	var e errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, "Failed to regenerate report: 404 - job not found", e.Message)
}

func TestSessionAPI(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, jsonRequest(http.MethodPost, "/api/session/login", `{"username":"a@b.co","password":"bad"}`), nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, jsonRequest(http.MethodPost, "/api/session/login", `{"username":"a@b.co","password":"pw"}`), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"a@b.co"`)

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/api/session/logout", nil), rec.Result().Cookies())
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := 0
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			cleared++
		}
	}
	assert.Equal(t, 4, cleared)
}

func TestStream(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.login(t)
	env.searcher.set(conf.DefaultCompletedIndex, `{"topic":"done","created_at":"2025-01-01T00:00:00"}`)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/reports/stream", nil), cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	var events []string
	var data []string
	sc := bufio.NewScanner(strings.NewReader(rec.Body.String()))
	for sc.Scan() {
		line := sc.Text()
		if ev, ok := strings.CutPrefix(line, "event: "); ok {
			events = append(events, ev)
		}
		if d, ok := strings.CutPrefix(line, "data: "); ok {
			data = append(data, d)
		}
	}
	assert.Equal(t, []string{"reports", "idle"}, events)

	var first service.StreamEvent
	require.NoError(t, json.Unmarshal([]byte(data[0]), &first))
	assert.False(t, first.Polling)
	require.Len(t, first.Reports, 1)
	assert.Equal(t, "done", first.Reports[0].Topic)
}

func TestStream_NoEmail(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/reports/stream", nil), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
