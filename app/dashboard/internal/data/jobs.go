package data

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/conf"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/domain"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/repo"
)

type jobRepo struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	log     *log.Helper
}

// NewJobRepo 报告/任务服务客户端
func NewJobRepo(c *conf.Upstream, logger log.Logger) repo.JobService {
	var baseURL string
	if c != nil {
		baseURL = strings.TrimRight(c.ApiBaseUrl, "/")
	}
	return &jobRepo{
		baseURL: baseURL,
		client:  &http.Client{Timeout: c.TimeoutDuration()},
		limiter: NewLimiter(c),
		log:     log.NewHelper(logger),
	}
}

// NewLimiter Limit 设置为 RPM/60，Burst 设置为 QPS；未配置时不限流
func NewLimiter(c *conf.Upstream) *rate.Limiter {
	if c == nil || c.Concurrency == nil || c.Concurrency.Rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(c.Concurrency.Qps)
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(c.Concurrency.Rpm)/60.0), burst)
}

// call 发送请求并返回状态码和响应体；网络错误和限流等待失败直接返回 error
func (r *jobRepo) call(ctx context.Context, method, path string, params url.Values) (int, []byte, error) {
	if r.baseURL == "" {
		return 0, nil, domain.UpstreamError(0, "report API base URL not configured")
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return 0, nil, fmt.Errorf("limiter wait error: %w", err)
	}

	u := r.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("accept", "application/json")

	res, err := r.client.Do(req)
	if err != nil {
		return 0, nil, domain.UpstreamError(0, fmt.Sprintf("request failed: %v", err))
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, domain.UpstreamError(res.StatusCode, fmt.Sprintf("read body failed: %v", err))
	}
	return res.StatusCode, body, nil
}

func ok(status int) bool {
	return status >= 200 && status < 300
}

// upstreamMessage 提取响应体中的 message 字段
func upstreamMessage(body []byte) string {
	var m struct {
		Message string `json:"message"`
		Detail  any    `json:"detail"`
	}
	if err := json.Unmarshal(body, &m); err != nil {
		return ""
	}
	if m.Message != "" {
		return m.Message
	}
	if s, isString := m.Detail.(string); isString {
		return s
	}
	return ""
}

func (r *jobRepo) SuggestKeywords(ctx context.Context, topic string) ([]string, error) {
	status, body, err := r.call(ctx, http.MethodPost, "/generate-sub-keywords", url.Values{"topic": {topic}})
	if err != nil {
		return nil, err
	}
	if !ok(status) {
		r.log.Errorf("generate-sub-keywords failed (status %d): %s", status, string(body))
		return nil, domain.UpstreamError(status, fmt.Sprintf("keyword suggestion failed with status %d", status))
	}

	var out struct {
		SubKeyword []string `json:"sub_keyword"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, domain.UpstreamError(status, fmt.Sprintf("decode response failed: %v", err))
	}
	if out.SubKeyword == nil {
		return []string{}, nil
	}
	return out.SubKeyword, nil
}

func (r *jobRepo) GenerateReport(ctx context.Context, req *repo.GenerateRequest) (*repo.GenerateResult, error) {
	params := url.Values{
		"topic":          {req.Topic},
		"start_date":     {req.StartDate},
		"end_date":       {req.EndDate},
		"sub_keyword":    {domain.JoinKeywords(req.Keywords)},
		"email_receiver": {req.Email},
	}
	status, body, err := r.call(ctx, http.MethodPost, "/generate-report", params)
	if err != nil {
		return nil, err
	}

	var out repo.GenerateResult
	decodeErr := json.Unmarshal(body, &out)
	if !ok(status) {
		msg := out.Message
		if msg == "" {
			msg = fmt.Sprintf("report generation failed with status %d", status)
		}
		return nil, domain.UpstreamError(status, msg)
	}
	if decodeErr != nil {
		return nil, domain.UpstreamError(status, fmt.Sprintf("decode response failed: %v", decodeErr))
	}
	return &out, nil
}

func (r *jobRepo) RegenerateReport(ctx context.Context, jobID, email string) (map[string]any, error) {
	status, body, err := r.call(ctx, http.MethodPost, "/regenerate-report", url.Values{
		"job_id": {jobID},
		"email":  {email},
	})
	if err != nil {
		return nil, err
	}
	r.log.Debugf("regenerate-report response status=%d body=%s", status, string(body))

	if !ok(status) {
		msg := upstreamMessage(body)
		if msg == "" {
			msg = domain.MsgUnknownError
		}
		return nil, domain.UpstreamError(status, fmt.Sprintf("Failed to regenerate report: %d - %s", status, msg))
	}

	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil || out == nil {
		return nil, domain.UpstreamError(status, "Invalid API response format")
	}
	return out, nil
}

func (r *jobRepo) UserReports(ctx context.Context, email string) ([]*domain.Report, error) {
	status, body, err := r.call(ctx, http.MethodGet, "/user-reports/"+url.PathEscape(email), nil)
	if err != nil {
		return nil, err
	}
	if !ok(status) {
		msg := upstreamMessage(body)
		if msg == "" {
			msg = domain.MsgFetchReports
		}
		return nil, domain.UpstreamError(status, msg)
	}

	var out struct {
		Status string `json:"status"`
		Data   *struct {
			Total   int              `json:"total"`
			Reports []*domain.Report `json:"reports"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.Data == nil {
		return nil, domain.UpstreamError(status, domain.MsgInvalidResponse)
	}
	for _, rp := range out.Data.Reports {
		if rp.Keywords == nil {
			rp.Keywords = []string{}
		}
	}
	return out.Data.Reports, nil
}
