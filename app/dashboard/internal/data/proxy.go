package data

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/domain"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/repo"
)

// ProxyClient 通过看板的 POST /api/reports 搜索代理查询，供命令行工具使用
type ProxyClient struct {
	endpoint string
	client   *http.Client
}

// Ensure ProxyClient implements repo.ReportSearcher
var _ repo.ReportSearcher = (*ProxyClient)(nil)

// NewProxyClient dashboardURL 形如 http://localhost:8000
func NewProxyClient(dashboardURL string, timeout time.Duration) *ProxyClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ProxyClient{
		endpoint: strings.TrimRight(dashboardURL, "/") + "/api/reports",
		client:   &http.Client{Timeout: timeout},
	}
}

func (c *ProxyClient) Search(ctx context.Context, index string, query domain.SearchQuery) ([]domain.Hit, error) {
	payload, err := json.Marshal(domain.SearchRequest{Index: index, Query: query})
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, domain.UpstreamError(0, fmt.Sprintf("request failed: %v", err))
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, domain.UpstreamError(res.StatusCode, fmt.Sprintf("read body failed: %v", err))
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, domain.UpstreamError(res.StatusCode, failureMessage(body))
	}

	var list domain.HitList
	if err := json.Unmarshal(body, &list); err != nil || !list.Valid() {
		return nil, domain.UpstreamError(res.StatusCode, domain.MsgInvalidResponse)
	}
	return list.Hits.Hits, nil
}

// failureMessage 优先取 message，其次 error，最后使用默认文案
func failureMessage(body []byte) string {
	var f domain.ProxyFailure
	if err := json.Unmarshal(body, &f); err != nil {
		return domain.MsgFetchReports
	}
	if f.Message != "" {
		return f.Message
	}
	if f.Error != "" {
		return f.Error
	}
	return domain.MsgFetchReports
}
