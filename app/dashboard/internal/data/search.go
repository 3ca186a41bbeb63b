package data

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/conf"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/domain"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/repo"
)

type searchRepo struct {
	data     *Data
	password string
	log      *log.Helper
}

// NewSearchRepo 直连 Elasticsearch 的查询实现
func NewSearchRepo(data *Data, c *conf.Search, logger log.Logger) repo.ReportSearcher {
	var password string
	if c != nil {
		password = c.Password
	}
	return &searchRepo{
		data:     data,
		password: password,
		log:      log.NewHelper(logger),
	}
}

type esSearchResponse struct {
	Hits struct {
		Hits []domain.Hit `json:"hits"`
	} `json:"hits"`
}

type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

func (r *searchRepo) Search(ctx context.Context, index string, query domain.SearchQuery) ([]domain.Hit, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, domain.UpstreamError(0, fmt.Sprintf("marshal query failed: %v", err))
	}

	es := r.data.es
	res, err := es.Search(
		es.Search.WithContext(ctx),
		es.Search.WithIndex(index),
		es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, domain.UpstreamError(0, r.scrub(err.Error()))
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, domain.UpstreamError(res.StatusCode, r.scrub(fmt.Sprintf("read body failed: %v", err)))
	}

	if res.IsError() {
		msg := errorMessage(raw, res.Status())
		r.log.Errorf("elasticsearch search on %s failed: %s", index, msg)
		return nil, domain.UpstreamError(res.StatusCode, r.scrub(msg))
	}

	var parsed esSearchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, domain.UpstreamError(res.StatusCode, fmt.Sprintf("decode response failed: %v", err))
	}
	hits := parsed.Hits.Hits
	if hits == nil {
		hits = []domain.Hit{}
	}
	return hits, nil
}

// errorMessage 从 ES 错误体中提取 "type: reason"
func errorMessage(raw []byte, fallback string) string {
	var e esErrorResponse
	if err := json.Unmarshal(raw, &e); err == nil && (e.Error.Type != "" || e.Error.Reason != "") {
		if e.Error.Type == "" {
			return e.Error.Reason
		}
		if e.Error.Reason == "" {
			return e.Error.Type
		}
		return e.Error.Type + ": " + e.Error.Reason
	}
	if s := strings.TrimSpace(string(raw)); s != "" {
		return s
	}
	return fallback
}

// scrub 确保错误信息中不出现集群密码
func (r *searchRepo) scrub(msg string) string {
	if r.password == "" {
		return msg
	}
	return strings.ReplaceAll(msg, r.password, "******")
}
