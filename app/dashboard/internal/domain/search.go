package domain

import "encoding/json"

// SearchQuery 转发给搜索集群的查询体
type SearchQuery struct {
	Query json.RawMessage `json:"query,omitempty"`
	Sort  json.RawMessage `json:"sort,omitempty"`
}

// SearchRequest 搜索代理的请求体
type SearchRequest struct {
	Index string      `json:"index"`
	Query SearchQuery `json:"query"`
}

// Hit 只保留 _source，丢弃评分、聚合等元数据
type Hit struct {
	Source json.RawMessage `json:"_source"`
}

// HitList 搜索代理的响应体 {hits: {hits: [...]}}
type HitList struct {
	Hits *HitsEnvelope `json:"hits"`
}

type HitsEnvelope struct {
	Hits []Hit `json:"hits"`
}

// NewHitList 用命中列表构造响应，nil 会被规整为空数组
func NewHitList(hits []Hit) *HitList {
	if hits == nil {
		hits = []Hit{}
	}
	return &HitList{Hits: &HitsEnvelope{Hits: hits}}
}

// Valid 响应中是否包含 hits.hits 数组
func (l *HitList) Valid() bool {
	return l != nil && l.Hits != nil && l.Hits.Hits != nil
}

// ProxyFailure 搜索代理失败时的响应体
type ProxyFailure struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
