package conf

import "time"

type Bootstrap struct {
	Server   *Server   `json:"server" yaml:"server"`
	Data     *Data     `json:"data" yaml:"data"`
	Auth     *Auth     `json:"auth" yaml:"auth"`
	Search   *Search   `json:"search" yaml:"search"`
	Upstream *Upstream `json:"upstream" yaml:"upstream"`
	Reports  *Reports  `json:"reports" yaml:"reports"`
	Poll     *Poll     `json:"poll" yaml:"poll"`
	Log      *Log      `json:"log" yaml:"log"`
	Client   *Client   `json:"client" yaml:"client"`
}

// Auth 会话与身份服务配置
type Auth struct {
	JwtKey        string `json:"jwt_key" yaml:"jwt_key"`
	LoginUrl      string `json:"login_url" yaml:"login_url"`
	SecureCookies bool   `json:"secure_cookies" yaml:"secure_cookies"`
}

type Server struct {
	Http *HTTP `json:"http" yaml:"http"`
}

type HTTP struct {
	Addr    string `json:"addr" yaml:"addr"`
	Timeout string `json:"timeout" yaml:"timeout"`
}

type Data struct {
	Database *Database `json:"database" yaml:"database"`
}

// Database 为空时不启用偏好存储
type Database struct {
	Driver string `json:"driver" yaml:"driver"`
	Source string `json:"source" yaml:"source"`
}

// Search Elasticsearch 集群配置
type Search struct {
	Addresses          []string `json:"addresses" yaml:"addresses"`
	Username           string   `json:"username" yaml:"username"`
	Password           string   `json:"password" yaml:"password"`
	InsecureSkipVerify bool     `json:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	CompletedIndex     string   `json:"completed_index" yaml:"completed_index"`
	JobsIndex          string   `json:"jobs_index" yaml:"jobs_index"`
	AllowedIndices     []string `json:"allowed_indices" yaml:"allowed_indices"`
}

// Upstream 报告/任务服务配置
type Upstream struct {
	ApiBaseUrl  string       `json:"api_base_url" yaml:"api_base_url"`
	Timeout     string       `json:"timeout" yaml:"timeout"`
	Concurrency *Concurrency `json:"concurrency" yaml:"concurrency"`
}

type Concurrency struct {
	Qps int32 `json:"qps" yaml:"qps"`
	Rpm int32 `json:"rpm" yaml:"rpm"`
}

// Reports 聚合数据来源: "search"（默认，两次索引查询）或 "direct"（user-reports 接口）
type Reports struct {
	Source string `json:"source" yaml:"source"`
}

type Poll struct {
	Interval string `json:"interval" yaml:"interval"`
}

type Log struct {
	Level string `json:"level" yaml:"level"`
	File  string `json:"file" yaml:"file"`
}

// Client reportctl 使用的看板地址
type Client struct {
	DashboardUrl string `json:"dashboard_url" yaml:"dashboard_url"`
}

const (
	DefaultCompletedIndex  = "moskal-reports"
	DefaultJobsIndex       = "moskal-report-jobs"
	DefaultPollInterval    = 5 * time.Second
	DefaultUpstreamTimeout = 30 * time.Second
)

// CompletedIndexName 已完成报告索引
func (s *Search) CompletedIndexName() string {
	if s == nil || s.CompletedIndex == "" {
		return DefaultCompletedIndex
	}
	return s.CompletedIndex
}

// JobsIndexName 报告任务索引
func (s *Search) JobsIndexName() string {
	if s == nil || s.JobsIndex == "" {
		return DefaultJobsIndex
	}
	return s.JobsIndex
}

func (p *Poll) IntervalDuration() time.Duration {
	if p == nil || p.Interval == "" {
		return DefaultPollInterval
	}
	d, err := time.ParseDuration(p.Interval)
	if err != nil || d <= 0 {
		return DefaultPollInterval
	}
	return d
}

func (u *Upstream) TimeoutDuration() time.Duration {
	if u == nil || u.Timeout == "" {
		return DefaultUpstreamTimeout
	}
	d, err := time.ParseDuration(u.Timeout)
	if err != nil || d <= 0 {
		return DefaultUpstreamTimeout
	}
	return d
}
